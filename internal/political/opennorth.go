package political

// OpenNorthAdapter handles Canadian representative records.
type OpenNorthAdapter struct{}

const officeTypeLegislature = "legislature"

// Key never splits: district names may contain dashes.
func (OpenNorthAdapter) Key(key string) (string, string) { return key, "" }

func (OpenNorthAdapter) Target(data Record) (Record, error) {
	name, err := fullName(data)
	if err != nil {
		return nil, err
	}
	var legislature Record
	for _, office := range data.Records("offices") {
		if office.String("type") == officeTypeLegislature {
			legislature = office
			break
		}
	}
	if legislature == nil {
		return nil, ErrNoLegislatureOffice
	}
	return Record{
		FieldName:   name,
		FieldTitle:  data.String("elected_office"),
		FieldNumber: legislature.String("tel"),
		FieldUID:    data.String("cache_key"),
	}, nil
}

// Offices skips the legislature office, which is already the target number.
func (OpenNorthAdapter) Offices(data Record) ([]Record, error) {
	var out []Record
	for _, office := range data.Records("offices") {
		if office.String("type") == officeTypeLegislature {
			continue
		}
		if office.String("tel") == "" {
			continue
		}
		out = append(out, Record{
			FieldName:    office.String("type"),
			FieldAddress: office.String("postal"),
			FieldNumber:  office.String("tel"),
		})
	}
	return out, nil
}
