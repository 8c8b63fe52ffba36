package political

// OpenStatesAdapter handles state legislator records.
type OpenStatesAdapter struct{}

const officeTypeCapitol = "capitol"

func (OpenStatesAdapter) Key(key string) (string, string) { return splitKey(key) }

// Target uses the capitol office phone as the primary number, falling back to
// the first listed office. With no offices the number field is left out.
func (OpenStatesAdapter) Target(data Record) (Record, error) {
	title := "Representative"
	if data.String("chamber") == "upper" {
		title = "Senator"
	}
	out := Record{
		FieldTitle: title,
		FieldUID:   data.String("leg_id"),
	}

	switch {
	case data.String("first_name") != "" && data.String("last_name") != "":
		out[FieldName] = data.String("first_name") + " " + data.String("last_name")
	case data.String("full_name") != "":
		out[FieldName] = data.String("full_name")
	default:
		return nil, ErrMissingName
	}

	offices := data.Records("offices")
	for _, office := range offices {
		if office.String("type") == officeTypeCapitol {
			out[FieldNumber] = office.String("phone")
		}
	}
	if !out.Has(FieldNumber) && len(offices) > 0 {
		out[FieldNumber] = offices[0].String("phone")
	}
	return out, nil
}

// Offices returns every non-capitol office that has a phone.
func (OpenStatesAdapter) Offices(data Record) ([]Record, error) {
	var out []Record
	for _, office := range data.Records("offices") {
		if office.String("type") == officeTypeCapitol {
			continue
		}
		if office.String("phone") == "" {
			continue
		}
		out = append(out, Record{
			FieldName:    office.String("name"),
			FieldAddress: office.String("address"),
			FieldNumber:  office.String("phone"),
		})
	}
	return out, nil
}
