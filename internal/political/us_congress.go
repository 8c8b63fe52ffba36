package political

import "fmt"

// USCongressAdapter handles national legislator records keyed by bioguide id.
type USCongressAdapter struct{}

func (USCongressAdapter) Key(key string) (string, string) { return splitKey(key) }

func (USCongressAdapter) Target(data Record) (Record, error) {
	name, err := fullName(data)
	if err != nil {
		return nil, err
	}
	return Record{
		FieldName:   name,
		FieldNumber: data.String("phone"), // DC office
		FieldTitle:  data.String("title"),
		FieldUID:    data.String("bioguide_id"),
	}, nil
}

// Offices returns district offices. Offices without a phone are dropped.
func (USCongressAdapter) Offices(data Record) ([]Record, error) {
	var out []Record
	for _, office := range data.Records("offices") {
		if office.String("phone") == "" {
			continue
		}
		o := Record{
			FieldName:    office.String("city"),
			FieldNumber:  office.String("phone"),
			FieldUID:     office.String("id"),
			FieldAddress: districtAddress(office),
		}
		if office.Has("latitude") && office.Has("longitude") {
			o[FieldLocation] = fmt.Sprintf("POINT(%s, %s)", office.String("latitude"), office.String("longitude"))
		}
		out = append(out, o)
	}
	return out, nil
}

func districtAddress(office Record) string {
	if !office.Has("city") || !office.Has("state") {
		return ""
	}
	city, state := office.String("city"), office.String("state")
	switch {
	case office.Has("address") && office.Has("building"):
		return fmt.Sprintf("%s %s %s %s", office.String("address"), office.String("building"), city, state)
	case office.Has("address"):
		return fmt.Sprintf("%s %s %s", office.String("address"), city, state)
	default:
		return fmt.Sprintf("%s %s", city, state)
	}
}
