package political

// GovernorAdapter maps governor records. The state code doubles as the uid.
type GovernorAdapter struct{}

func (GovernorAdapter) Key(key string) (string, string) { return splitKey(key) }

func (GovernorAdapter) Target(data Record) (Record, error) {
	name, err := fullName(data)
	if err != nil {
		return nil, err
	}
	return Record{
		FieldName:   name,
		FieldTitle:  data.String("title"),
		FieldNumber: data.String("phone"),
		FieldUID:    data.String("state"),
	}, nil
}

func (GovernorAdapter) Offices(Record) ([]Record, error) { return nil, nil }
