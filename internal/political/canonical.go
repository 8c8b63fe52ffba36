package political

// Target is the canonical callable person produced from any source.
type Target struct {
	UID    string `json:"uid"`
	Name   string `json:"name"`
	Title  string `json:"title"`
	Number string `json:"number,omitempty"`

	// HasNumber is false when the source had no number at all, as opposed
	// to an empty one.
	HasNumber bool `json:"-"`
}

// Office is a secondary contact point for a Target.
type Office struct {
	UID      string `json:"uid,omitempty"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Number   string `json:"number"`
	Location string `json:"location,omitempty"`
}

func DecodeTarget(r Record) Target {
	return Target{
		UID:       r.String(FieldUID),
		Name:      r.String(FieldName),
		Title:     r.String(FieldTitle),
		Number:    r.String(FieldNumber),
		HasNumber: r.Has(FieldNumber),
	}
}

func DecodeOffice(r Record) Office {
	return Office{
		UID:      r.String(FieldUID),
		Name:     r.String(FieldName),
		Address:  r.String(FieldAddress),
		Number:   r.String(FieldNumber),
		Location: r.String(FieldLocation),
	}
}

// Translate runs both adapter operations and decodes the canonical result.
func Translate(a Adapter, data Record) (Target, []Office, error) {
	tr, err := a.Target(data)
	if err != nil {
		return Target{}, nil, err
	}
	ors, err := a.Offices(data)
	if err != nil {
		return Target{}, nil, err
	}
	offices := make([]Office, 0, len(ors))
	for _, o := range ors {
		offices = append(offices, DecodeOffice(o))
	}
	return DecodeTarget(tr), offices, nil
}
