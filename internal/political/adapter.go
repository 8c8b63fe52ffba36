package political

import (
	"errors"
	"strings"
)

var (
	ErrMissingName = errors.New("political: missing name")
	// ErrNoLegislatureOffice is returned for legislature-style sources whose
	// record has no legislature office to take the primary number from.
	ErrNoLegislatureOffice = errors.New("political: no legislature office")
)

// Adapter translates raw upstream records into canonical target and office
// records. Implementations are pure and safe for concurrent use.
type Adapter interface {
	// Key splits a stored identifier into an id and a trailing suffix
	// (e.g. a district office qualifier).
	Key(key string) (id, suffix string)
	Target(data Record) (Record, error)
	Offices(data Record) ([]Record, error)
}

// Source key prefixes.
const (
	SourceUSCongress  = "us:bioguide"
	SourceOpenStates  = "us_state:openstates"
	SourceUSGovernor  = "us_state:governor"
	SourceOpenNorthCA = "ca:opennorth"
)

type adapterEntry struct {
	prefix  string
	adapter Adapter
}

// New variants are added here only.
var adapterTable = []adapterEntry{
	{SourceUSCongress, USCongressAdapter{}},
	{SourceOpenStates, OpenStatesAdapter{}},
	{SourceUSGovernor, GovernorAdapter{}},
	{SourceOpenNorthCA, OpenNorthAdapter{}},
}

// SelectAdapter picks the adapter for sourceKey by prefix. Unknown keys get
// the identity adapter.
func SelectAdapter(sourceKey string) Adapter {
	for _, e := range adapterTable {
		if strings.HasPrefix(sourceKey, e.prefix) {
			return e.adapter
		}
	}
	return IdentityAdapter{}
}

// Supported reports whether sourceKey maps to a non-identity adapter.
func Supported(sourceKey string) bool {
	_, identity := SelectAdapter(sourceKey).(IdentityAdapter)
	return !identity
}

// splitKey is the default key split on "-".
func splitKey(key string) (string, string) {
	id, suffix, ok := strings.Cut(key, "-")
	if !ok {
		return key, ""
	}
	return id, suffix
}

// IdentityAdapter passes records through untouched.
type IdentityAdapter struct{}

func (IdentityAdapter) Key(key string) (string, string) { return splitKey(key) }

func (IdentityAdapter) Target(data Record) (Record, error) { return data, nil }

func (IdentityAdapter) Offices(data Record) ([]Record, error) { return []Record{data}, nil }
