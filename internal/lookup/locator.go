package lookup

import (
	"context"
	"database/sql"
	"errors"
	"math/rand"
	"time"

	"callpower/internal/campaign"

	gocache "github.com/patrickmn/go-cache"
)

// Source resolves the targets that represent a location.
// Implementations may call a geocoder or read a precomputed table.
type Source interface {
	TargetsForLocation(ctx context.Context, zipcode string) ([]int64, error)
}

// Locator turns a caller's zipcode into the ordered list of target ids for
// a campaign. Location results depend only on the zipcode and are cached
// per zip in-process; campaign custom targets are merged on every call since
// campaign config is re-read per request.
type Locator struct {
	source  Source
	cache   *gocache.Cache
	shuffle func(ids []int64)
}

const (
	defaultCacheTTL     = 10 * time.Minute
	defaultCacheCleanup = 30 * time.Minute
)

func NewLocator(source Source, ttl time.Duration) *Locator {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Locator{
		source: source,
		cache:  gocache.New(ttl, defaultCacheCleanup),
		shuffle: func(ids []int64) {
			rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
		},
	}
}

// Locate returns target ids for zipcode within campaign c. A zipcode that
// is not all digits yields an empty list, not an error.
func (l *Locator) Locate(ctx context.Context, zipcode string, c campaign.Campaign) ([]int64, error) {
	if !validZip(zipcode) {
		return nil, nil
	}

	location, err := l.locationTargets(ctx, zipcode)
	if err != nil {
		return nil, err
	}

	custom := append([]int64(nil), c.CustomTargetIDs...)
	var out []int64
	if len(custom) == 0 {
		out = location
	} else {
		if c.TargetOrdering == campaign.OrderingShuffle {
			l.shuffle(custom)
		}
		switch c.IncludeCustom {
		case campaign.IncludeCustomFirst:
			out = append(custom, location...)
		case campaign.IncludeCustomLast:
			out = append(append([]int64(nil), location...), custom...)
		default:
			out = custom
		}
	}

	if c.CallMaximum > 0 && len(out) > c.CallMaximum {
		out = out[:c.CallMaximum]
	}
	return out, nil
}

func (l *Locator) locationTargets(ctx context.Context, zipcode string) ([]int64, error) {
	if v, ok := l.cache.Get(zipcode); ok {
		if ids, ok := v.([]int64); ok {
			return append([]int64(nil), ids...), nil
		}
	}
	if l.source == nil {
		return nil, errors.New("lookup: location source not configured")
	}
	ids, err := l.source.TargetsForLocation(ctx, zipcode)
	if err != nil {
		return nil, err
	}
	l.cache.SetDefault(zipcode, append([]int64(nil), ids...))
	return ids, nil
}

func validZip(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// PostgresSource reads the precomputed location_targets table
// (zipcode, target_id, position).
type PostgresSource struct {
	db *sql.DB
}

func NewPostgresSource(db *sql.DB) *PostgresSource { return &PostgresSource{db: db} }

func (s *PostgresSource) TargetsForLocation(ctx context.Context, zipcode string) ([]int64, error) {
	const q = `
SELECT target_id
FROM location_targets
WHERE zipcode = $1
ORDER BY position
`
	rows, err := s.db.QueryContext(ctx, q, zipcode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// StaticSource serves a fixed zipcode table. Useful for tests and demos.
type StaticSource map[string][]int64

func (s StaticSource) TargetsForLocation(ctx context.Context, zipcode string) ([]int64, error) {
	return append([]int64(nil), s[zipcode]...), nil
}
