package campaign

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

var (
	ErrNotFound  = errors.New("campaign: not found")
	ErrEmptyPool = errors.New("campaign: no phone numbers configured")
)

// Store is the read path into campaign configuration and targets.
type Store interface {
	GetCampaign(ctx context.Context, id int64) (Campaign, error)
	// CampaignByNumber resolves the campaign a published number belongs to.
	CampaignByNumber(ctx context.Context, number string) (Campaign, error)
	GetTarget(ctx context.Context, id int64) (Target, error)
}

// NumberPicker selects an originating number from a campaign's pool.
type NumberPicker struct {
	RNG *rand.Rand
}

// Pick returns a uniformly random number from the pool.
func (p NumberPicker) Pick(c Campaign) (string, error) {
	var pool []string
	for _, n := range c.PhoneNumbers {
		if n != "" {
			pool = append(pool, n)
		}
	}
	if len(pool) == 0 {
		return "", ErrEmptyPool
	}
	rng := p.RNG
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return pool[rng.Intn(len(pool))], nil
}
