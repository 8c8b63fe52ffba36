package campaign

import (
	"context"
	"sync"

	"callpower/internal/political"
)

// MemoryRepo is an in-memory Store for tests and local development.
// It also accepts imported targets.
type MemoryRepo struct {
	mu sync.Mutex

	Campaigns map[int64]Campaign
	Targets   map[int64]Target
	Offices   map[int64][]Office

	nextTargetID int64
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		Campaigns: map[int64]Campaign{},
		Targets:   map[int64]Target{},
		Offices:   map[int64][]Office{},
	}
}

func (r *MemoryRepo) PutCampaign(c Campaign) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Campaigns[c.ID] = c
}

func (r *MemoryRepo) PutTarget(t Target) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Targets[t.ID] = t
	if t.ID > r.nextTargetID {
		r.nextTargetID = t.ID
	}
}

func (r *MemoryRepo) GetCampaign(ctx context.Context, id int64) (Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.Campaigns[id]
	if !ok {
		return Campaign{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepo) CampaignByNumber(ctx context.Context, number string) (Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.Campaigns {
		for _, n := range c.PhoneNumbers {
			if n == number {
				return c, nil
			}
		}
	}
	return Campaign{}, ErrNotFound
}

func (r *MemoryRepo) GetTarget(ctx context.Context, id int64) (Target, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.Targets[id]
	if !ok {
		return Target{}, ErrNotFound
	}
	return t, nil
}

// UpsertTarget stores an imported target, keyed by uid.
func (r *MemoryRepo) UpsertTarget(ctx context.Context, t political.Target, offices []political.Office) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var id int64
	for _, existing := range r.Targets {
		if existing.UID == t.UID {
			id = existing.ID
			break
		}
	}
	if id == 0 {
		r.nextTargetID++
		id = r.nextTargetID
	}
	r.Targets[id] = Target{ID: id, UID: t.UID, Name: t.Name, Title: t.Title, Number: t.Number}

	out := make([]Office, 0, len(offices))
	for _, o := range offices {
		out = append(out, officeFromCanonical(id, o))
	}
	r.Offices[id] = out
	return id, nil
}

func officeFromCanonical(targetID int64, o political.Office) Office {
	return Office{TargetID: targetID, UID: o.UID, Name: o.Name, Address: o.Address, Number: o.Number, Location: o.Location}
}
