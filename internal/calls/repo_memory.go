package calls

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is a simple in-memory append-only repository useful for tests.
// It enforces the same (call_id, call_index) uniqueness as the calls table.
// Err, when set, is returned from every Create.
type MemoryRepo struct {
	mu      sync.Mutex
	records []CallRecord
	creates int

	Err error
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Create(ctx context.Context, c CallRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	if r.Err != nil {
		return r.Err
	}
	if c.ProviderCallID != "" {
		for _, e := range r.records {
			if e.ProviderCallID == c.ProviderCallID && e.CallIndex == c.CallIndex {
				return ErrDuplicate
			}
		}
	}
	r.records = append(r.records, c)
	return nil
}

func (r *MemoryRepo) ListByCampaign(ctx context.Context, campaignID int64, from, to time.Time) ([]CallRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]CallRecord, 0)
	for _, c := range r.records {
		if c.CampaignID != campaignID {
			continue
		}
		if !c.CreatedAt.IsZero() {
			if c.CreatedAt.Before(from) || !c.CreatedAt.Before(to) {
				continue
			}
		}
		out = append(out, c)
	}
	return out, nil
}

// Records returns a copy of everything stored.
func (r *MemoryRepo) Records() []CallRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]CallRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Creates counts Create attempts, including failed ones.
func (r *MemoryRepo) Creates() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.creates
}
