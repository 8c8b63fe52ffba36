package calls

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidRecord = errors.New("calls: invalid record")
	// ErrDuplicate means the leg was already recorded for this provider call.
	ErrDuplicate = errors.New("calls: duplicate record")
)

// Recorder writes call records on a best-effort basis.
//
// IMPORTANT:
// - Record never blocks the caller and never returns an error; a failed
//   write is logged and dropped so a live call is never stranded.
// - Each Record call makes exactly one write attempt.
type Recorder struct {
	repo    Repository
	log     *slog.Logger
	clock   func() time.Time
	timeout time.Duration

	wg sync.WaitGroup
}

func NewRecorder(repo Repository, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{repo: repo, log: log, clock: time.Now, timeout: 5 * time.Second}
}

// Create validates and stores one record synchronously.
func (s *Recorder) Create(ctx context.Context, r CallRecord) error {
	if s.repo == nil {
		return errors.New("calls: repository not configured")
	}
	if r.CampaignID <= 0 || r.TargetID <= 0 {
		return ErrInvalidRecord
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.clock().UTC()
	}
	if r.Status == "" {
		r.Status = CallStatusUnknown
	}
	return s.repo.Create(ctx, r)
}

// Record stores r in the background. The write is detached from the
// request context so a provider hang-up cannot cancel it.
func (s *Recorder) Record(r CallRecord) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		err := s.Create(ctx, r)
		if errors.Is(err, ErrDuplicate) {
			s.log.Info("call already logged", "campaign_id", r.CampaignID, "target_id", r.TargetID, "call_id", r.ProviderCallID)
			return
		}
		if err != nil {
			s.log.Error("failed to log call",
				"err", err,
				"campaign_id", r.CampaignID,
				"target_id", r.TargetID,
				"call_id", r.ProviderCallID,
			)
		}
	}()
}

// Wait blocks until in-flight writes finish or ctx is done.
func (s *Recorder) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
