package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
// Callers should treat audit logging as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.ActorUserID == "" || e.Type == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// ImportSummary is the audited outcome of one target import.
type ImportSummary struct {
	Imported int      `json:"imported"`
	Rejected int      `json:"rejected"`
	Errors   []string `json:"errors,omitempty"`
}

// LogTargetImport records who imported which source and how it went.
func (s *Service) LogTargetImport(ctx context.Context, actorUserID, actorRole, ip, sourceKey string, sum ImportSummary) error {
	meta, err := json.Marshal(sum)
	if err != nil {
		return err
	}
	return s.Append(ctx, Event{
		Type:        EventTypeTargetImport,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		SourceKey:   sourceKey,
		Message:     fmt.Sprintf("imported %d targets, rejected %d", sum.Imported, sum.Rejected),
		Metadata:    string(meta),
	})
}

// LogReportAccess records a read of campaign call data.
func (s *Service) LogReportAccess(ctx context.Context, actorUserID, actorRole, ip string, campaignID int64, report string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeReportAccess,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		CampaignID:  campaignID,
		Message:     report,
	})
}
