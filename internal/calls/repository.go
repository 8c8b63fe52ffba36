package calls

import (
	"context"
	"database/sql"
	"time"

	"callpower/pkg/utils"
)

// Repository is the persistence contract for call records.
//
// It MUST be append-only. No Update/Delete methods are provided.
type Repository interface {
	Create(ctx context.Context, r CallRecord) error
	ListByCampaign(ctx context.Context, campaignID int64, from, to time.Time) ([]CallRecord, error)
}

// PostgresRepo stores call records in the calls table. A unique index on
// (call_id, call_index) backs up the leg guard when redis is unavailable;
// rows without a call_id are never deduplicated.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Create(ctx context.Context, c CallRecord) error {
	const q = `
INSERT INTO calls (
  id, campaign_id, target_id, location, call_id, call_index, status, duration, phone_number, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
)
`
	_, err := r.db.ExecContext(ctx, q,
		c.ID,
		c.CampaignID,
		c.TargetID,
		nullable(c.Location),
		nullable(c.ProviderCallID),
		c.CallIndex,
		c.Status,
		c.DurationSeconds,
		nullable(c.PhoneNumber),
		c.CreatedAt,
	)
	if utils.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *PostgresRepo) ListByCampaign(ctx context.Context, campaignID int64, from, to time.Time) ([]CallRecord, error) {
	const q = `
SELECT id, campaign_id, target_id, COALESCE(location, ''), COALESCE(call_id, ''), call_index, status, duration, COALESCE(phone_number, ''), created_at
FROM calls
WHERE campaign_id = $1 AND created_at >= $2 AND created_at < $3
ORDER BY created_at
`
	rows, err := r.db.QueryContext(ctx, q, campaignID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CallRecord
	for rows.Next() {
		var c CallRecord
		if err := rows.Scan(
			&c.ID,
			&c.CampaignID,
			&c.TargetID,
			&c.Location,
			&c.ProviderCallID,
			&c.CallIndex,
			&c.Status,
			&c.DurationSeconds,
			&c.PhoneNumber,
			&c.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
