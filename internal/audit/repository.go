package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo writes to audit_events, which only ever receives INSERTs.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (id, type, actor_user_id, actor_role, ip_address, campaign_id, source_key, message, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`
	var campaignID sql.NullInt64
	if e.CampaignID > 0 {
		campaignID = sql.NullInt64{Int64: e.CampaignID, Valid: true}
	}
	var metadata sql.NullString
	if e.Metadata != "" {
		metadata = sql.NullString{String: e.Metadata, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, q,
		e.ID, string(e.Type), e.ActorUserID, e.ActorRole, e.IPAddress,
		campaignID, e.SourceKey, e.Message, metadata, e.CreatedAt,
	)
	return err
}
