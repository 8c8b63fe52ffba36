package campaign

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"callpower/internal/political"
	"callpower/pkg/utils"
)

// NOTE: This repository assumes the following tables exist:
// - campaigns
// - campaign_phone_numbers (campaign_id, number)
// - campaign_targets (campaign_id, target_id, position)
// - campaign_audio (campaign_id, key, file_key, file_url, text_to_speech)
// - targets (UNIQUE uid)
// - target_offices

// PostgresRepo implements Store over database/sql (pgx stdlib driver).
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) GetCampaign(ctx context.Context, id int64) (Campaign, error) {
	const q = `
SELECT id, name, target_ordering, include_custom, call_maximum
FROM campaigns
WHERE id = $1
`
	var c Campaign
	if err := r.db.QueryRowContext(ctx, q, id).Scan(
		&c.ID,
		&c.Name,
		&c.TargetOrdering,
		&c.IncludeCustom,
		&c.CallMaximum,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Campaign{}, ErrNotFound
		}
		return Campaign{}, err
	}
	if err := r.loadDetails(ctx, &c); err != nil {
		return Campaign{}, err
	}
	return c, nil
}

func (r *PostgresRepo) CampaignByNumber(ctx context.Context, number string) (Campaign, error) {
	const q = `
SELECT campaign_id
FROM campaign_phone_numbers
WHERE number = $1
ORDER BY campaign_id
LIMIT 1
`
	var id int64
	if err := r.db.QueryRowContext(ctx, q, number).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Campaign{}, ErrNotFound
		}
		return Campaign{}, err
	}
	return r.GetCampaign(ctx, id)
}

func (r *PostgresRepo) loadDetails(ctx context.Context, c *Campaign) error {
	numbers, err := r.db.QueryContext(ctx, `SELECT number FROM campaign_phone_numbers WHERE campaign_id = $1 ORDER BY number`, c.ID)
	if err != nil {
		return fmt.Errorf("campaign numbers: %w", err)
	}
	defer numbers.Close()
	for numbers.Next() {
		var n string
		if err := numbers.Scan(&n); err != nil {
			return err
		}
		c.PhoneNumbers = append(c.PhoneNumbers, n)
	}
	if err := numbers.Err(); err != nil {
		return err
	}

	targets, err := r.db.QueryContext(ctx, `SELECT target_id FROM campaign_targets WHERE campaign_id = $1 ORDER BY position`, c.ID)
	if err != nil {
		return fmt.Errorf("campaign targets: %w", err)
	}
	defer targets.Close()
	for targets.Next() {
		var id int64
		if err := targets.Scan(&id); err != nil {
			return err
		}
		c.CustomTargetIDs = append(c.CustomTargetIDs, id)
	}
	if err := targets.Err(); err != nil {
		return err
	}

	audio, err := r.db.QueryContext(ctx, `
SELECT key, COALESCE(file_key, ''), COALESCE(file_url, ''), COALESCE(text_to_speech, '')
FROM campaign_audio
WHERE campaign_id = $1
`, c.ID)
	if err != nil {
		return fmt.Errorf("campaign audio: %w", err)
	}
	defer audio.Close()
	c.Recordings = map[Slot]AudioRecording{}
	for audio.Next() {
		var a AudioRecording
		if err := audio.Scan(&a.Key, &a.FileKey, &a.FileURL, &a.TextToSpeech); err != nil {
			return err
		}
		c.Recordings[a.Key] = a
	}
	return audio.Err()
}

func (r *PostgresRepo) GetTarget(ctx context.Context, id int64) (Target, error) {
	const q = `
SELECT id, uid, name, title, COALESCE(number, '')
FROM targets
WHERE id = $1
`
	var t Target
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&t.ID, &t.UID, &t.Name, &t.Title, &t.Number); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Target{}, ErrNotFound
		}
		return Target{}, err
	}
	return t, nil
}

// UpsertTarget writes an imported target and replaces its offices in one
// transaction. An absent number is stored as NULL.
func (r *PostgresRepo) UpsertTarget(ctx context.Context, t political.Target, offices []political.Office) (int64, error) {
	var id int64
	err := utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		var number sql.NullString
		if t.HasNumber {
			number = sql.NullString{String: t.Number, Valid: true}
		}
		const upsert = `
INSERT INTO targets (uid, name, title, number)
VALUES ($1,$2,$3,$4)
ON CONFLICT (uid)
DO UPDATE SET name = EXCLUDED.name, title = EXCLUDED.title, number = EXCLUDED.number
RETURNING id
`
		if err := tx.QueryRowContext(ctx, upsert, t.UID, t.Name, t.Title, number).Scan(&id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM target_offices WHERE target_id = $1`, id); err != nil {
			return err
		}
		const insertOffice = `
INSERT INTO target_offices (target_id, uid, name, address, number, location)
VALUES ($1,$2,$3,$4,$5,$6)
`
		for _, o := range offices {
			if _, err := tx.ExecContext(ctx, insertOffice, id, o.UID, o.Name, o.Address, o.Number, o.Location); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("upsert target %q: %w", t.UID, err)
	}
	return id, nil
}
