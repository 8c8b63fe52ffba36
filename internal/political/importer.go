package political

import (
	"context"
	"errors"
	"fmt"
)

// KeyedRecord is one upstream record with its stored identifier.
type KeyedRecord struct {
	Key  string `json:"key"`
	Data Record `json:"data"`
}

// TargetWriter persists one canonical target with its offices.
type TargetWriter interface {
	UpsertTarget(ctx context.Context, t Target, offices []Office) (int64, error)
}

type RecordError struct {
	Key string
	Err error
}

func (e RecordError) Error() string { return fmt.Sprintf("record %q: %v", e.Key, e.Err) }

func (e RecordError) Unwrap() error { return e.Err }

type ImportResult struct {
	SourceKey string        `json:"source_key"`
	Supported bool          `json:"supported"`
	Imported  int           `json:"imported"`
	Rejected  int           `json:"rejected"`
	TargetIDs []int64       `json:"target_ids"`
	Errors    []RecordError `json:"-"`
}

// Err joins every per-record error, or nil.
func (r ImportResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Errors))
	for _, e := range r.Errors {
		errs = append(errs, e)
	}
	return errors.Join(errs...)
}

// Importer adapts and stores upstream records. A record that fails to
// translate or store is rejected on its own; the rest of the batch proceeds.
type Importer struct {
	Writer TargetWriter
}

func NewImporter(w TargetWriter) *Importer { return &Importer{Writer: w} }

func (im *Importer) Import(ctx context.Context, sourceKey string, records []KeyedRecord) (ImportResult, error) {
	if im.Writer == nil {
		return ImportResult{}, errors.New("political: target writer not configured")
	}
	adapter := SelectAdapter(sourceKey)
	res := ImportResult{SourceKey: sourceKey, Supported: Supported(sourceKey)}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		target, offices, err := Translate(adapter, rec.Data)
		if err != nil {
			res.Rejected++
			res.Errors = append(res.Errors, RecordError{Key: rec.Key, Err: err})
			continue
		}
		if target.UID == "" {
			target.UID, _ = adapter.Key(rec.Key)
		}
		id, err := im.Writer.UpsertTarget(ctx, target, offices)
		if err != nil {
			res.Rejected++
			res.Errors = append(res.Errors, RecordError{Key: rec.Key, Err: err})
			continue
		}
		res.Imported++
		res.TargetIDs = append(res.TargetIDs, id)
	}
	return res, nil
}
