package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// Object is one raw API resource as cached: the numeric id, the object
// type, and the full JSON envelope exactly as the API returned it.
type Object struct {
	ID     int64
	Object string
	Data   json.RawMessage
}

// LastUpdatedAt returns the newest data_updated_at timestamp in a
// collection, used as the incremental-sync watermark. ok is false for an
// empty collection.
func (s *Store) LastUpdatedAt(ctx context.Context, collection string) (string, bool, error) {
	if !validCollection(collection) {
		return "", false, fmt.Errorf("unknown collection %q", collection)
	}
	var max sql.NullString
	query := fmt.Sprintf(`SELECT max(json_extract(data, '$.data_updated_at')) FROM %s`, collection)
	if err := s.db.GetContext(ctx, &max, query); err != nil {
		return "", false, fmt.Errorf("select last update for %s: %w", collection, err)
	}
	if !max.Valid {
		return "", false, nil
	}
	return max.String, true, nil
}

// UpsertObjects inserts or replaces the given resources by id, all in
// one transaction. Replaying a sync is idempotent.
func (s *Store) UpsertObjects(ctx context.Context, collection string, objs []Object) error {
	if !validCollection(collection) {
		return fmt.Errorf("unknown collection %q", collection)
	}
	if len(objs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`INSERT OR REPLACE INTO %s (id, object, data) VALUES (?, ?, ?)`, collection)
	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, obj := range objs {
		if _, err := stmt.ExecContext(ctx, obj.ID, obj.Object, string(obj.Data)); err != nil {
			return fmt.Errorf("upsert %s %d: %w", collection, obj.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}
