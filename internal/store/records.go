package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Upsert inserts or updates the record keyed by its source path. Insert and
// conflict update run as one statement, so concurrent writers cannot produce
// a second row for the same path.
func (s *Store) Upsert(ctx context.Context, record *Record) error {
	if record == nil {
		return errors.New("record is nil")
	}
	if record.SourcePath == "" {
		return errors.New("record source path is empty")
	}
	if !record.Status.Valid() {
		return fmt.Errorf("record status %q is not valid", record.Status)
	}

	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO transcodings (`+recordColumns+`)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(source_path) DO UPDATE SET
             output_path = excluded.output_path,
             output_width = excluded.output_width,
             output_height = excluded.output_height,
             output_codec = excluded.output_codec,
             status = excluded.status,
             error_message = excluded.error_message,
             source_size = excluded.source_size,
             source_modified_at = excluded.source_modified_at,
             backend = excluded.backend,
             updated_at = excluded.updated_at`,
		record.SourcePath,
		record.OutputPath,
		record.OutputWidth,
		record.OutputHeight,
		record.OutputCodec,
		record.Status,
		nullableString(record.ErrorMessage),
		record.SourceSize,
		nullableTime(record.SourceModifiedAt),
		record.Backend,
		timeValue(record.CreatedAt),
		timeValue(record.UpdatedAt),
	); err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

// Get fetches the record for a source path, or nil when none exists.
func (s *Store) Get(ctx context.Context, sourcePath string) (*Record, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM transcodings WHERE source_path = ?`, sourcePath)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return record, nil
}

// All returns every record ordered by source path.
func (s *Store) All(ctx context.Context) ([]*Record, error) {
	return s.ByStatus(ctx)
}

// ByStatus returns records matching any of the given statuses ordered by
// source path, or all records when no status is provided.
func (s *Store) ByStatus(ctx context.Context, statuses ...Status) ([]*Record, error) {
	ctx = ensureContext(ctx)

	var (
		rows *sql.Rows
		err  error
	)
	baseQuery := `SELECT ` + recordColumns + ` FROM transcodings`
	orderClause := ` ORDER BY source_path`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE status IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
