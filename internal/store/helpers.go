package store

import (
	"database/sql"
	"errors"
	"time"
)

const recordColumns = "source_path, output_path, output_width, output_height, output_codec, status, error_message, source_size, source_modified_at, backend, created_at, updated_at"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		sourcePath   string
		outputPath   sql.NullString
		outputWidth  sql.NullInt64
		outputHeight sql.NullInt64
		outputCodec  sql.NullString
		statusStr    string
		errorMessage sql.NullString
		sourceSize   sql.NullInt64
		modifiedRaw  sql.NullString
		backend      sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&sourcePath,
		&outputPath,
		&outputWidth,
		&outputHeight,
		&outputCodec,
		&statusStr,
		&errorMessage,
		&sourceSize,
		&modifiedRaw,
		&backend,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	record := &Record{
		SourcePath:   sourcePath,
		OutputPath:   outputPath.String,
		OutputWidth:  int(outputWidth.Int64),
		OutputHeight: int(outputHeight.Int64),
		OutputCodec:  outputCodec.String,
		Status:       Status(statusStr),
		ErrorMessage: errorMessage.String,
		SourceSize:   sourceSize.Int64,
		Backend:      backend.String,
	}

	if modifiedRaw.Valid {
		if modified, err := parseTimeString(modifiedRaw.String); err == nil {
			record.SourceModifiedAt = modified
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		record.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		record.UpdatedAt = updated
	}
	return record, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return timeValue(value)
}

func timeValue(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
