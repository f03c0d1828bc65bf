package clips

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Create inserts a pending clip job and returns the stored row.
func (s *Store) Create(ctx context.Context, req NewClip) (*Clip, error) {
	requestID := strings.TrimSpace(req.RequestID)
	if requestID == "" {
		return nil, errors.New("request id required")
	}
	format := strings.TrimSpace(req.Format)
	if format == "" {
		return nil, errors.New("format required")
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO clips (
            request_id, source, session_id, title, start_ago_seconds,
            duration_seconds, format, output_path, status,
            progress_stage, progress_percent, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		requestID,
		nullableString(req.Source),
		nullableString(req.SessionID),
		nullableString(req.Title),
		req.StartAgo.Seconds(),
		req.Duration.Seconds(),
		format,
		nullableString(req.OutputPath),
		StatusPending,
		nil,
		0.0,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert clip: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a clip job by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Clip, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+clipColumns+` FROM clips WHERE id = ?`, id)
	clip, err := scanClip(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get clip: %w", err)
	}
	return clip, nil
}

// GetByRequestID fetches a clip job by its request identifier.
func (s *Store) GetByRequestID(ctx context.Context, requestID string) (*Clip, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+clipColumns+` FROM clips WHERE request_id = ?`, requestID)
	clip, err := scanClip(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get clip by request id: %w", err)
	}
	return clip, nil
}

// List returns clip jobs newest first, optionally filtered by status. A
// limit <= 0 returns all rows.
func (s *Store) List(ctx context.Context, limit int, statuses ...Status) ([]*Clip, error) {
	query := `SELECT ` + clipColumns + ` FROM clips`
	args := make([]any, 0, len(statuses)+1)
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list clips: %w", err)
	}
	defer rows.Close()

	var out []*Clip
	for rows.Next() {
		clip, err := scanClip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, clip)
	}
	return out, rows.Err()
}

// Remove deletes a clip job by identifier.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM clips WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete clip: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

const clipColumns = "id, request_id, source, session_id, title, start_ago_seconds, duration_seconds, format, output_path, status, progress_stage, progress_percent, error_message, size_bytes, actual_duration_ms, segment_count, created_at, updated_at, completed_at"

func scanClip(scanner interface{ Scan(dest ...any) error }) (*Clip, error) {
	var (
		id              int64
		requestID       string
		source          sql.NullString
		sessionID       sql.NullString
		title           sql.NullString
		startAgoSecs    float64
		durationSecs    float64
		format          string
		outputPath      sql.NullString
		statusStr       string
		progressStage   sql.NullString
		progressPercent sql.NullFloat64
		errorMessage    sql.NullString
		sizeBytes       sql.NullInt64
		actualMs        sql.NullInt64
		segmentCount    sql.NullInt64
		createdRaw      sql.NullString
		updatedRaw      sql.NullString
		completedRaw    sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&requestID,
		&source,
		&sessionID,
		&title,
		&startAgoSecs,
		&durationSecs,
		&format,
		&outputPath,
		&statusStr,
		&progressStage,
		&progressPercent,
		&errorMessage,
		&sizeBytes,
		&actualMs,
		&segmentCount,
		&createdRaw,
		&updatedRaw,
		&completedRaw,
	); err != nil {
		return nil, err
	}

	clip := &Clip{
		ID:              id,
		RequestID:       requestID,
		Source:          source.String,
		SessionID:       sessionID.String,
		Title:           title.String,
		StartAgo:        secondsToDuration(startAgoSecs),
		Duration:        secondsToDuration(durationSecs),
		Format:          format,
		OutputPath:      outputPath.String,
		Status:          Status(statusStr),
		ProgressStage:   progressStage.String,
		ProgressPercent: progressPercent.Float64,
		ErrorMessage:    errorMessage.String,
		SizeBytes:       sizeBytes.Int64,
		ActualDuration:  time.Duration(actualMs.Int64) * time.Millisecond,
		SegmentCount:    int(segmentCount.Int64),
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		clip.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		clip.UpdatedAt = updated
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			clip.CompletedAt = &completed
		}
	}
	return clip, nil
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
