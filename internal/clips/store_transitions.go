package clips

import (
	"context"
	"fmt"
	"time"
)

// MarkExtracting moves a job into the extracting state and clears any stale
// progress from a previous attempt.
func (s *Store) MarkExtracting(ctx context.Context, id int64) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE clips
         SET status = ?, progress_stage = NULL, progress_percent = 0, updated_at = ?
         WHERE id = ?`,
		StatusExtracting,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("mark extracting: %w", err)
	}
	return nil
}

// SetProgress records the current stage and completion percentage.
func (s *Store) SetProgress(ctx context.Context, id int64, stage string, percent float64) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE clips SET progress_stage = ?, progress_percent = ?, updated_at = ? WHERE id = ?`,
		nullableString(stage),
		percent,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("set progress: %w", err)
	}
	return nil
}

// MarkCompleted finalizes a job with its artifact details.
func (s *Store) MarkCompleted(ctx context.Context, id int64, info CompletionInfo) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE clips
         SET status = ?, output_path = ?, size_bytes = ?, actual_duration_ms = ?,
             segment_count = ?, progress_percent = 100, error_message = NULL,
             completed_at = ?, updated_at = ?
         WHERE id = ?`,
		StatusCompleted,
		nullableString(info.OutputPath),
		info.SizeBytes,
		info.ActualDuration.Milliseconds(),
		info.SegmentCount,
		now,
		now,
		id,
	); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}

// MarkFailed finalizes a job with an error message.
func (s *Store) MarkFailed(ctx context.Context, id int64, message string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE clips
         SET status = ?, error_message = ?, completed_at = ?, updated_at = ?
         WHERE id = ?`,
		StatusFailed,
		nullableString(message),
		now,
		now,
		id,
	); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// FailInterrupted fails jobs left pending or extracting by an earlier
// process. The buffer window they referenced is gone, so they cannot resume.
func (s *Store) FailInterrupted(ctx context.Context) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE clips
         SET status = ?, error_message = ?, completed_at = ?, updated_at = ?
         WHERE status IN (?, ?)`,
		StatusFailed,
		InterruptedReason,
		now,
		now,
		StatusPending,
		StatusExtracting,
	)
	if err != nil {
		return 0, fmt.Errorf("fail interrupted clips: %w", err)
	}
	return res.RowsAffected()
}

// PruneHistory deletes finished jobs beyond the newest keep rows. Jobs that
// are still pending or extracting are never pruned.
func (s *Store) PruneHistory(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM clips
         WHERE status IN (?, ?)
           AND id NOT IN (
               SELECT id FROM clips WHERE status IN (?, ?) ORDER BY id DESC LIMIT ?
           )`,
		StatusCompleted,
		StatusFailed,
		StatusCompleted,
		StatusFailed,
		keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune clip history: %w", err)
	}
	return res.RowsAffected()
}
