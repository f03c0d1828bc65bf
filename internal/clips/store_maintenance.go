package clips

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Stats returns a count of clip jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM clips GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("clip stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// CheckHealth returns diagnostic information about the clip database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{Path: s.path}

	if s.path == "" {
		return health, errors.New("clip database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat clip database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("clip database path %q is a directory", s.path)
	}
	health.Exists = true

	if s.db == nil {
		return health, errors.New("clip database connection unavailable")
	}

	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping clip database: %w", err)
	}
	health.Readable = true

	row := s.db.QueryRowContext(connCtx, `SELECT COUNT(*) FROM clips`)
	if err := row.Scan(&health.TotalClips); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("count clips: %w", err)
	}

	row = s.db.QueryRowContext(connCtx, "PRAGMA integrity_check")
	var integrity string
	if err := row.Scan(&integrity); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrity, "ok")

	return health, nil
}
