package services

import "sync/atomic"

// Stats counts crawl progress. It is safe to read while a crawl runs.
type Stats struct {
	repositories atomic.Int64
	commits      atomic.Int64
	rows         atomic.Int64
	skipped      atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats
type StatsSnapshot struct {
	Repositories int64 `json:"repositories"`
	Commits      int64 `json:"commits"`
	Rows         int64 `json:"rows"`
	Skipped      int64 `json:"skipped"`
}

// Snapshot returns the current counters
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Repositories: s.repositories.Load(),
		Commits:      s.commits.Load(),
		Rows:         s.rows.Load(),
		Skipped:      s.skipped.Load(),
	}
}
