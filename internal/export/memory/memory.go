// Package memory keeps exported snapshots in process memory. Used in
// tests and local development where no spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"runway/internal/core"
	"runway/internal/export"
)

type Store struct {
	mu        sync.Mutex
	snapshots [][]core.WeeklyForecast
}

var _ export.ForecastExporter = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// Export stores a copy of the snapshot and returns a synthetic
// reference.
func (s *Store) Export(_ context.Context, weeks []core.WeeklyForecast) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := append([]core.WeeklyForecast(nil), weeks...)
	s.snapshots = append(s.snapshots, snapshot)
	return fmt.Sprintf("mem:%d", len(s.snapshots)), nil
}

// Latest returns the most recent snapshot, or false when nothing has
// been exported yet.
func (s *Store) Latest() ([]core.WeeklyForecast, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.snapshots) == 0 {
		return nil, false
	}
	return s.snapshots[len(s.snapshots)-1], true
}

// Count returns how many snapshots have been exported.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots)
}
