package alert

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Store owns the alert list and its persistence. Every mutation rewrites the
// full list to disk via a temp-file rename, so a crash mid-write never leaves
// a corrupt document. All operations are safe for concurrent use; the mutex
// serializes read-modify-write so ids stay unique and updates are never lost.
type Store struct {
	mu     sync.Mutex
	path   string
	alerts []*Alert
}

// Statistics summarizes the alert list.
type Statistics struct {
	ActiveCount int              `json:"active_count"`
	TotalCount  int              `json:"total_count"`
	BySeverity  map[Severity]int `json:"by_severity"`
}

// Open creates a Store backed by the JSON document at path, loading any
// existing alerts. A missing or unreadable document is not an error: the
// store starts empty and overwrites it on the next mutation.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating alert store directory: %w", err)
	}

	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("alert store unreadable, starting empty", "path", path, "error", err)
		}
		return s, nil
	}

	if err := json.Unmarshal(data, &s.alerts); err != nil {
		slog.Warn("alert store corrupt, starting empty", "path", path, "error", err)
		s.alerts = nil
	}
	return s, nil
}

// save writes the full alert list to disk. Callers must hold s.mu.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.alerts, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding alerts: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o640); err != nil {
		return fmt.Errorf("writing alert store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing alert store: %w", err)
	}
	return nil
}

// Append assigns ids to the new alerts, adds them to the list, and persists.
// Ids continue contiguously from the current total, in slice order.
func (s *Store) Append(alerts []*Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.alerts)
	for i, a := range alerts {
		a.ID = n + i + 1
	}
	s.alerts = append(s.alerts, alerts...)
	if err := s.save(); err != nil {
		// Keep memory and disk in sync: undo the append and free the ids.
		s.alerts = s.alerts[:n]
		for _, a := range alerts {
			a.ID = 0
		}
		return err
	}
	return nil
}

// Recent returns up to limit alerts sorted by timestamp descending.
// A non-positive limit means the default of 10.
func (s *Store) Recent(limit int) []*Alert {
	if limit <= 0 {
		limit = 10
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sorted := make([]*Alert, len(s.alerts))
	for i, a := range s.alerts {
		cp := *a
		sorted[i] = &cp
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})

	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// Active returns all alerts whose status is active, in insertion order.
func (s *Store) Active() []*Alert {
	s.mu.Lock()
	defer s.mu.Unlock()

	var active []*Alert
	for _, a := range s.alerts {
		if a.Status == StatusActive {
			cp := *a
			active = append(active, &cp)
		}
	}
	return active
}

// MarkRead sets read=true on the alert with the given id and persists.
// Returns false if no such alert exists. Idempotent.
func (s *Store) MarkRead(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.alerts {
		if a.ID == id {
			a.Read = true
			if err := s.save(); err != nil {
				slog.Error("failed to persist alert store", "error", err)
			}
			return true
		}
	}
	return false
}

// Dismiss sets status=dismissed on the alert with the given id and persists.
// Returns false if no such alert exists. Idempotent: dismissing an
// already-dismissed alert succeeds.
func (s *Store) Dismiss(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.alerts {
		if a.ID == id {
			a.Status = StatusDismissed
			if err := s.save(); err != nil {
				slog.Error("failed to persist alert store", "error", err)
			}
			return true
		}
	}
	return false
}

// Stats returns counts of active, total, and per-severity alerts.
func (s *Store) Stats() Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Statistics{
		TotalCount: len(s.alerts),
		BySeverity: make(map[Severity]int),
	}
	for _, a := range s.alerts {
		if a.Status == StatusActive {
			stats.ActiveCount++
		}
		stats.BySeverity[a.Severity]++
	}
	return stats
}

// Count returns the total number of alerts ever created.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alerts)
}
