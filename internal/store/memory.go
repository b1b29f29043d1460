// Package store keeps computed air-quality snapshots in memory for the HTTP
// layer. Persistence is deliberately out of scope; the service recomputes
// its state within one fetch interval of a restart.
package store

import (
	"errors"
	"sync"
	"time"

	"github.com/airlens/aqi-service/internal/domain"
)

// ErrNotFound is returned when no snapshot exists for a location.
var ErrNotFound = errors.New("no air-quality data for location")

// MemoryStore is a concurrency-safe in-memory snapshot history keyed by
// location.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]domain.Snapshot

	maxHistory int           // max snapshots per location (<= 0 means unlimited)
	maxAge     time.Duration // max snapshot age (<= 0 means unlimited)
}

// NewMemoryStore creates a MemoryStore with the given retention limits.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string][]domain.Snapshot),
		maxHistory: maxHistory,
		maxAge:     maxAge,
	}
}

// Save appends a snapshot for its location and enforces retention.
func (s *MemoryStore) Save(snapshot domain.Snapshot) {
	key := snapshot.Location.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.data[key], snapshot)

	if s.maxHistory > 0 && len(history) > s.maxHistory {
		history = history[len(history)-s.maxHistory:]
	}

	if s.maxAge > 0 {
		cutoff := snapshot.FetchedAt.Add(-s.maxAge)
		i := 0
		for ; i < len(history); i++ {
			if !history[i].FetchedAt.Before(cutoff) {
				break
			}
		}
		history = history[i:]
	}

	s.data[key] = history
}

// Latest returns the most recent snapshot for a location key.
func (s *MemoryStore) Latest(key string) (domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.data[key]
	if len(history) == 0 {
		return domain.Snapshot{}, ErrNotFound
	}
	return history[len(history)-1], nil
}

// History returns all snapshots for a location key fetched at or after the
// given time, oldest first.
func (s *MemoryStore) History(key string, since time.Time) ([]domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.data[key]
	if len(history) == 0 {
		return nil, ErrNotFound
	}

	var result []domain.Snapshot
	for _, snap := range history {
		if !snap.FetchedAt.Before(since) {
			result = append(result, snap)
		}
	}
	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}
