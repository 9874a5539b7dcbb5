package store

import (
	"sync"
	"time"
)

// labelEntry is one resolved place name and when it was resolved.
type labelEntry struct {
	Label      string
	ResolvedAt time.Time
}

// LabelStore is a concurrency-safe in-memory cache of resolved place names,
// keyed by coordinate key.
type LabelStore struct {
	mu sync.RWMutex

	// key: coordinate key, value: resolved label
	data map[string]labelEntry
	// insertion order, oldest first, for count-based eviction
	order []string

	// retention configuration
	maxEntries int           // max number of cached labels
	maxAge     time.Duration // optional max age for labels

	now func() time.Time
}

// NewLabelStore creates a new LabelStore with optional limits.
// If maxEntries is <= 0, it is treated as unlimited.
func NewLabelStore(maxEntries int, maxAge time.Duration) *LabelStore {
	return &LabelStore{
		data:       make(map[string]labelEntry),
		maxEntries: maxEntries,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// Save records a label for a coordinate key and enforces retention.
func (s *LabelStore) Save(key, label string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[key]; ok {
		s.removeFromOrder(key)
	}
	s.data[key] = labelEntry{Label: label, ResolvedAt: s.now()}
	s.order = append(s.order, key)

	// Enforce retention by count.
	if s.maxEntries > 0 && len(s.order) > s.maxEntries {
		over := len(s.order) - s.maxEntries
		for _, k := range s.order[:over] {
			delete(s.data, k)
		}
		s.order = s.order[over:]
	}
}

// Labels returns the live labels for the given keys; missing keys are omitted.
func (s *LabelStore) Labels(keys []string) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]string, len(keys))
	for _, k := range keys {
		if entry, ok := s.data[k]; ok && !s.expired(entry) {
			result[k] = entry.Label
		}
	}
	return result
}

// Len returns the number of cached entries, expired ones included.
func (s *LabelStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *LabelStore) expired(entry labelEntry) bool {
	return s.maxAge > 0 && s.now().Sub(entry.ResolvedAt) > s.maxAge
}

func (s *LabelStore) removeFromOrder(key string) {
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}
