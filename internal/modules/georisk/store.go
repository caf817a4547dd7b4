package georisk

import "sync"

// RecentStore keeps the most recent pipeline results in memory, queryable
// by scan id. When full, adding a result evicts the oldest one.
type RecentStore struct {
	mu    sync.RWMutex
	cap   int
	order []string // scan ids, oldest first
	byID  map[string]*DetailedResult
}

// NewRecentStore creates a store holding up to capacity results.
func NewRecentStore(capacity int) *RecentStore {
	if capacity <= 0 {
		capacity = 1
	}
	return &RecentStore{
		cap:  capacity,
		byID: make(map[string]*DetailedResult, capacity),
	}
}

// Add stores a result, evicting the oldest when the store is full.
func (s *RecentStore) Add(result *DetailedResult) {
	if result == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[result.ScanID]; !exists {
		if len(s.order) >= s.cap {
			oldest := s.order[0]
			s.order = s.order[1:]
			delete(s.byID, oldest)
		}
		s.order = append(s.order, result.ScanID)
	}
	s.byID[result.ScanID] = result
}

// Get returns the result for a scan id, or false when it is not held.
func (s *RecentStore) Get(scanID string) (*DetailedResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.byID[scanID]
	return result, ok
}

// List returns up to limit results, newest first. A non-positive limit
// defaults to 10.
func (s *RecentStore) List(limit int) []*DetailedResult {
	if limit <= 0 {
		limit = 10
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit > len(s.order) {
		limit = len(s.order)
	}
	results := make([]*DetailedResult, 0, limit)
	for i := len(s.order) - 1; i >= 0 && len(results) < limit; i-- {
		results = append(results, s.byID[s.order[i]])
	}
	return results
}

// Len returns the number of results currently held.
func (s *RecentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.order)
}
