package puzzle

import "sync"

// Store tracks which puzzle a user is currently attempting. Entries are
// created on selection, overwritten on re-selection and removed on solve;
// nothing survives a restart.
type Store interface {
	Get(userID string) (puzzleID string, ok bool)
	Set(userID, puzzleID string)
	Clear(userID string)
}

// MemoryStore is the in-process Store. The discord dispatcher runs handlers
// on multiple goroutines, so access is synchronized.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]string)}
}

func (s *MemoryStore) Get(userID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	puzzleID, ok := s.sessions[userID]
	return puzzleID, ok
}

func (s *MemoryStore) Set(userID, puzzleID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = puzzleID
}

func (s *MemoryStore) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}
