package session

import (
	"maps"
	"sync"
)

// Session is a visitor's key-value bag, loaded and saved once per request.
type Session struct {
	mu       sync.RWMutex
	id       string
	values   map[string][]byte
	modified bool
	isNew    bool
}

func New(id string) *Session {
	return &Session{id: id, values: make(map[string][]byte), isNew: true}
}

func (s *Session) ID() string { return s.id }

func (s *Session) IsNew() bool { return s.isNew }

func (s *Session) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *Session) Set(key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	s.modified = true
}

func (s *Session) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	s.modified = true
}

func (s *Session) MarkModified() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modified = true
}

func (s *Session) Modified() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modified
}

func (s *Session) snapshot() map[string][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.values)
}
