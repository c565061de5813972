package auth

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process SessionStore with TTL handling and
// size-based eviction of the least recently used session. It backs tests
// and single-node deployments; production uses the SQLite-backed store.
type MemoryStore struct {
	mu      sync.Mutex
	maxSize int
	items   map[string]*list.Element
	lru     *list.List
}

type memEntry struct {
	token   string
	session Session
}

func NewMemoryStore(maxSize int) *MemoryStore {
	return &MemoryStore{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
	}
}

func (s *MemoryStore) Put(_ context.Context, sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, exists := s.items[sess.Token]; exists {
		elem.Value = &memEntry{token: sess.Token, session: sess}
		s.lru.MoveToFront(elem)
		return nil
	}

	elem := s.lru.PushFront(&memEntry{token: sess.Token, session: sess})
	s.items[sess.Token] = elem

	if s.maxSize > 0 && s.lru.Len() > s.maxSize {
		if oldest := s.lru.Back(); oldest != nil {
			s.removeElement(oldest)
		}
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, token string) (Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, exists := s.items[token]
	if !exists {
		return Session{}, false, nil
	}
	entry := elem.Value.(*memEntry)
	if !entry.session.ExpiresAt.IsZero() && time.Now().After(entry.session.ExpiresAt) {
		s.removeElement(elem)
		return Session{}, false, nil
	}
	s.lru.MoveToFront(elem)
	return entry.session, true, nil
}

func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, exists := s.items[token]; exists {
		s.removeElement(elem)
	}
	return nil
}

// CleanExpired removes all expired sessions and reports how many went.
func (s *MemoryStore) CleanExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var toRemove []*list.Element
	for elem := s.lru.Front(); elem != nil; elem = elem.Next() {
		entry := elem.Value.(*memEntry)
		if !entry.session.ExpiresAt.IsZero() && now.After(entry.session.ExpiresAt) {
			toRemove = append(toRemove, elem)
		}
	}
	for _, elem := range toRemove {
		s.removeElement(elem)
	}
	return len(toRemove)
}

// Size returns the number of live entries, expired ones included until the
// next sweep.
func (s *MemoryStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len()
}

func (s *MemoryStore) removeElement(elem *list.Element) {
	entry := elem.Value.(*memEntry)
	delete(s.items, entry.token)
	s.lru.Remove(elem)
}
