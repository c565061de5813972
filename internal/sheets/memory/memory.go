package memory

import (
	"context"
	"fmt"
	"sync"

	"piggybank/internal/core"
)

// Store is an in-memory savings report used in tests and when no Google
// credentials are configured. It keeps one entry per piggy-bank id, like the
// real sheet keeps one row.
type Store struct {
	mu    sync.Mutex
	items map[int64]core.PiggyBank
	order []int64
}

func New() *Store {
	return &Store{items: make(map[int64]core.PiggyBank)}
}

// Upsert stores the piggy bank and returns a synthetic row reference.
func (s *Store) Upsert(_ context.Context, p core.PiggyBank) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[p.ID]; !ok {
		s.order = append(s.order, p.ID)
	}
	s.items[p.ID] = p
	return fmt.Sprintf("mem:%d", p.ID), nil
}

// Remove drops the piggy bank from the report. Unknown ids are not an error:
// a delete that raced a never-synced create has nothing to remove.
func (s *Store) Remove(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return nil
	}
	delete(s.items, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// List returns the report contents in insertion order.
func (s *Store) List() []core.PiggyBank {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.PiggyBank, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out
}
