package cart

import "sync"

// Store holds one cart per session in memory.
type Store struct {
	mu    sync.Mutex
	carts map[string]*Cart
}

func NewStore() *Store {
	return &Store{carts: map[string]*Cart{}}
}

// Get returns a copy of the session cart, empty if none exists yet.
func (s *Store) Get(sessionID string) *Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.carts[sessionID]; ok {
		return c.Clone()
	}
	return New()
}

// Update applies fn to the session cart and stores the result only when fn
// succeeds. It returns a copy of the cart after the update.
func (s *Store) Update(sessionID string, fn func(*Cart) error) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.carts[sessionID]
	if !ok {
		cur = New()
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return cur.Clone(), err
	}
	s.carts[sessionID] = next
	return next.Clone(), nil
}

func (s *Store) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, sessionID)
}
