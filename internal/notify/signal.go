package notify

import "sync"

// Signal is a multi-subscriber fan-out for one event type. Subscribers are
// invoked synchronously in registration order.
type Signal[T any] struct {
	mu     sync.Mutex
	nextID int
	order  []int
	subs   map[int]func(T)
}

func NewSignal[T any]() *Signal[T] {
	return &Signal[T]{subs: make(map[int]func(T))}
}

// Subscribe registers fn and returns a handle for Unsubscribe.
func (s *Signal[T]) Subscribe(fn func(T)) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.order = append(s.order, id)
	return id
}

// Unsubscribe removes exactly the subscriber registered under id.
func (s *Signal[T]) Unsubscribe(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[id]; !ok {
		return
	}
	delete(s.subs, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *Signal[T]) UnsubscribeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = make(map[int]func(T))
	s.order = nil
}

// Notify invokes every current subscriber with v. The subscriber list is
// snapshotted first so a handler may unsubscribe itself without corrupting
// iteration.
func (s *Signal[T]) Notify(v T) {
	s.mu.Lock()
	fns := make([]func(T), 0, len(s.order))
	for _, id := range s.order {
		if fn, ok := s.subs[id]; ok {
			fns = append(fns, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

func (s *Signal[T]) HasSubscribers() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs) > 0
}
