// Package connectivity reports whether the remote store is reachable and
// notifies subscribers when that changes.
package connectivity

import (
	"context"
	"sync"
)

// Oracle is the reachability source the reconciler consults.
type Oracle interface {
	// IsConnected returns the last known state without blocking on the
	// network.
	IsConnected(ctx context.Context) bool
	// Subscribe registers fn for state transitions. fn runs on the
	// notifying goroutine and must not block.
	Subscribe(fn func(online bool)) (unsubscribe func())
}

// state holds the current value and the subscribers. Both oracles embed it.
type state struct {
	mu     sync.Mutex
	online bool
	subs   map[int]func(bool)
	nextID int
}

func (s *state) IsConnected(context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

func (s *state) Subscribe(fn func(bool)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs == nil {
		s.subs = make(map[int]func(bool))
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// set stores online and notifies subscribers if it changed. It reports
// whether a transition happened.
func (s *state) set(online bool) bool {
	s.mu.Lock()
	if s.online == online {
		s.mu.Unlock()
		return false
	}
	s.online = online
	fns := make([]func(bool), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(online)
	}
	return true
}

// Manual is an Oracle switched by hand: the CLI's forced offline mode and
// tests use it.
type Manual struct {
	state
}

func NewManual(online bool) *Manual {
	m := &Manual{}
	m.online = online
	return m
}

// Set changes the state, notifying subscribers on a transition.
func (m *Manual) Set(online bool) {
	m.set(online)
}
