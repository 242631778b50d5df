// Package broker fans document changes out to the Watch streams of the
// changed collection.
package broker

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/fitsync/internal/logging"
	"github.com/dmitrijs2005/fitsync/internal/server/models"
)

// Change is one committed write or delete.
type Change struct {
	Document *models.Document
	Deleted  bool
}

// Subscription receives the changes of one collection. Its channel is closed
// by Close, by Broker.Close, or when the subscriber falls behind; Lagged
// tells the last case apart.
type Subscription struct {
	collection string
	ch         chan Change
	broker     *Broker

	mu     sync.Mutex
	lagged bool
	closed bool
}

func (s *Subscription) Changes() <-chan Change { return s.ch }

func (s *Subscription) Lagged() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lagged
}

// Close unsubscribes. It is safe to call more than once.
func (s *Subscription) Close() {
	s.broker.remove(s, false)
}

func (s *Subscription) shut(lagged bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.lagged = lagged
	close(s.ch)
}

type Broker struct {
	buffer int
	log    logging.Logger

	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	closed bool
}

// New returns a broker whose subscribers may queue up to buffer changes.
func New(buffer int, l logging.Logger) *Broker {
	if buffer <= 0 {
		buffer = 1
	}
	return &Broker{
		buffer: buffer,
		log:    l.With("module", "broker"),
		subs:   make(map[string]map[*Subscription]struct{}),
	}
}

func (b *Broker) Subscribe(collection string) *Subscription {
	s := &Subscription{collection: collection, ch: make(chan Change, b.buffer), broker: b}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		s.shut(false)
		return s
	}
	set, ok := b.subs[collection]
	if !ok {
		set = make(map[*Subscription]struct{})
		b.subs[collection] = set
	}
	set[s] = struct{}{}
	return s
}

func (b *Broker) remove(s *Subscription, lagged bool) {
	b.mu.Lock()
	if set, ok := b.subs[s.collection]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(b.subs, s.collection)
		}
	}
	b.mu.Unlock()
	s.shut(lagged)
}

// Publish hands c to every subscriber of collection without blocking. A
// subscriber whose buffer is full is disconnected rather than skipped, so
// no stream silently misses a change.
func (b *Broker) Publish(ctx context.Context, collection string, c Change) {
	b.mu.RLock()
	var lagging []*Subscription
	for s := range b.subs[collection] {
		select {
		case s.ch <- c:
		default:
			lagging = append(lagging, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range lagging {
		b.log.Warn(ctx, "subscriber lagging, disconnecting", "collection", collection)
		b.remove(s, true)
	}
}

// Subscribers returns the number of live subscriptions to collection.
func (b *Broker) Subscribers(collection string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[collection])
}

// Close ends every subscription. Later subscriptions start closed.
func (b *Broker) Close() {
	b.mu.Lock()
	all := b.subs
	b.subs = make(map[string]map[*Subscription]struct{})
	b.closed = true
	b.mu.Unlock()

	for _, set := range all {
		for s := range set {
			s.shut(false)
		}
	}
}
