package store

import "sync"

// Watch is a handle on a live snapshot feed. Each value received on
// Updates() is a complete ordered snapshot of one collection. Delivery is
// coalescing: a consumer that falls behind skips intermediate snapshots and
// observes the latest one, but never sees snapshots out of order.
type Watch[T any] struct {
	updates chan T

	mu         sync.Mutex
	closed     bool
	unregister func()
}

// Updates returns the snapshot channel. It is closed by Close.
func (w *Watch[T]) Updates() <-chan T {
	return w.updates
}

// Close unsubscribes the watch and closes the updates channel. Safe to call
// more than once.
func (w *Watch[T]) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.updates)
	w.mu.Unlock()

	if w.unregister != nil {
		w.unregister()
	}
}

// deliver replaces any undelivered snapshot with v. Never blocks.
func (w *Watch[T]) deliver(v T) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case <-w.updates:
	default:
	}
	w.updates <- v
}

// feed fans snapshots out to the watchers of a single (collection, user)
// pair. publishLatest holds the feed lock across load and delivery so
// snapshots reach every watcher in emission order.
type feed[T any] struct {
	mu       sync.Mutex
	watchers map[*Watch[T]]struct{}
}

func newFeed[T any]() *feed[T] {
	return &feed[T]{watchers: make(map[*Watch[T]]struct{})}
}

func (f *feed[T]) subscribe() *Watch[T] {
	w := &Watch[T]{updates: make(chan T, 1)}
	w.unregister = func() {
		f.mu.Lock()
		delete(f.watchers, w)
		f.mu.Unlock()
	}

	f.mu.Lock()
	f.watchers[w] = struct{}{}
	f.mu.Unlock()
	return w
}

func (f *feed[T]) publishLatest(load func() (T, error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.watchers) == 0 {
		return nil
	}
	v, err := load()
	if err != nil {
		return err
	}
	for w := range f.watchers {
		w.deliver(v)
	}
	return nil
}

// feedSet keys feeds by user uid.
type feedSet[T any] struct {
	mu    sync.Mutex
	feeds map[string]*feed[T]
}

func newFeedSet[T any]() *feedSet[T] {
	return &feedSet[T]{feeds: make(map[string]*feed[T])}
}

func (s *feedSet[T]) get(uid string) *feed[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.feeds[uid]
	if !ok {
		f = newFeed[T]()
		s.feeds[uid] = f
	}
	return f
}
