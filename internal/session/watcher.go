package session

import "sync"

// EventKind classifies a session state transition.
type EventKind string

const (
	// EventSignedIn fires when a session gains a validated SSO marker.
	EventSignedIn EventKind = "signed_in"
	// EventSignedOut fires when a marker is dropped or fails re-validation.
	EventSignedOut EventKind = "signed_out"
)

// Event describes one session state change.
type Event struct {
	SessionID string
	Subject   string
	Kind      EventKind
}

// Watcher broadcasts session state transitions to subscribers. Consumers
// subscribe instead of polling the marker store; gate rendering reacts to
// the push.
type Watcher struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
}

// NewWatcher creates an empty watcher.
func NewWatcher() *Watcher {
	return &Watcher{subs: make(map[int]chan Event)}
}

// Subscribe registers a listener. The returned cancel func must be called
// to release the subscription; after cancel the channel is closed.
func (w *Watcher) Subscribe() (<-chan Event, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextID
	w.nextID++
	ch := make(chan Event, 16)
	w.subs[id] = ch
	cancel := func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if sub, ok := w.subs[id]; ok {
			delete(w.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber. Slow subscribers whose
// buffer is full miss the event rather than block the publisher.
func (w *Watcher) Publish(ev Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, ch := range w.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
