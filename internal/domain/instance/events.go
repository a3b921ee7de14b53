package instance

import (
	"sync"

	"github.com/Richard-Rogalski/PrisonLauncher/internal/shared/types"
)

// EventKind identifies a list change notification
type EventKind int

const (
	// EventReset means the whole list was replaced; indices are invalid
	EventReset EventKind = iota
	// EventItemAdded means an instance was appended at Index
	EventItemAdded
	// EventItemChanged means a property of the instance at Index changed
	EventItemChanged
)

func (k EventKind) String() string {
	switch k {
	case EventReset:
		return "reset"
	case EventItemAdded:
		return "item_added"
	case EventItemChanged:
		return "item_changed"
	default:
		return "unknown"
	}
}

// Event is delivered to list observers
type Event struct {
	Kind EventKind
	// Index is -1 for EventReset
	Index int
	// Generation the event belongs to
	Generation string
}

// Message converts the event to its wire form
func (e Event) Message() types.EventMessage {
	return types.NewEventMessage(e.Kind.String(), e.Index, e.Generation)
}

// Observer receives list events. Observers run synchronously on the
// mutating goroutine and must not call mutating List methods.
type Observer func(Event)

type observerEntry struct {
	key uint64
	fn  Observer
}

// observers keeps subscribers in subscription order
type observers struct {
	mu      sync.RWMutex
	next    uint64
	entries []observerEntry
}

func (o *observers) add(fn Observer) func() {
	o.mu.Lock()
	key := o.next
	o.next++
	o.entries = append(o.entries, observerEntry{key: key, fn: fn})
	o.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { o.remove(key) })
	}
}

func (o *observers) remove(key uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for idx, entry := range o.entries {
		if entry.key == key {
			o.entries = append(o.entries[:idx:idx], o.entries[idx+1:]...)
			return
		}
	}
}

func (o *observers) notify(event Event) {
	o.mu.RLock()
	entries := o.entries
	o.mu.RUnlock()

	for _, entry := range entries {
		entry.fn(event)
	}
}

func (o *observers) len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.entries)
}
