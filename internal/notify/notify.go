// Package notify provides typed, synchronous observer lists.
//
// A Notifier delivers each value to its observers on the caller's goroutine,
// in connection order, before Notify returns. Observers are removed only by
// disconnecting the Connection returned from Connect.
package notify

import "sync"

type observer[T any] struct {
	id uint64
	fn func(T)
}

type Notifier[T any] struct {
	mu        sync.Mutex
	nextID    uint64
	observers []observer[T]
}

// Connect registers fn and returns the handle that removes it again.
func (n *Notifier[T]) Connect(fn func(T)) Connection {
	n.mu.Lock()
	n.nextID++
	id := n.nextID
	n.observers = append(n.observers, observer[T]{id: id, fn: fn})
	n.mu.Unlock()

	var once sync.Once
	return Connection{disconnect: func() {
		once.Do(func() { n.remove(id) })
	}}
}

func (n *Notifier[T]) remove(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, o := range n.observers {
		if o.id == id {
			n.observers = append(n.observers[:i:i], n.observers[i+1:]...)
			return
		}
	}
}

// Notify calls every observer connected at the time of the call. Observers
// may connect or disconnect from inside their callback.
func (n *Notifier[T]) Notify(v T) {
	n.mu.Lock()
	snapshot := make([]observer[T], len(n.observers))
	copy(snapshot, n.observers)
	n.mu.Unlock()

	for _, o := range snapshot {
		if n.connected(o.id) {
			o.fn(v)
		}
	}
}

func (n *Notifier[T]) connected(id uint64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, o := range n.observers {
		if o.id == id {
			return true
		}
	}
	return false
}

// Len returns the number of connected observers.
func (n *Notifier[T]) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.observers)
}

// Connection is the handle of one observer registration.
type Connection struct {
	disconnect func()
}

// Disconnect removes the observer. Safe to call more than once and on the
// zero Connection.
func (c Connection) Disconnect() {
	if c.disconnect != nil {
		c.disconnect()
	}
}

// Connections collects the registrations of one owner so they can be torn
// down together.
type Connections []Connection

func (cs *Connections) Add(c Connection) {
	*cs = append(*cs, c)
}

func (cs *Connections) DisconnectAll() {
	for i := len(*cs) - 1; i >= 0; i-- {
		(*cs)[i].Disconnect()
	}
	*cs = nil
}
