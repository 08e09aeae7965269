package engine

import (
	"reflect"
	"time"

	"github.com/leengari/dyntable/internal/domain/event"
)

// AddObserver registers an observer to receive events from every table of the engine
func (e *Engine) AddObserver(observer event.Observer) {
	e.obsMu.Lock()
	defer e.obsMu.Unlock()
	e.observers = append(e.observers, observer)
}

// RemoveObserver unregisters an observer.
// Observers of an uncomparable type (such as event.ObserverFunc) cannot be removed.
func (e *Engine) RemoveObserver(observer event.Observer) {
	if observer == nil || !reflect.TypeOf(observer).Comparable() {
		return
	}

	e.obsMu.Lock()
	defer e.obsMu.Unlock()
	for i, o := range e.observers {
		if reflect.TypeOf(o) == reflect.TypeOf(observer) && o == observer {
			e.observers = append(e.observers[:i], e.observers[i+1:]...)
			return
		}
	}
}

// notify sends an event to all registered observers
func (e *Engine) notify(ev event.Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	e.obsMu.RLock()
	observers := make([]event.Observer, len(e.observers))
	copy(observers, e.observers)
	e.obsMu.RUnlock()

	for _, observer := range observers {
		observer.OnEvent(ev)
	}
}
