package event

import (
	"sync"

	"github.com/SeaCloudHub/objdetect/domain"
)

type eventDispatcher struct {
	listeners map[string][]func(event domain.BaseDomainEvent) error
	mutex     sync.RWMutex
}

func NewEventDispatcher() *eventDispatcher {
	return &eventDispatcher{}
}

// Dispatch calls every listener registered for the event, in registration
// order, and stops at the first error.
func (ed *eventDispatcher) Dispatch(event domain.BaseDomainEvent) error {
	ed.mutex.RLock()
	listeners := ed.listeners[event.EventName()]
	ed.mutex.RUnlock()

	for _, listener := range listeners {
		if err := listener(event); err != nil {
			return err
		}
	}

	return nil
}

func (ed *eventDispatcher) Register(eventName string, listener func(event domain.BaseDomainEvent) error) {
	ed.mutex.Lock()
	defer ed.mutex.Unlock()
	if ed.listeners == nil {
		ed.listeners = make(map[string][]func(event domain.BaseDomainEvent) error)
	}
	ed.listeners[eventName] = append(ed.listeners[eventName], listener)
}
