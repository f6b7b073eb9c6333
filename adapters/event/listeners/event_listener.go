package listeners

import "github.com/SeaCloudHub/objdetect/domain"

type EventListener interface {
	EventHandler(event domain.BaseDomainEvent) error
}
