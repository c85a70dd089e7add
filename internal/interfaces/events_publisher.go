package interfaces

import "context"

// EventPublisher sends domain events to the outside world
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, event any) error
}
