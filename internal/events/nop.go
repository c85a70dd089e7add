package events

import (
	"context"

	interfaces "github.com/sheikh-saqib/installments-ledger/internal/interfaces"
)

// NopPublisher drops every event. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, eventType string, event any) error {
	return nil
}

var _ interfaces.EventPublisher = NopPublisher{}
