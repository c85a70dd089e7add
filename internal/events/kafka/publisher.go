package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	interfaces "github.com/sheikh-saqib/installments-ledger/internal/interfaces"
)

const DefaultTopic = "installments.events"

// messageWriter is the part of *kafka.Writer the publisher needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes installment lifecycle events to one topic. The event type
// travels in the "event-type" header; the key is the event's group id so all
// events for a plan stay on one partition.
type Publisher struct {
	writer messageWriter
}

// NewPublisher creates a publisher writing to topic, DefaultTopic when empty.
// Messages with the same key go to the same partition.
func NewPublisher(brokers []string, topic string) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			WriteTimeout: 5 * time.Second,
		},
	}
}

// Publish marshals event to JSON and writes it keyed by its group
func (p *Publisher) Publish(ctx context.Context, eventType string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	msg := kafka.Message{
		Key:   []byte(partitionKey(data)),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(eventType)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s event: %w", eventType, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// partitionKey picks the group id out of an encoded event, falling back to the user id
func partitionKey(data []byte) string {
	var keys struct {
		GroupID    string `json:"group_id"`
		NewGroupID string `json:"new_group_id"`
		UserID     string `json:"user_id"`
	}
	if err := json.Unmarshal(data, &keys); err != nil {
		return ""
	}
	switch {
	case keys.GroupID != "":
		return keys.GroupID
	case keys.NewGroupID != "":
		return keys.NewGroupID
	}
	return keys.UserID
}

var _ interfaces.EventPublisher = (*Publisher)(nil)
