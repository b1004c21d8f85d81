// Package outbox implements the transactional outbox: domain services append
// events next to their own writes, and the Relay publishes them to Kafka.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event types published by the service.
const (
	TypeScanCompleted = "scan.completed"
	TypeAlertOpened   = "alert.opened"
	TypeAlertResolved = "alert.resolved"
	TypeDriftAlert    = "drift.alert"
)

// Event is one outbox row.
type Event struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	Type          string
	Payload       []byte
	CreatedAt     time.Time
}

// Family is the event type prefix ("scan", "alert", "drift"); it selects the topic.
func (e Event) Family() string {
	family, _, _ := strings.Cut(e.Type, ".")
	return family
}

// NewEvent marshals payload into an outbox event.
func NewEvent(eventType, aggregateType, aggregateID string, payload any, now time.Time) (Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:            uuid.New(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Type:          eventType,
		Payload:       body,
		CreatedAt:     now,
	}, nil
}

// Appender is implemented by outbox stores. Postgres appends join a
// transaction carried on ctx.
type Appender interface {
	Append(ctx context.Context, event Event) error
}

// Claimer hands a batch of unpublished events to publish and marks the ids it
// returns as published. Events not returned stay pending for the next claim.
type Claimer interface {
	Claim(ctx context.Context, limit int, publish func(ctx context.Context, events []Event) ([]uuid.UUID, error)) (int, error)
}
