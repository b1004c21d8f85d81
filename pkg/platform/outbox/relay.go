package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Producer is the slice of *kgo.Client the relay uses.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Relay polls the outbox and publishes pending events to Kafka.
type Relay struct {
	claimer     Claimer
	producer    Producer
	topicPrefix string
	batchSize   int
	interval    time.Duration
	logger      *slog.Logger
}

// RelayOption configures a Relay.
type RelayOption func(*Relay)

func WithBatchSize(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithInterval(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithLogger(logger *slog.Logger) RelayOption {
	return func(r *Relay) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRelay builds a relay publishing to topics named by topicPrefix.
func NewRelay(claimer Claimer, producer Producer, topicPrefix string, opts ...RelayOption) *Relay {
	r := &Relay{
		claimer:     claimer,
		producer:    producer,
		topicPrefix: topicPrefix,
		batchSize:   100,
		interval:    time.Second,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run publishes until ctx is cancelled. A full batch is followed immediately
// by the next claim; otherwise the relay sleeps for its interval.
func (r *Relay) Run(ctx context.Context) error {
	for {
		n, err := r.PublishBatch(ctx)
		if err != nil {
			r.logger.ErrorContext(ctx, "outbox relay batch failed", "error", err)
		}
		if err == nil && n == r.batchSize {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.interval):
		}
	}
}

// PublishBatch claims and publishes up to one batch, returning how many
// events were marked published.
func (r *Relay) PublishBatch(ctx context.Context) (int, error) {
	return r.claimer.Claim(ctx, r.batchSize, r.publish)
}

func (r *Relay) publish(ctx context.Context, events []Event) ([]uuid.UUID, error) {
	records := make([]*kgo.Record, 0, len(events))
	byRecord := make(map[*kgo.Record]Event, len(events))
	for _, e := range events {
		rec := &kgo.Record{
			Topic: Topic(r.topicPrefix, e.Family()),
			Key:   []byte(e.AggregateID),
			Value: e.Payload,
			Headers: []kgo.RecordHeader{
				{Key: "event_type", Value: []byte(e.Type)},
				{Key: "event_id", Value: []byte(e.ID.String())},
			},
		}
		records = append(records, rec)
		byRecord[rec] = e
	}

	results := r.producer.ProduceSync(ctx, records...)
	published := make([]uuid.UUID, 0, len(events))
	for _, res := range results {
		e, ok := byRecord[res.Record]
		if !ok {
			continue
		}
		if res.Err != nil {
			r.logger.WarnContext(ctx, "outbox event not published",
				"event_id", e.ID.String(),
				"event_type", e.Type,
				"error", res.Err,
			)
			continue
		}
		published = append(published, e.ID)
	}
	return published, nil
}
