package outbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Families lists every event family; each maps to one topic.
var Families = []string{"scan", "alert", "drift"}

// Topic returns the topic name for an event family.
func Topic(prefix, family string) string {
	if prefix == "" {
		return family
	}
	return prefix + "." + family
}

// EnsureTopics creates one topic per family, ignoring topics that already exist.
func EnsureTopics(ctx context.Context, client *kgo.Client, prefix string, partitions int32, replication int16) error {
	topics := make([]string, 0, len(Families))
	for _, f := range Families {
		topics = append(topics, Topic(prefix, f))
	}

	resp, err := kadm.NewClient(client).CreateTopics(ctx, partitions, replication, nil, topics...)
	if err != nil {
		return fmt.Errorf("create topics: %w", err)
	}
	for topic, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", topic, r.Err)
		}
	}
	return nil
}
