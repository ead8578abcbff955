package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"commwatch/internal/domain"
)

// KafkaNotifier publishes change events to a Kafka topic, keyed by subject
// so a subject's events stay ordered within a partition.
type KafkaNotifier struct {
	client *kgo.Client
	topic  string
}

// NewKafkaNotifier connects a producer to the given brokers.
func NewKafkaNotifier(brokers []string, topic, clientID string) (*KafkaNotifier, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(clientID),
		kgo.ProduceRequestTimeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaNotifier{client: client, topic: topic}, nil
}

// changeEnvelope is the wire form of one event.
type changeEnvelope struct {
	SubjectID   string            `json:"subject_id"`
	Kind        domain.ChangeKind `json:"kind"`
	CommunityID string            `json:"community_id"`
	Before      *domain.Community `json:"before,omitempty"`
	After       *domain.Community `json:"after,omitempty"`
	Confidence  float64           `json:"confidence"`
	DetectedAt  time.Time         `json:"detected_at"`
}

func (n *KafkaNotifier) Publish(ctx context.Context, subjectID string, events []domain.ChangeEvent) error {
	records := make([]*kgo.Record, 0, len(events))
	for _, ev := range events {
		payload, err := json.Marshal(changeEnvelope{
			SubjectID:   subjectID,
			Kind:        ev.Kind,
			CommunityID: ev.CommunityID,
			Before:      ev.Before,
			After:       ev.After,
			Confidence:  ev.Confidence,
			DetectedAt:  ev.DetectedAt,
		})
		if err != nil {
			return fmt.Errorf("marshal change event %s: %w", ev.ID, err)
		}
		records = append(records, &kgo.Record{
			Topic: n.topic,
			Key:   []byte(subjectID),
			Value: payload,
			Headers: []kgo.RecordHeader{
				{Key: "kind", Value: []byte(ev.Kind)},
			},
		})
	}
	if len(records) == 0 {
		return nil
	}
	if err := n.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce change events: %w", err)
	}
	return nil
}

// Close flushes and releases the producer.
func (n *KafkaNotifier) Close() {
	n.client.Close()
}
