// Package notify delivers membership change events to downstream consumers.
package notify

import (
	"context"
	"log"

	"commwatch/internal/domain"
)

// Notifier receives the ordered change events of one poll cycle. Delivery
// failures are reported to the caller but never block snapshot persistence,
// which has already happened by the time Publish runs.
type Notifier interface {
	Publish(ctx context.Context, subjectID string, events []domain.ChangeEvent) error
}

// LogNotifier writes change events to the process log. It is the fallback
// when no broker is configured.
type LogNotifier struct {
	log *log.Logger
}

// NewLogNotifier builds a notifier over the given logger.
func NewLogNotifier(logger *log.Logger) *LogNotifier {
	return &LogNotifier{log: logger}
}

func (n *LogNotifier) Publish(_ context.Context, subjectID string, events []domain.ChangeEvent) error {
	for _, ev := range events {
		n.log.Printf("change event: subject=%s kind=%s community=%s confidence=%.2f",
			subjectID, ev.Kind, ev.CommunityID, ev.Confidence)
	}
	return nil
}
