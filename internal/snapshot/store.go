// Package snapshot persists per-subject canonical sets, the raw evidence
// log, and absence markers. The storage engine behind the Postgres
// implementation is an external concern; the core only uses this interface.
package snapshot

import (
	"context"

	"commwatch/internal/domain"
)

// Store is the narrow persistence interface the scheduler writes through.
//
// Snapshots are append-only: Put never overwrites a prior snapshot, it
// records a new one and the previous becomes the prior for the next diff.
// The evidence log is a separate append-only stream of raw candidates.
type Store interface {
	// Latest returns the most recent snapshot for a subject, or
	// sentinel.ErrNotFound before the first cycle.
	Latest(ctx context.Context, subjectID string) (*domain.Snapshot, error)

	// Put appends a new snapshot.
	Put(ctx context.Context, snap *domain.Snapshot) error

	// AppendEvidence records one cycle's raw detection candidates,
	// including those the merger later dropped below the acceptance floor.
	AppendEvidence(ctx context.Context, subjectID string, candidates []domain.DetectionCandidate) error

	// Absences returns the subject's pending-removal markers. A missing
	// subject yields an empty map, not an error.
	Absences(ctx context.Context, subjectID string) (map[string]domain.Absence, error)

	// PutAbsences replaces the subject's pending-removal markers.
	PutAbsences(ctx context.Context, subjectID string, absences map[string]domain.Absence) error
}
