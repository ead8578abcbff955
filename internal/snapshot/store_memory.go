package snapshot

import (
	"context"
	"sync"

	"commwatch/internal/domain"
	"commwatch/pkg/platform/sentinel"
)

// MemoryStore is the in-process Store for development and tests. For
// deployments that must survive restarts, use PostgresStore.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string][]domain.Snapshot
	evidence  map[string][]domain.DetectionCandidate
	absences  map[string]map[string]domain.Absence
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots: make(map[string][]domain.Snapshot),
		evidence:  make(map[string][]domain.DetectionCandidate),
		absences:  make(map[string]map[string]domain.Absence),
	}
}

func (s *MemoryStore) Latest(ctx context.Context, subjectID string) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.snapshots[subjectID]
	if len(history) == 0 {
		return nil, sentinel.ErrNotFound
	}
	snap := history[len(history)-1]
	snap.Communities = append([]domain.Community(nil), snap.Communities...)
	return &snap, nil
}

func (s *MemoryStore) Put(ctx context.Context, snap *domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *snap
	stored.Communities = append([]domain.Community(nil), snap.Communities...)
	s.snapshots[snap.SubjectID] = append(s.snapshots[snap.SubjectID], stored)
	return nil
}

// History returns every snapshot ever taken for a subject, oldest first.
// Snapshots are retained for audit; nothing is overwritten.
func (s *MemoryStore) History(ctx context.Context, subjectID string) []domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Snapshot(nil), s.snapshots[subjectID]...)
}

func (s *MemoryStore) AppendEvidence(ctx context.Context, subjectID string, candidates []domain.DetectionCandidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evidence[subjectID] = append(s.evidence[subjectID], candidates...)
	return nil
}

// Evidence returns the full evidence log for a subject, oldest first.
func (s *MemoryStore) Evidence(ctx context.Context, subjectID string) []domain.DetectionCandidate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.DetectionCandidate(nil), s.evidence[subjectID]...)
}

func (s *MemoryStore) Absences(ctx context.Context, subjectID string) (map[string]domain.Absence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]domain.Absence, len(s.absences[subjectID]))
	for id, a := range s.absences[subjectID] {
		out[id] = a
	}
	return out, nil
}

func (s *MemoryStore) PutAbsences(ctx context.Context, subjectID string, absences map[string]domain.Absence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make(map[string]domain.Absence, len(absences))
	for id, a := range absences {
		stored[id] = a
	}
	s.absences[subjectID] = stored
	return nil
}
