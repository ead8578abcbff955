// Package scheduler drives the per-subject poll loop: fetch content, run the
// detectors, merge, diff against the prior snapshot, persist, and notify.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"commwatch/internal/credentials"
	"commwatch/internal/detect"
	"commwatch/internal/diff"
	"commwatch/internal/domain"
	"commwatch/internal/merge"
	"commwatch/internal/notify"
	"commwatch/internal/provider"
	"commwatch/internal/scheduler/metrics"
	"commwatch/internal/snapshot"
	"commwatch/pkg/platform/sentinel"
)

// State is the coarse phase a subject's loop is in, for operator visibility.
type State string

const (
	StateIdle       State = "idle"
	StateFetching   State = "fetching"
	StateDetecting  State = "detecting"
	StateDiffing    State = "diffing"
	StatePersisting State = "persisting"
	StateBackoff    State = "backoff"
)

// CycleResult labels the outcome of one poll cycle.
type CycleResult string

const (
	ResultOK           CycleResult = "ok"
	ResultTransient    CycleResult = "transient_error"
	ResultAuthExpired  CycleResult = "auth_expired"
	ResultPermanent    CycleResult = "permanent_error"
	ResultPersistError CycleResult = "persist_error"
)

// Worker runs a single poll cycle for a subject. It owns no goroutines; the
// Registry schedules it.
type Worker struct {
	Provider provider.ContentProvider
	Pool     credentials.Pool
	Lock     credentials.Lock
	Store    snapshot.Store
	Merger   *merge.Merger
	Differ   *diff.Engine
	Notifier notify.Notifier
	Metrics  *metrics.Metrics
	Log      *log.Logger

	// RotationThreshold is the consecutive fetch-failure count at which
	// the worker asks the pool for the next credential. Rotation fires on
	// the cycle that reaches the threshold exactly, never again until the
	// counter resets on success.
	RotationThreshold int

	// OnState, when set, receives phase transitions during a cycle.
	OnState func(State)

	clock func() time.Time
}

func (w *Worker) now() time.Time {
	if w.clock != nil {
		return w.clock()
	}
	return time.Now()
}

func (w *Worker) setState(s State) {
	if w.OnState != nil {
		w.OnState(s)
	}
}

// Cycle runs one full poll for the subject, mutating its bookkeeping fields
// in place. LastRunAt advances only when the snapshot was persisted; a cycle
// that fails at any earlier stage leaves the subject as if it had not run.
func (w *Worker) Cycle(ctx context.Context, sub *domain.TrackedSubject) (CycleResult, []domain.ChangeEvent, error) {
	started := w.now()
	defer func() {
		w.Metrics.ObserveCycleLatency(w.now().Sub(started))
	}()

	result, events, err := w.cycle(ctx, sub)
	w.Metrics.IncrementCycle(string(result))
	return result, events, err
}

func (w *Worker) cycle(ctx context.Context, sub *domain.TrackedSubject) (CycleResult, []domain.ChangeEvent, error) {
	w.setState(StateFetching)

	cred, err := w.Pool.Acquire(ctx)
	if err != nil {
		sub.ConsecutiveFailures++
		return ResultTransient, nil, fmt.Errorf("acquire credential: %w", err)
	}
	defer w.Pool.Release(cred)

	content, err := w.fetchLocked(ctx, sub.SubjectID, cred)
	if err != nil {
		return w.failFetch(ctx, sub, cred, err)
	}

	w.setState(StateDetecting)
	candidates := detect.Run(content.Profile, content.Posts)

	now := w.now()
	if err := w.Store.AppendEvidence(ctx, sub.SubjectID, candidates); err != nil {
		sub.ConsecutiveFailures++
		return ResultPersistError, nil, fmt.Errorf("append evidence: %w", err)
	}

	merger := w.Merger
	if sub.AcceptanceFloor > 0 {
		m := *w.Merger
		m.AcceptanceFloor = sub.AcceptanceFloor
		merger = &m
	}
	next := merger.Merge(candidates, now)

	w.setState(StateDiffing)
	var prev []domain.Community
	prevSnap, err := w.Store.Latest(ctx, sub.SubjectID)
	switch {
	case err == nil:
		prev = prevSnap.Communities
	case errors.Is(err, sentinel.ErrNotFound):
		// First cycle: everything present reads as newly joined.
	default:
		sub.ConsecutiveFailures++
		return ResultPersistError, nil, fmt.Errorf("load prior snapshot: %w", err)
	}

	absences, err := w.Store.Absences(ctx, sub.SubjectID)
	if err != nil {
		sub.ConsecutiveFailures++
		return ResultPersistError, nil, fmt.Errorf("load absence markers: %w", err)
	}

	differ := w.Differ
	if sub.AbsenceThreshold > 0 {
		differ = &diff.Engine{AbsenceThreshold: sub.AbsenceThreshold}
	}
	next = diff.InheritTimestamps(prev, next)
	events, nextAbsences := differ.Compare(prev, next, absences, now)

	w.setState(StatePersisting)
	snap := &domain.Snapshot{
		SubjectID:   sub.SubjectID,
		TakenAt:     now,
		Communities: next,
		Stats:       domain.CountStats(events),
	}
	if err := w.Store.Put(ctx, snap); err != nil {
		sub.ConsecutiveFailures++
		return ResultPersistError, nil, fmt.Errorf("persist snapshot: %w", err)
	}
	if err := w.Store.PutAbsences(ctx, sub.SubjectID, nextAbsences); err != nil {
		sub.ConsecutiveFailures++
		return ResultPersistError, nil, fmt.Errorf("persist absence markers: %w", err)
	}

	sub.LastRunAt = now
	sub.ConsecutiveFailures = 0
	sub.ConsecutiveFetchFailures = 0

	for _, ev := range events {
		w.Metrics.IncrementChangeEvent(string(ev.Kind))
	}
	if len(events) > 0 && w.Notifier != nil {
		// The snapshot is already durable; a delivery failure is logged
		// and the events are visible through the snapshot history.
		if err := w.Notifier.Publish(ctx, sub.SubjectID, events); err != nil {
			w.Log.Printf("notify failed: subject=%s err=%v", sub.SubjectID, err)
		}
	}

	w.setState(StateIdle)
	return ResultOK, events, nil
}

// fetchLocked holds the credential lock for the duration of the fetch so no
// two cycles use the same credential concurrently.
func (w *Worker) fetchLocked(ctx context.Context, subjectID string, cred domain.Credential) (*provider.Content, error) {
	release, err := w.Lock.AcquireLock(ctx, cred.ID)
	if err != nil {
		return nil, fmt.Errorf("lock credential %s: %w", cred.ID, err)
	}
	defer release()
	return w.Provider.Fetch(ctx, subjectID, cred)
}

func (w *Worker) failFetch(ctx context.Context, sub *domain.TrackedSubject, cred domain.Credential, err error) (CycleResult, []domain.ChangeEvent, error) {
	if provider.IsPermanent(err) {
		sub.Active = false
		w.Log.Printf("subject deactivated: subject=%s err=%v", sub.SubjectID, err)
		return ResultPermanent, nil, err
	}

	sub.ConsecutiveFailures++
	sub.ConsecutiveFetchFailures++
	w.Pool.ReportFailure(cred)

	result := ResultTransient
	if provider.IsAuthExpired(err) {
		result = ResultAuthExpired
	}

	if sub.ConsecutiveFetchFailures == w.RotationThreshold {
		if _, rerr := w.Pool.Rotate(ctx, cred); rerr != nil {
			w.Log.Printf("credential rotation failed: subject=%s err=%v", sub.SubjectID, rerr)
		} else {
			w.Metrics.IncrementRotation()
			w.Log.Printf("credential rotated: subject=%s fetch_failures=%d", sub.SubjectID, sub.ConsecutiveFetchFailures)
		}
	}

	return result, nil, err
}
