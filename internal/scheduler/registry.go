package scheduler

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"commwatch/internal/domain"
	"commwatch/pkg/platform/sentinel"
)

// Config tunes the polling loops.
type Config struct {
	// BaseBackoff is the delay after the first consecutive failure; it
	// doubles per failure up to MaxBackoff, with jitter.
	BaseBackoff time.Duration
	MaxBackoff  time.Duration

	// MaxConcurrent caps cycles running at once across all subjects.
	MaxConcurrent int64
}

func (c Config) withDefaults() Config {
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 30 * time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Minute
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 8
	}
	return c
}

// SubjectStatus is a point-in-time view of one tracked subject.
type SubjectStatus struct {
	domain.TrackedSubject
	State State `json:"state"`
}

type runner struct {
	mu      sync.Mutex
	subject domain.TrackedSubject
	state   State
	stop    chan struct{}
	stopped bool
}

func (r *runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

func (r *runner) status() SubjectStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return SubjectStatus{TrackedSubject: r.subject, State: r.state}
}

func (r *runner) halt() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.stopped {
		r.stopped = true
		close(r.stop)
	}
}

// Registry owns one polling goroutine per tracked subject and a global
// concurrency cap across them.
type Registry struct {
	worker *Worker
	cfg    Config
	sem    *semaphore.Weighted

	mu      sync.Mutex
	runners map[string]*runner
	closed  bool
	wg      sync.WaitGroup
}

// NewRegistry builds a registry around the given worker.
func NewRegistry(worker *Worker, cfg Config) *Registry {
	cfg = cfg.withDefaults()
	return &Registry{
		worker:  worker,
		cfg:     cfg,
		sem:     semaphore.NewWeighted(cfg.MaxConcurrent),
		runners: make(map[string]*runner),
	}
}

// Track registers a subject and starts its polling loop. The first cycle
// runs immediately. Tracking an already-tracked subject is a conflict.
func (r *Registry) Track(sub domain.TrackedSubject) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return sentinel.ErrUnavailable
	}
	if _, ok := r.runners[sub.SubjectID]; ok {
		return sentinel.ErrConflict
	}

	sub.Active = true
	run := &runner{subject: sub, state: StateIdle, stop: make(chan struct{})}
	r.runners[sub.SubjectID] = run
	r.worker.Metrics.TrackSubject(1)

	r.wg.Add(1)
	go r.loop(run)
	return nil
}

// Stop halts a subject's loop and forgets it.
func (r *Registry) Stop(subjectID string) error {
	r.mu.Lock()
	run, ok := r.runners[subjectID]
	if ok {
		delete(r.runners, subjectID)
	}
	r.mu.Unlock()
	if !ok {
		return sentinel.ErrNotFound
	}
	run.halt()
	r.worker.Metrics.TrackSubject(-1)
	return nil
}

// Reactivate restarts polling for a subject that a permanent fetch error
// deactivated, clearing its failure count.
func (r *Registry) Reactivate(subjectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runners[subjectID]
	if !ok {
		return sentinel.ErrNotFound
	}

	run.mu.Lock()
	if run.subject.Active {
		run.mu.Unlock()
		return sentinel.ErrConflict
	}
	run.subject.Active = true
	run.subject.ConsecutiveFailures = 0
	run.stopped = false
	run.stop = make(chan struct{})
	run.mu.Unlock()

	r.wg.Add(1)
	go r.loop(run)
	return nil
}

// Subjects returns a status view of every registered subject, including
// deactivated ones awaiting reactivation.
func (r *Registry) Subjects() []SubjectStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SubjectStatus, 0, len(r.runners))
	for _, run := range r.runners {
		out = append(out, run.status())
	}
	return out
}

// Subject returns the status of one subject.
func (r *Registry) Subject(subjectID string) (SubjectStatus, error) {
	r.mu.Lock()
	run, ok := r.runners[subjectID]
	r.mu.Unlock()
	if !ok {
		return SubjectStatus{}, sentinel.ErrNotFound
	}
	return run.status(), nil
}

// Shutdown stops every loop and waits for in-flight cycles to finish or ctx
// to expire.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	runners := make([]*runner, 0, len(r.runners))
	for _, run := range r.runners {
		runners = append(runners, run)
	}
	r.mu.Unlock()

	for _, run := range runners {
		run.halt()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Registry) loop(run *runner) {
	defer r.wg.Done()

	delay := time.Duration(0) // first cycle runs immediately
	for {
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-run.stop:
				return
			}
		} else {
			select {
			case <-run.stop:
				return
			default:
			}
		}

		delay = r.runOnce(run)
		if delay < 0 {
			return
		}
	}
}

// runOnce executes one cycle and returns the delay before the next, or a
// negative duration when the loop should end.
func (r *Registry) runOnce(run *runner) time.Duration {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-run.stop:
			cancel()
		case <-ctx.Done():
		}
	}()
	defer cancel()

	if err := r.sem.Acquire(ctx, 1); err != nil {
		return -1
	}
	defer r.sem.Release(1)

	run.mu.Lock()
	sub := run.subject
	run.mu.Unlock()

	worker := *r.worker
	worker.OnState = run.setState
	result, _, err := worker.Cycle(ctx, &sub)

	run.mu.Lock()
	run.subject = sub
	run.mu.Unlock()

	switch result {
	case ResultOK:
		run.setState(StateIdle)
		return sub.PollInterval
	case ResultPermanent:
		run.setState(StateIdle)
		return -1
	default:
		if err != nil && ctx.Err() != nil {
			return -1
		}
		run.setState(StateBackoff)
		max := r.cfg.MaxBackoff
		if sub.MaxBackoff > 0 {
			max = sub.MaxBackoff
		}
		return backoffDelay(r.cfg.BaseBackoff, max, sub.ConsecutiveFailures)
	}
}

// backoffDelay doubles the base per consecutive failure, caps it, and
// spreads retries with +-50% jitter.
func backoffDelay(base, max time.Duration, failures int) time.Duration {
	if failures < 1 {
		failures = 1
	}
	d := base
	for i := 1; i < failures; i++ {
		d *= 2
		if d >= max {
			d = max
			break
		}
	}
	if d > max {
		d = max
	}
	jitter := 0.5 + rand.Float64() // [0.5, 1.5)
	return time.Duration(float64(d) * jitter)
}
