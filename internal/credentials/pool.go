// Package credentials exposes the core's view of the external credential
// pool: acquisition, failure reporting, and rotation signalling. Storage and
// session mechanics live with the collaborator behind the Pool interface.
package credentials

import (
	"context"
	"sync"

	"commwatch/internal/domain"
	"commwatch/pkg/platform/sentinel"
)

// Pool hands out credentials for content fetches. The scheduler only ever
// signals "need next credential" via Rotate; how the pool refreshes sessions
// is its own business.
type Pool interface {
	// Acquire returns a usable credential, or sentinel.ErrExhausted when
	// none remain.
	Acquire(ctx context.Context) (domain.Credential, error)

	// Release returns a credential after a fetch, successful or not.
	Release(cred domain.Credential)

	// ReportFailure marks a credential as having failed a fetch.
	ReportFailure(cred domain.Credential)

	// Rotate retires the given credential and returns the next available
	// one, or sentinel.ErrExhausted.
	Rotate(ctx context.Context, cred domain.Credential) (domain.Credential, error)
}

// StaticPool is an in-memory Pool over a fixed credential list, rotating
// round-robin. It serves development and tests; production deployments plug
// in the real collaborator.
type StaticPool struct {
	mu       sync.Mutex
	creds    []domain.Credential
	current  int
	failures map[string]int
}

// NewStaticPool builds a pool over the given credentials.
func NewStaticPool(creds []domain.Credential) *StaticPool {
	return &StaticPool{
		creds:    append([]domain.Credential(nil), creds...),
		failures: make(map[string]int),
	}
}

func (p *StaticPool) Acquire(ctx context.Context) (domain.Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.creds) == 0 {
		return domain.Credential{}, sentinel.ErrExhausted
	}
	return p.creds[p.current], nil
}

func (p *StaticPool) Release(domain.Credential) {}

func (p *StaticPool) ReportFailure(cred domain.Credential) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[cred.ID]++
}

func (p *StaticPool) Rotate(ctx context.Context, cred domain.Credential) (domain.Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.creds) == 0 {
		return domain.Credential{}, sentinel.ErrExhausted
	}
	p.current = (p.current + 1) % len(p.creds)
	return p.creds[p.current], nil
}

// Failures reports how often a credential has failed, for operator
// inspection.
func (p *StaticPool) Failures(credID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures[credID]
}
