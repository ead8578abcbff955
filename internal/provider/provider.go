package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"commwatch/internal/domain"
)

// Profile is the subject's public profile as returned by the content
// provider. Following carries the accounts the subject follows or interacts
// with, as far as the provider exposes them.
type Profile struct {
	SubjectID   string    `json:"subject_id"`
	Handle      string    `json:"handle"`
	DisplayName string    `json:"display_name"`
	Bio         string    `json:"bio"`
	Links       []string  `json:"links"`
	Following   []Account `json:"following"`
}

// Account is a minimal view of another account in the subject's social graph.
type Account struct {
	ID          string `json:"id"`
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio"`
}

// Post is one public post. CommunityID is the structural community-context
// marker: non-empty when the post was made inside a community, regardless of
// what the text says.
type Post struct {
	ID             string    `json:"id"`
	Text           string    `json:"text"`
	Links          []string  `json:"links"`
	CommunityID    string    `json:"community_id,omitempty"`
	ConversationID string    `json:"conversation_id,omitempty"`
	PostedAt       time.Time `json:"posted_at"`
}

// Content is one fetch result: the subject's profile plus recent posts.
type Content struct {
	Profile Profile `json:"profile"`
	Posts   []Post  `json:"posts"`
}

// ContentProvider retrieves a subject's recent public content. Retrieval
// mechanics are an external collaborator; the core only sees this interface.
type ContentProvider interface {
	Fetch(ctx context.Context, subjectID string, cred domain.Credential) (*Content, error)
}

// ErrorKind classifies fetch failures for the scheduler's retry policy.
type ErrorKind string

const (
	// KindTransient covers rate limits, timeouts, and upstream hiccups;
	// the subject backs off and retries.
	KindTransient ErrorKind = "transient"
	// KindAuthExpired means the credential is stale; retried after the
	// scheduler rotates credentials.
	KindAuthExpired ErrorKind = "auth_expired"
	// KindPermanent means the subject is no longer resolvable; the subject
	// is deactivated until explicitly reactivated.
	KindPermanent ErrorKind = "permanent"
)

// FetchError wraps a provider failure with its retry classification.
type FetchError struct {
	Kind   ErrorKind
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s (status %d)", e.Kind, e.Status)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func kindOf(err error) (ErrorKind, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return "", false
}

// IsTransient reports whether err should feed the backoff path. Unclassified
// errors are treated as transient so an unknown failure never deactivates a
// subject.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	kind, ok := kindOf(err)
	return !ok || kind == KindTransient
}

// IsAuthExpired reports whether err calls for credential rotation.
func IsAuthExpired(err error) bool {
	kind, ok := kindOf(err)
	return ok && kind == KindAuthExpired
}

// IsPermanent reports whether err should deactivate the subject.
func IsPermanent(err error) bool {
	kind, ok := kindOf(err)
	return ok && kind == KindPermanent
}
