package domain

import "time"

// TrackedSubject is the per-subject tracking configuration. The scheduler
// owns the mutable fields and updates them once per cycle.
type TrackedSubject struct {
	SubjectID         string        `json:"subject_id"`
	PollInterval      time.Duration `json:"poll_interval"`
	CredentialPoolRef string        `json:"credential_pool_ref"`

	// Per-subject overrides; zero means "use the service default".
	AcceptanceFloor  float64       `json:"acceptance_floor,omitempty"`
	AbsenceThreshold int           `json:"absence_threshold,omitempty"`
	MaxBackoff       time.Duration `json:"max_backoff,omitempty"`

	LastRunAt time.Time `json:"last_run_at"`

	// ConsecutiveFailures counts failed cycles of any kind and drives
	// backoff. ConsecutiveFetchFailures counts only fetch-classified
	// failures and drives credential rotation, so a persistence outage
	// never burns a healthy credential.
	ConsecutiveFailures      int `json:"consecutive_failures"`
	ConsecutiveFetchFailures int `json:"consecutive_fetch_failures"`

	Active bool `json:"active"`
}

// Credential is an opaque authenticated session handle. Storage and rotation
// mechanics belong to the credential pool collaborator.
type Credential struct {
	ID    string
	Token string
}
