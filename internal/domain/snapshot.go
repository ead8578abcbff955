package domain

import "time"

// Snapshot is one subject's canonical community set for one cycle. Snapshots
// are immutable once written; each cycle appends a new one and the previous
// becomes the prior for diffing.
type Snapshot struct {
	SubjectID   string      `json:"subject_id"`
	TakenAt     time.Time   `json:"taken_at"`
	Communities []Community `json:"communities"`
	Stats       RunStats    `json:"stats"`
}

// RunStats records how many transitions of each kind the cycle that produced
// the snapshot emitted, kept with the snapshot for run-history audits.
type RunStats struct {
	Joined      int `json:"joined"`
	Left        int `json:"left"`
	Created     int `json:"created"`
	RoleChanged int `json:"role_changed"`
}

// CountStats tallies change events into run stats.
func CountStats(events []ChangeEvent) RunStats {
	var stats RunStats
	for _, ev := range events {
		switch ev.Kind {
		case ChangeJoined:
			stats.Joined++
		case ChangeLeft:
			stats.Left++
		case ChangeCreated:
			stats.Created++
		case ChangeRoleChanged:
			stats.RoleChanged++
		}
	}
	return stats
}

// Find returns the community with the given ID, if present.
func (s *Snapshot) Find(id string) (Community, bool) {
	for _, c := range s.Communities {
		if c.ID == id {
			return c, true
		}
	}
	return Community{}, false
}

// Absence is a pending-removal marker: a community that was in a prior
// canonical set but has been missing for Misses consecutive cycles. It keeps
// the last known community state so a Left event can carry "before".
type Absence struct {
	Community     Community `json:"community"`
	Misses        int       `json:"misses"`
	FirstMissedAt time.Time `json:"first_missed_at"`
}

// ChangeKind classifies a membership transition.
type ChangeKind string

const (
	ChangeJoined      ChangeKind = "Joined"
	ChangeLeft        ChangeKind = "Left"
	ChangeCreated     ChangeKind = "Created"
	ChangeRoleChanged ChangeKind = "RoleChanged"
)

// ChangeEvent is the diff engine's output: one categorical membership or role
// transition. Confidence mirrors the community the event is about.
type ChangeEvent struct {
	ID          string     `json:"id"`
	Kind        ChangeKind `json:"kind"`
	CommunityID string     `json:"community_id"`
	Before      *Community `json:"before,omitempty"`
	After       *Community `json:"after,omitempty"`
	Confidence  float64    `json:"confidence"`
	DetectedAt  time.Time  `json:"detected_at"`
}
