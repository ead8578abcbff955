// Package diff compares two canonical community sets and classifies
// membership changes.
package diff

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"commwatch/internal/domain"
)

// DefaultAbsenceThreshold is how many consecutive cycles a community must be
// missing before a Left event fires. One absent cycle is tentative: upstream
// fetch gaps routinely hide a community for a single poll.
const DefaultAbsenceThreshold = 2

// Engine diffs snapshots. Absence streaks live outside the snapshots
// themselves; the caller persists the returned marker map and hands it back
// next cycle.
type Engine struct {
	AbsenceThreshold int
}

// New constructs an engine; threshold <= 0 selects the default.
func New(absenceThreshold int) *Engine {
	if absenceThreshold <= 0 {
		absenceThreshold = DefaultAbsenceThreshold
	}
	return &Engine{AbsenceThreshold: absenceThreshold}
}

// Compare classifies transitions from prev to next. It returns the ordered
// change events and the updated absence markers. Confidence movement alone
// never produces an event; only categorical membership or role transitions do.
func (e *Engine) Compare(prev, next []domain.Community, absences map[string]domain.Absence, at time.Time) ([]domain.ChangeEvent, map[string]domain.Absence) {
	prevByID := make(map[string]domain.Community, len(prev))
	for _, c := range prev {
		prevByID[c.ID] = c
	}
	nextByID := make(map[string]domain.Community, len(next))
	for _, c := range next {
		nextByID[c.ID] = c
	}

	var events []domain.ChangeEvent

	for _, c := range next {
		before, existed := prevByID[c.ID]
		if !existed {
			if _, pending := absences[c.ID]; pending {
				// The community only blinked out; reappearance is not a Join.
				continue
			}
			after := c
			events = append(events, domain.ChangeEvent{
				ID:          uuid.NewString(),
				Kind:        joinKind(c),
				CommunityID: c.ID,
				After:       &after,
				Confidence:  c.Confidence,
				DetectedAt:  at,
			})
			continue
		}
		if before.Role != c.Role {
			b, a := before, c
			events = append(events, domain.ChangeEvent{
				ID:          uuid.NewString(),
				Kind:        domain.ChangeRoleChanged,
				CommunityID: c.ID,
				Before:      &b,
				After:       &a,
				Confidence:  c.Confidence,
				DetectedAt:  at,
			})
		}
	}

	// Absence bookkeeping: missing communities accumulate a streak; a Left
	// event fires only once the streak reaches the threshold. Reappearance
	// clears the marker.
	updated := make(map[string]domain.Absence)
	for _, c := range prev {
		if _, present := nextByID[c.ID]; present {
			continue
		}
		updated[c.ID] = domain.Absence{Community: c, Misses: 1, FirstMissedAt: at}
	}
	for id, marker := range absences {
		if _, present := nextByID[id]; present {
			continue // evidence reappeared, pending removal cleared
		}
		if _, restarted := updated[id]; restarted {
			continue
		}
		marker.Misses++
		updated[id] = marker
	}

	for id, marker := range updated {
		if marker.Misses < e.AbsenceThreshold {
			continue
		}
		before := marker.Community
		events = append(events, domain.ChangeEvent{
			ID:          uuid.NewString(),
			Kind:        domain.ChangeLeft,
			CommunityID: id,
			Before:      &before,
			Confidence:  before.Confidence,
			DetectedAt:  at,
		})
		delete(updated, id)
	}

	sortEvents(events)
	return events, updated
}

// joinKind distinguishes Created from Joined: creation needs the
// creation-phrasing text evidence and a Creator role.
func joinKind(c domain.Community) domain.ChangeKind {
	if c.Role == domain.RoleCreator && c.HasEvidence(domain.MethodTextPattern) {
		return domain.ChangeCreated
	}
	return domain.ChangeJoined
}

var kindOrder = map[domain.ChangeKind]int{
	domain.ChangeCreated:     0,
	domain.ChangeJoined:      1,
	domain.ChangeRoleChanged: 2,
	domain.ChangeLeft:        3,
}

// sortEvents fixes the notification order: Created and Joined first, then
// RoleChanged, then Left, each kind by descending confidence. Community ID
// breaks remaining ties so output is fully deterministic.
func sortEvents(events []domain.ChangeEvent) {
	sort.Slice(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if kindOrder[a.Kind] != kindOrder[b.Kind] {
			return kindOrder[a.Kind] < kindOrder[b.Kind]
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.CommunityID < b.CommunityID
	})
}

// InheritTimestamps carries FirstSeenAt forward for communities that persist
// across cycles, so the canonical record reflects when membership was first
// observed rather than the latest merge time.
func InheritTimestamps(prev, next []domain.Community) []domain.Community {
	prevByID := make(map[string]domain.Community, len(prev))
	for _, c := range prev {
		prevByID[c.ID] = c
	}
	out := make([]domain.Community, len(next))
	for i, c := range next {
		if before, ok := prevByID[c.ID]; ok {
			c.FirstSeenAt = before.FirstSeenAt
		}
		out[i] = c
	}
	return out
}
