// Package merge reconciles detection candidates from independent detectors
// into one canonical community set per subject per cycle.
package merge

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"commwatch/internal/domain"
)

const (
	// DefaultAcceptanceFloor drops groups whose aggregated confidence is
	// too weak to assert membership. A lone advisory signal never makes
	// the canonical set.
	DefaultAcceptanceFloor = 0.5

	// DefaultDuplicateThreshold is the token-overlap ratio at which two
	// names are treated as the same community.
	DefaultDuplicateThreshold = 0.85

	// ambiguityMargin flags near-miss similarities below the duplicate
	// threshold for threshold tuning.
	ambiguityMargin = 0.10

	confidenceCap = 0.99
)

// Counter is the minimal metric surface the merger needs.
// prometheus.Counter satisfies it.
type Counter interface {
	Inc()
}

// Merger reconciles candidates into communities. Zero-value thresholds fall
// back to the defaults.
type Merger struct {
	AcceptanceFloor    float64
	DuplicateThreshold float64

	// Ambiguities counts near-miss fuzzy matches. Optional.
	Ambiguities Counter

	log *log.Logger
}

// New constructs a merger with the given thresholds; pass zero values for
// the defaults.
func New(floor, dupThreshold float64, logger *log.Logger) *Merger {
	if floor == 0 {
		floor = DefaultAcceptanceFloor
	}
	if dupThreshold == 0 {
		dupThreshold = DefaultDuplicateThreshold
	}
	return &Merger{
		AcceptanceFloor:    floor,
		DuplicateThreshold: dupThreshold,
		log:                logger,
	}
}

// advisoryOnly reports whether the community rests solely on social-graph
// evidence. Following a community account corroborates other signals but is
// never sufficient on its own, whatever its confidence.
func advisoryOnly(c domain.Community) bool {
	for _, method := range c.Evidence {
		if method != domain.MethodSocialGraph {
			return false
		}
	}
	return len(c.Evidence) > 0
}

// group accumulates candidates believed to describe one community.
type group struct {
	id         string // authoritative resource ID, if any candidate carried one
	names      []string
	candidates []domain.DetectionCandidate
}

// Merge reconciles one cycle's candidates into the canonical set. The result
// is deterministic and independent of candidate order: identical input sets
// always produce identical output (sorted by community ID).
func (m *Merger) Merge(candidates []domain.DetectionCandidate, now time.Time) []domain.Community {
	groups := m.partition(candidates)

	var out []domain.Community
	for _, g := range groups {
		c := m.reduce(g, now)
		if advisoryOnly(c) {
			if m.log != nil {
				m.log.Printf("merge: dropping %q, social-graph evidence alone never asserts membership",
					c.DisplayName)
			}
			continue
		}
		if c.Confidence < m.AcceptanceFloor {
			if m.log != nil {
				m.log.Printf("merge: dropping %q below acceptance floor (%.2f < %.2f)",
					c.DisplayName, c.Confidence, m.AcceptanceFloor)
			}
			continue
		}
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// partition groups candidates: exact extracted-ID match first (authoritative),
// then fuzzy name match against existing groups, else a new group. Candidates
// are pre-sorted so grouping is insensitive to input order.
func (m *Merger) partition(candidates []domain.DetectionCandidate) []*group {
	sorted := make([]domain.DetectionCandidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		// ID-bearing candidates seed groups before name-only ones.
		if (a.ExtractedID != "") != (b.ExtractedID != "") {
			return a.ExtractedID != ""
		}
		if a.ExtractedID != b.ExtractedID {
			return a.ExtractedID < b.ExtractedID
		}
		if a.ExtractedName != b.ExtractedName {
			return a.ExtractedName < b.ExtractedName
		}
		return a.Method < b.Method
	})

	byID := make(map[string]*group)
	var groups []*group

	for _, cand := range sorted {
		if cand.ExtractedID != "" {
			g, ok := byID[cand.ExtractedID]
			if !ok {
				g = &group{id: cand.ExtractedID}
				byID[cand.ExtractedID] = g
				groups = append(groups, g)
			}
			g.add(cand)
			continue
		}

		if g := m.fuzzyMatch(groups, cand.ExtractedName); g != nil {
			g.add(cand)
			continue
		}
		g := &group{}
		g.add(cand)
		groups = append(groups, g)
	}
	return groups
}

func (g *group) add(cand domain.DetectionCandidate) {
	g.candidates = append(g.candidates, cand)
	if cand.ExtractedName != "" {
		g.names = append(g.names, cand.ExtractedName)
	}
}

// fuzzyMatch returns the best existing group whose names overlap the
// candidate name at or above the duplicate threshold. Near misses are logged
// for threshold tuning.
func (m *Merger) fuzzyMatch(groups []*group, name string) *group {
	if name == "" {
		return nil
	}
	var (
		best      *group
		bestRatio float64
	)
	for _, g := range groups {
		for _, existing := range g.names {
			ratio := tokenOverlap(name, existing)
			if ratio > bestRatio {
				bestRatio = ratio
				best = g
			}
		}
	}
	if best == nil {
		return nil
	}
	if bestRatio >= m.DuplicateThreshold {
		return best
	}
	if bestRatio >= m.DuplicateThreshold-ambiguityMargin {
		if m.log != nil {
			m.log.Printf("merge: ambiguous near-miss %q vs group (ratio %.2f, threshold %.2f)",
				name, bestRatio, m.DuplicateThreshold)
		}
		if m.Ambiguities != nil {
			m.Ambiguities.Inc()
		}
	}
	return nil
}

// Filler tokens carry no identity: "AI Builders" and "AI Builders Community"
// are the same community.
var fillerTokens = map[string]bool{
	"community": true, "dao": true, "collective": true,
	"group": true, "club": true, "the": true,
}

func nameTokens(name string) map[string]bool {
	tokens := make(map[string]bool)
	for _, tok := range strings.Fields(domain.NormalizeName(name)) {
		if !fillerTokens[tok] {
			tokens[tok] = true
		}
	}
	return tokens
}

// tokenOverlap computes the overlap ratio of two normalized token sets:
// intersection over the larger set, so a short name never swallows a longer
// unrelated one.
func tokenOverlap(a, b string) float64 {
	ta, tb := nameTokens(a), nameTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	inter := 0
	for tok := range ta {
		if tb[tok] {
			inter++
		}
	}
	larger := len(ta)
	if len(tb) > larger {
		larger = len(tb)
	}
	return float64(inter) / float64(larger)
}

// reduce collapses a group into one Community: independent-evidence
// confidence combination over unique methods, most specific corroborated
// role, and the full evidence trail.
func (m *Merger) reduce(g *group, now time.Time) domain.Community {
	bestPerMethod := make(map[domain.DetectionMethod]domain.DetectionCandidate)
	for _, cand := range g.candidates {
		if cur, ok := bestPerMethod[cand.Method]; !ok || cand.Confidence > cur.Confidence {
			bestPerMethod[cand.Method] = cand
		}
	}

	contributions := make([]domain.DetectionCandidate, 0, len(bestPerMethod))
	for _, cand := range bestPerMethod {
		contributions = append(contributions, cand)
	}
	sort.Slice(contributions, func(i, j int) bool {
		if contributions[i].Confidence != contributions[j].Confidence {
			return contributions[i].Confidence > contributions[j].Confidence
		}
		return contributions[i].Method < contributions[j].Method
	})

	// 1 - prod(1-c): corroboration across methods raises confidence
	// super-linearly while a single weak signal stays weak.
	miss := 1.0
	evidence := make([]domain.DetectionMethod, 0, len(contributions))
	for _, cand := range contributions {
		miss *= 1 - cand.Confidence
		evidence = append(evidence, cand.Method)
	}
	confidence := 1 - miss
	if confidence > confidenceCap {
		confidence = confidenceCap
	}

	role := domain.RoleUnknown
	roleConf := 0.0
	for _, cand := range contributions {
		if cand.RoleHint == domain.RoleUnknown {
			continue
		}
		switch {
		case cand.Confidence > roleConf:
			role, roleConf = cand.RoleHint, cand.Confidence
		case cand.Confidence == roleConf && cand.RoleHint.Precedence() > role.Precedence():
			role = cand.RoleHint
		}
	}

	name := displayName(contributions)
	id := g.id
	if id == "" {
		id = domain.NameID(name)
	}
	if name == "" {
		name = fmt.Sprintf("Community %.8s", id)
	}

	return domain.Community{
		ID:          id,
		DisplayName: name,
		Role:        role,
		Confidence:  confidence,
		FirstSeenAt: now,
		LastSeenAt:  now,
		Evidence:    evidence,
	}
}

// displayName picks the highest-confidence non-empty name contribution.
func displayName(contributions []domain.DetectionCandidate) string {
	for _, cand := range contributions {
		if cand.ExtractedName != "" {
			return cand.ExtractedName
		}
	}
	return ""
}
