package domain

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"
	"unicode"
)

// Role is a subject's role within a community, ordered by specificity.
type Role string

const (
	RoleUnknown   Role = "Unknown"
	RoleMember    Role = "Member"
	RoleModerator Role = "Moderator"
	RoleAdmin     Role = "Admin"
	RoleCreator   Role = "Creator"
)

var rolePrecedence = map[Role]int{
	RoleUnknown:   0,
	RoleMember:    1,
	RoleModerator: 2,
	RoleAdmin:     3,
	RoleCreator:   4,
}

// Precedence ranks roles so that the most specific one wins on ties.
// Creator > Admin > Moderator > Member > Unknown.
func (r Role) Precedence() int {
	return rolePrecedence[r]
}

func (r Role) String() string {
	return string(r)
}

// DetectionMethod tags which strategy produced a candidate.
type DetectionMethod string

const (
	MethodUrlLink      DetectionMethod = "url_link"
	MethodProfileLink  DetectionMethod = "profile_link"
	MethodTweetPost    DetectionMethod = "tweet_post"
	MethodSocialGraph  DetectionMethod = "social_graph"
	MethodContentTheme DetectionMethod = "content_theme"
	MethodTextPattern  DetectionMethod = "text_pattern"
)

func (m DetectionMethod) String() string {
	return string(m)
}

// Community is the canonical membership entity for one subject. ID is unique
// within a subject's canonical set.
type Community struct {
	ID          string            `json:"id"`
	DisplayName string            `json:"display_name"`
	Role        Role              `json:"role"`
	Confidence  float64           `json:"confidence"`
	FirstSeenAt time.Time         `json:"first_seen_at"`
	LastSeenAt  time.Time         `json:"last_seen_at"`
	Evidence    []DetectionMethod `json:"evidence"`
}

// HasEvidence reports whether the given method contributed to this community.
func (c Community) HasEvidence(method DetectionMethod) bool {
	for _, m := range c.Evidence {
		if m == method {
			return true
		}
	}
	return false
}

// NameID derives a stable community ID from a display name when no
// authoritative resource ID is available. The name is normalized first so
// spelling variants ("AI Builders" / "Ai-Builders") map to the same ID.
func NameID(name string) string {
	h := fnv.New64a()
	h.Write([]byte(NormalizeName(name)))
	return fmt.Sprintf("name:%016x", h.Sum64())
}

// NormalizeName lowercases a community name, strips punctuation, and
// collapses whitespace for comparison and hashing.
func NormalizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '_':
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
