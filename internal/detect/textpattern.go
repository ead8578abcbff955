package detect

import (
	"regexp"
	"strings"
	"unicode"

	"commwatch/internal/domain"
	"commwatch/internal/provider"
)

// Announcement phrasings. Each pattern captures the community name; the role
// hint follows the verb ("created" phrasing marks a Creator, "joined" a
// Member). Confidence reflects phrase specificity within the 0.60-0.85 band.
type textPattern struct {
	re         *regexp.Regexp
	roleHint   domain.Role
	confidence float64
}

var textPatterns = []textPattern{
	{
		re:         regexp.MustCompile(`(?i)(?:created|launched|founded|started)\s+(?:a\s+)?(?:new\s+)?(?:the\s+)?(.+?)\s+community`),
		roleHint:   domain.RoleCreator,
		confidence: 0.85,
	},
	{
		re:         regexp.MustCompile(`(?i)admin\s+of\s+(?:the\s+)?(.+?)\s+community`),
		roleHint:   domain.RoleAdmin,
		confidence: 0.75,
	},
	{
		re:         regexp.MustCompile(`(?i)(?:moderator|mod)\s+of\s+(?:the\s+)?(.+?)\s+community`),
		roleHint:   domain.RoleModerator,
		confidence: 0.75,
	},
	{
		re:         regexp.MustCompile(`(?i)(?:joined|became part of|now (?:a )?member of|member of)\s+(?:the\s+)?(.+?)\s+community`),
		roleHint:   domain.RoleMember,
		confidence: 0.75,
	},
	{
		re:         regexp.MustCompile(`(?i)(?:excited|happy|thrilled|proud)\s+to\s+(?:join|announce)\s+(?:the\s+)?(.+?)\s+community`),
		roleHint:   domain.RoleMember,
		confidence: 0.65,
	},
}

const (
	minCaptureLen = 3
	maxCaptureLen = 30
)

// plausibleName rejects capture groups that cannot be community names:
// wrong length, pure numbers, or punctuation-only runs.
func plausibleName(name string) bool {
	name = strings.TrimSpace(name)
	if len(name) < minCaptureLen || len(name) > maxCaptureLen {
		return false
	}
	hasLetter := false
	allDigits := true
	for _, r := range name {
		if unicode.IsLetter(r) {
			hasLetter = true
		}
		if !unicode.IsDigit(r) {
			allDigits = false
		}
	}
	return hasLetter && !allDigits
}

// TextPattern matches natural-language announcements of joining or creating a
// community. It never fires on implausible name captures, trading recall for
// a low false-positive rate.
func TextPattern(_ provider.Profile, posts []provider.Post) []domain.DetectionCandidate {
	var out []domain.DetectionCandidate
	for _, post := range posts {
		for _, tp := range textPatterns {
			for _, m := range tp.re.FindAllStringSubmatch(post.Text, -1) {
				name := strings.TrimSpace(m[1])
				if !plausibleName(name) {
					continue
				}
				out = append(out, domain.DetectionCandidate{
					RawFragment:   m[0],
					Method:        domain.MethodTextPattern,
					ExtractedName: name,
					Confidence:    tp.confidence,
					RoleHint:      tp.roleHint,
				})
			}
		}
	}
	return out
}
