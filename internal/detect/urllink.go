package detect

import (
	"regexp"

	"commwatch/internal/domain"
	"commwatch/internal/provider"
)

// Canonical community resource locators. IDs shorter than 15 digits are
// rejected: real community resource IDs are snowflake-sized and short numeric
// runs in URLs are almost always something else.
var communityURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:twitter\.com|x\.com)/i/communities/(\d+)`),
	regexp.MustCompile(`/communities/(\d+)`),
}

const minCommunityIDDigits = 15

// extractCommunityIDs pulls authoritative community IDs out of free text or a
// URL, deduplicated in first-seen order.
func extractCommunityIDs(text string) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, pat := range communityURLPatterns {
		for _, m := range pat.FindAllStringSubmatch(text, -1) {
			id := m[1]
			if len(id) < minCommunityIDDigits || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

const (
	// Link entities are expanded URLs, slightly stronger than raw text.
	urlLinkTextConfidence   = 0.88
	urlLinkEntityConfidence = 0.92
)

// URLLink scans post text and embedded links for canonical community URLs.
// The extracted ID is authoritative, so confidence sits in the high band.
func URLLink(_ provider.Profile, posts []provider.Post) []domain.DetectionCandidate {
	var out []domain.DetectionCandidate
	for _, post := range posts {
		for _, id := range extractCommunityIDs(post.Text) {
			out = append(out, domain.DetectionCandidate{
				RawFragment: post.Text,
				Method:      domain.MethodUrlLink,
				ExtractedID: id,
				Confidence:  urlLinkTextConfidence,
				RoleHint:    domain.RoleUnknown,
			})
		}
		for _, link := range post.Links {
			for _, id := range extractCommunityIDs(link) {
				out = append(out, domain.DetectionCandidate{
					RawFragment: link,
					Method:      domain.MethodUrlLink,
					ExtractedID: id,
					Confidence:  urlLinkEntityConfidence,
					RoleHint:    domain.RoleUnknown,
				})
			}
		}
	}
	return out
}

const (
	// Profile links may be stale, so the band sits below URLLink.
	profileLinkConfidence = 0.85
)

// ProfileLink applies the same URL extraction to the subject's bio and
// profile links.
func ProfileLink(profile provider.Profile, _ []provider.Post) []domain.DetectionCandidate {
	var out []domain.DetectionCandidate
	for _, id := range extractCommunityIDs(profile.Bio) {
		out = append(out, domain.DetectionCandidate{
			RawFragment: profile.Bio,
			Method:      domain.MethodProfileLink,
			ExtractedID: id,
			Confidence:  profileLinkConfidence,
			RoleHint:    domain.RoleUnknown,
		})
	}
	for _, link := range profile.Links {
		for _, id := range extractCommunityIDs(link) {
			out = append(out, domain.DetectionCandidate{
				RawFragment: link,
				Method:      domain.MethodProfileLink,
				ExtractedID: id,
				Confidence:  profileLinkConfidence,
				RoleHint:    domain.RoleUnknown,
			})
		}
	}
	return out
}
