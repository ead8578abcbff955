package detect

import (
	"strings"

	"commwatch/internal/domain"
	"commwatch/internal/provider"
)

// Posting inside a community is direct behavioral evidence of current
// membership, the strongest signal any detector produces.
const tweetPostConfidence = 0.95

// TweetPost detects posts made within a community context. The signal is the
// structural marker in post metadata, not anything in the text.
func TweetPost(_ provider.Profile, posts []provider.Post) []domain.DetectionCandidate {
	var out []domain.DetectionCandidate
	seen := make(map[string]bool)
	for _, post := range posts {
		if post.CommunityID == "" || seen[post.CommunityID] {
			continue
		}
		seen[post.CommunityID] = true
		out = append(out, domain.DetectionCandidate{
			RawFragment: post.Text,
			Method:      domain.MethodTweetPost,
			ExtractedID: post.CommunityID,
			Confidence:  tweetPostConfidence,
			RoleHint:    domain.RoleUnknown,
		})
	}
	return out
}

// Keywords that mark an account as representing a community rather than a
// person.
var communityAccountKeywords = []string{
	"community", "dao", "collective", "group", "club", "society",
	"organization", "network", "alliance", "guild", "team",
}

const (
	// Social graph evidence is always advisory; it can corroborate but
	// never flips a decision alone.
	socialGraphNameConfidence = 0.50
	socialGraphBioConfidence  = 0.35
	socialGraphLinkConfidence = 0.55
)

// SocialGraph treats followed accounts that look like community accounts as
// weak membership evidence. A community URL in a followed account's bio is
// slightly stronger since it carries an authoritative ID.
func SocialGraph(profile provider.Profile, _ []provider.Post) []domain.DetectionCandidate {
	var out []domain.DetectionCandidate
	for _, acct := range profile.Following {
		if ids := extractCommunityIDs(acct.Bio); len(ids) > 0 {
			for _, id := range ids {
				out = append(out, domain.DetectionCandidate{
					RawFragment: acct.Bio,
					Method:      domain.MethodSocialGraph,
					ExtractedID: id,
					Confidence:  socialGraphLinkConfidence,
					RoleHint:    domain.RoleUnknown,
				})
			}
			continue
		}

		name := acct.DisplayName
		if name == "" {
			name = acct.Handle
		}
		switch {
		case isCommunityName(acct.Handle) || isCommunityName(acct.DisplayName):
			out = append(out, domain.DetectionCandidate{
				RawFragment:   acct.Handle,
				Method:        domain.MethodSocialGraph,
				ExtractedName: name,
				Confidence:    socialGraphNameConfidence,
				RoleHint:      domain.RoleUnknown,
			})
		case containsCommunityKeyword(acct.Bio):
			out = append(out, domain.DetectionCandidate{
				RawFragment:   acct.Bio,
				Method:        domain.MethodSocialGraph,
				ExtractedName: name,
				Confidence:    socialGraphBioConfidence,
				RoleHint:      domain.RoleUnknown,
			})
		}
	}
	return out
}

func isCommunityName(s string) bool {
	if s == "" {
		return false
	}
	lower := strings.ToLower(s)
	if strings.HasSuffix(lower, "dao") || strings.HasSuffix(lower, "community") {
		return true
	}
	return containsCommunityKeyword(lower)
}

func containsCommunityKeyword(s string) bool {
	if s == "" {
		return false
	}
	lower := strings.ToLower(s)
	for _, kw := range communityAccountKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
