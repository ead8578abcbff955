package detect

import (
	"sort"
	"strings"

	"commwatch/internal/domain"
	"commwatch/internal/provider"
)

// Known-community keyword table. A theme becomes a candidate only when its
// keywords recur across the subject's recent posts.
var themeKeywords = map[string][]string{
	"crypto":  {"bitcoin", "ethereum", "crypto", "blockchain", "defi", "yield", "staking"},
	"nft":     {"nft", "opensea", "pfp", "mint", "whitelist", "drop"},
	"web3":    {"web3", "dapp", "protocol", "smart contract", "metamask", "wallet"},
	"dao":     {"dao", "governance", "proposal", "voting", "treasury", "collective"},
	"gaming":  {"gaming", "play2earn", "p2e", "guild", "metaverse", "gamefi"},
	"ai":      {"artificial intelligence", "machine learning", "gpt", "llm", " ai "},
	"startup": {"startup", "founder", "entrepreneurship", "funding", "pitch"},
}

const (
	// A theme needs this many keyword hits before it counts as consistent.
	themeHitThreshold = 5

	themeBaseConfidence = 0.40
	themeStepConfidence = 0.05
	themeMaxConfidence  = 0.65
)

// ContentTheme clusters recent posts by keyword co-occurrence against the
// known-community theme table. Confidence grows with hit count but stays in
// the medium-low band.
func ContentTheme(_ provider.Profile, posts []provider.Post) []domain.DetectionCandidate {
	if len(posts) == 0 {
		return nil
	}

	hits := make(map[string]int)
	samples := make(map[string]string)
	for _, post := range posts {
		text := " " + strings.ToLower(post.Text) + " "
		for theme, keywords := range themeKeywords {
			for _, kw := range keywords {
				n := strings.Count(text, kw)
				if n == 0 {
					continue
				}
				hits[theme] += n
				if samples[theme] == "" {
					samples[theme] = post.Text
				}
			}
		}
	}

	themes := make([]string, 0, len(hits))
	for theme, n := range hits {
		if n >= themeHitThreshold {
			themes = append(themes, theme)
		}
	}
	sort.Strings(themes)

	var out []domain.DetectionCandidate
	for _, theme := range themes {
		conf := themeBaseConfidence + themeStepConfidence*float64(hits[theme]-themeHitThreshold)
		if conf > themeMaxConfidence {
			conf = themeMaxConfidence
		}
		out = append(out, domain.DetectionCandidate{
			RawFragment:   samples[theme],
			Method:        domain.MethodContentTheme,
			ExtractedName: themeDisplayName(theme),
			Confidence:    conf,
			RoleHint:      domain.RoleUnknown,
		})
	}
	return out
}

func themeDisplayName(theme string) string {
	return strings.ToUpper(theme[:1]) + theme[1:] + " Community"
}
