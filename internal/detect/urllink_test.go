package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commwatch/internal/domain"
	"commwatch/internal/provider"
)

func TestURLLink(t *testing.T) {
	tests := []struct {
		name    string
		posts   []provider.Post
		wantIDs []string
	}{
		{
			name: "canonical community URL in text",
			posts: []provider.Post{
				{Text: "come hang out https://x.com/i/communities/162938475610293847"},
			},
			wantIDs: []string{"162938475610293847"},
		},
		{
			name: "twitter.com host",
			posts: []provider.Post{
				{Text: "https://twitter.com/i/communities/162938475610293847"},
			},
			wantIDs: []string{"162938475610293847"},
		},
		{
			name: "short numeric id rejected",
			posts: []provider.Post{
				{Text: "see /communities/12345 for details"},
			},
			wantIDs: nil,
		},
		{
			name: "id in link entity",
			posts: []provider.Post{
				{Text: "check this out", Links: []string{"https://x.com/i/communities/998877665544332211"}},
			},
			wantIDs: []string{"998877665544332211"},
		},
		{
			name: "duplicate id in one post deduplicated",
			posts: []provider.Post{
				{Text: "/communities/162938475610293847 and again /communities/162938475610293847"},
			},
			wantIDs: []string{"162938475610293847"},
		},
		{
			name:    "no posts",
			posts:   nil,
			wantIDs: nil,
		},
		{
			name: "malformed text yields nothing, never an error",
			posts: []provider.Post{
				{Text: "communities/ communities/abc /communities/"},
			},
			wantIDs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := URLLink(provider.Profile{}, tt.posts)
			require.Len(t, got, len(tt.wantIDs))
			for i, c := range got {
				assert.Equal(t, tt.wantIDs[i], c.ExtractedID)
				assert.Equal(t, domain.MethodUrlLink, c.Method)
				assert.GreaterOrEqual(t, c.Confidence, 0.85)
				assert.LessOrEqual(t, c.Confidence, 0.95)
			}
		})
	}
}

func TestURLLinkEntityOutranksText(t *testing.T) {
	fromText := URLLink(provider.Profile{}, []provider.Post{
		{Text: "/communities/162938475610293847"},
	})
	fromEntity := URLLink(provider.Profile{}, []provider.Post{
		{Links: []string{"https://x.com/i/communities/162938475610293847"}},
	})
	require.Len(t, fromText, 1)
	require.Len(t, fromEntity, 1)
	assert.Greater(t, fromEntity[0].Confidence, fromText[0].Confidence)
}

func TestProfileLink(t *testing.T) {
	profile := provider.Profile{
		Bio:   "building things. https://x.com/i/communities/162938475610293847",
		Links: []string{"https://x.com/i/communities/998877665544332211"},
	}

	got := ProfileLink(profile, nil)
	require.Len(t, got, 2)
	assert.Equal(t, "162938475610293847", got[0].ExtractedID)
	assert.Equal(t, "998877665544332211", got[1].ExtractedID)
	for _, c := range got {
		assert.Equal(t, domain.MethodProfileLink, c.Method)
		assert.GreaterOrEqual(t, c.Confidence, 0.80)
		assert.LessOrEqual(t, c.Confidence, 0.90)
	}

	assert.Empty(t, ProfileLink(provider.Profile{Bio: "no links here"}, nil))
}
