package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commwatch/internal/domain"
	"commwatch/internal/provider"
)

func TestTweetPost(t *testing.T) {
	posts := []provider.Post{
		{ID: "1", Text: "gm", CommunityID: "162938475610293847"},
		{ID: "2", Text: "another one", CommunityID: "162938475610293847"},
		{ID: "3", Text: "not in a community"},
		{ID: "4", Text: "different place", CommunityID: "998877665544332211"},
	}

	got := TweetPost(provider.Profile{}, posts)
	require.Len(t, got, 2, "one candidate per distinct community context")
	assert.Equal(t, "162938475610293847", got[0].ExtractedID)
	assert.Equal(t, "998877665544332211", got[1].ExtractedID)
	for _, c := range got {
		assert.Equal(t, domain.MethodTweetPost, c.Method)
		assert.GreaterOrEqual(t, c.Confidence, 0.90, "behavioral evidence is the strongest signal")
		assert.LessOrEqual(t, c.Confidence, 0.98)
	}

	assert.Empty(t, TweetPost(provider.Profile{}, nil))
}

func TestSocialGraph(t *testing.T) {
	profile := provider.Profile{
		Following: []provider.Account{
			{ID: "a1", Handle: "buildersdao", DisplayName: "Builders DAO"},
			{ID: "a2", Handle: "alice", DisplayName: "Alice", Bio: "shipping side projects"},
			{ID: "a3", Handle: "bob", DisplayName: "Bob", Bio: "member of a great collective"},
			{ID: "a4", Handle: "nftclub", DisplayName: "NFT Club"},
		},
	}

	got := SocialGraph(profile, nil)
	require.Len(t, got, 3)

	names := make([]string, 0, len(got))
	for _, c := range got {
		names = append(names, c.ExtractedName)
		assert.Equal(t, domain.MethodSocialGraph, c.Method)
		assert.GreaterOrEqual(t, c.Confidence, 0.30)
		assert.LessOrEqual(t, c.Confidence, 0.55, "social graph evidence stays advisory")
	}
	assert.Contains(t, names, "Builders DAO")
	assert.Contains(t, names, "NFT Club")
	assert.Contains(t, names, "Bob")
}

func TestSocialGraphBioLinkCarriesID(t *testing.T) {
	profile := provider.Profile{
		Following: []provider.Account{
			{ID: "a1", Handle: "hub", Bio: "home: https://x.com/i/communities/162938475610293847"},
		},
	}

	got := SocialGraph(profile, nil)
	require.Len(t, got, 1)
	assert.Equal(t, "162938475610293847", got[0].ExtractedID)
}

func TestSocialGraphEmpty(t *testing.T) {
	assert.Empty(t, SocialGraph(provider.Profile{}, nil))
}
