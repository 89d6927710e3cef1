package provider

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweetwatch/internal/domain"
)

func decodeItem(t *testing.T, raw string) itemPayload {
	t.Helper()

	var payload itemPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))

	return payload
}

func TestToItemEngagementSpellings(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want domain.Engagement
	}{
		{
			name: "camelCase counters",
			raw: `{
				"id": "1",
				"likeCount": 12, "retweetCount": 3, "replyCount": 2,
				"quoteCount": 1, "viewCount": 5000
			}`,
			want: domain.Engagement{Likes: 12, Reposts: 3, Replies: 2, Quotes: 1, Views: 5000},
		},
		{
			name: "legacy snake_case counters",
			raw: `{
				"id": "2",
				"favorite_count": 7, "retweet_count": 4, "reply_count": 1
			}`,
			want: domain.Engagement{Likes: 7, Reposts: 4, Replies: 1},
		},
		{
			name: "nested public_metrics",
			raw: `{
				"id": "3",
				"public_metrics": {
					"like_count": 9, "retweet_count": 2, "reply_count": 3,
					"quote_count": 1, "impression_count": 800
				}
			}`,
			want: domain.Engagement{Likes: 9, Reposts: 2, Replies: 3, Quotes: 1, Views: 800},
		},
		{
			name: "camelCase wins over legacy and nested",
			raw: `{
				"id": "4",
				"likeCount": 100,
				"favorite_count": 1,
				"public_metrics": {"like_count": 2}
			}`,
			want: domain.Engagement{Likes: 100},
		},
		{
			name: "explicit zero beats nested fallback",
			raw: `{
				"id": "5",
				"likeCount": 0,
				"public_metrics": {"like_count": 50}
			}`,
			want: domain.Engagement{Likes: 0},
		},
		{
			name: "no counters at all default to zero",
			raw:  `{"id": "6"}`,
			want: domain.Engagement{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := decodeItem(t, tt.raw)

			assert.Equal(t, tt.want, payload.toItem(domain.SourceFollowed).Engagement)
		})
	}
}

func TestToItemCarriesCoreFields(t *testing.T) {
	payload := decodeItem(t, `{
		"id": "1890000000000000001",
		"text": "weights are out",
		"url": "https://x.com/karpathy/status/1890000000000000001",
		"createdAt": "Sat Feb 07 11:01:48 +0000 2026",
		"lang": "en",
		"author": {"id": "10", "userName": "karpathy", "name": "Andrej", "followers": 900000},
		"quoted_tweet": {"author": {"screen_name": "openai"}, "text": "announcing"},
		"extendedEntities": {"media": [{"media_url_https": "https://pbs.example/img.jpg"}]}
	}`)

	item := payload.toItem(domain.SourceTrending)

	assert.Equal(t, "1890000000000000001", item.ID)
	assert.Equal(t, domain.SourceTrending, item.Source)
	assert.Equal(t, "en", item.Language)
	assert.Equal(t, "karpathy", item.Author.Handle)
	assert.Equal(t, 900000, item.Author.Followers)

	require.NotNil(t, item.Quoted)
	assert.Equal(t, "openai", item.Quoted.AuthorHandle)
	assert.Equal(t, "announcing", item.Quoted.Text)

	assert.Equal(t, []string{"https://pbs.example/img.jpg"}, item.MediaURLs)
}

func TestAuthorHandleFallsBackToScreenName(t *testing.T) {
	author := authorPayload{ScreenName: "sama"}

	assert.Equal(t, "sama", author.handle())

	author.UserName = "sama_official"
	assert.Equal(t, "sama_official", author.handle())
}

func TestToAccountNestedFollowers(t *testing.T) {
	var payload accountPayload

	require.NoError(t, json.Unmarshal([]byte(`{
		"id": "10", "username": "karpathy", "name": "Andrej",
		"description": "building",
		"public_metrics": {"followers_count": 900000}
	}`), &payload))

	account := payload.toAccount()

	assert.Equal(t, "karpathy", account.Username)
	assert.Equal(t, 900000, account.Followers)
}
