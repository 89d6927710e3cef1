package provider

import (
	"tweetwatch/internal/domain"
)

// itemPayload covers the post shapes the scrape source emits. Different
// endpoint generations spell the engagement counters differently; every
// spelling is declared here so normalization stays enumerable instead of
// scattered fallback chains.
type itemPayload struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	URL       string `json:"url"`
	CreatedAt string `json:"createdAt"`
	Lang      string `json:"lang"`
	Type      string `json:"type"`
	IsReply   bool   `json:"isReply"`

	// Current camelCase counters.
	LikeCount    *int `json:"likeCount"`
	RetweetCount *int `json:"retweetCount"`
	ReplyCount   *int `json:"replyCount"`
	QuoteCount   *int `json:"quoteCount"`
	ViewCount    *int `json:"viewCount"`

	// Legacy snake_case counters.
	FavoriteCount      *int `json:"favorite_count"`
	LegacyRetweetCount *int `json:"retweet_count"`
	LegacyReplyCount   *int `json:"reply_count"`

	// Graph-API nested counters.
	PublicMetrics *publicMetrics `json:"public_metrics"`

	Author      authorPayload    `json:"author"`
	QuotedTweet *quotedPayload   `json:"quoted_tweet"`
	Entities    *entitiesPayload `json:"extendedEntities"`
}

type publicMetrics struct {
	LikeCount       int `json:"like_count"`
	RetweetCount    int `json:"retweet_count"`
	ReplyCount      int `json:"reply_count"`
	QuoteCount      int `json:"quote_count"`
	ImpressionCount int `json:"impression_count"`
	FollowersCount  int `json:"followers_count"`
}

type authorPayload struct {
	ID             string         `json:"id"`
	UserName       string         `json:"userName"`
	ScreenName     string         `json:"screen_name"`
	Name           string         `json:"name"`
	ProfilePicture string         `json:"profilePicture"`
	Followers      *int           `json:"followers"`
	PublicMetrics  *publicMetrics `json:"public_metrics"`
}

type quotedPayload struct {
	Author authorPayload `json:"author"`
	Text   string        `json:"text"`
}

type entitiesPayload struct {
	Media []struct {
		MediaURLHTTPS string `json:"media_url_https"`
		URL           string `json:"url"`
	} `json:"media"`
}

// pick returns the first present counter, defaulting to zero.
func pick(candidates ...*int) int {
	for _, c := range candidates {
		if c != nil {
			return *c
		}
	}

	return 0
}

// toItem converts one payload into the canonical Item for the given source.
func (p *itemPayload) toItem(source domain.SourceKind) domain.Item {
	item := domain.Item{
		ID:        p.ID,
		Text:      p.Text,
		URL:       p.URL,
		CreatedAt: p.CreatedAt,
		Language:  p.Lang,
		Source:    source,
		Author:    p.Author.toAuthor(),
	}

	var nested publicMetrics
	if p.PublicMetrics != nil {
		nested = *p.PublicMetrics
	}

	item.Engagement = domain.Engagement{
		Likes:   pick(p.LikeCount, p.FavoriteCount, intPtrIf(p.PublicMetrics != nil, nested.LikeCount)),
		Reposts: pick(p.RetweetCount, p.LegacyRetweetCount, intPtrIf(p.PublicMetrics != nil, nested.RetweetCount)),
		Replies: pick(p.ReplyCount, p.LegacyReplyCount, intPtrIf(p.PublicMetrics != nil, nested.ReplyCount)),
		Quotes:  pick(p.QuoteCount, intPtrIf(p.PublicMetrics != nil, nested.QuoteCount)),
		Views:   pick(p.ViewCount, intPtrIf(p.PublicMetrics != nil, nested.ImpressionCount)),
	}

	if p.QuotedTweet != nil {
		item.Quoted = &domain.QuotedItem{
			AuthorHandle: p.QuotedTweet.Author.handle(),
			Text:         p.QuotedTweet.Text,
		}
	}

	if p.Entities != nil {
		for _, m := range p.Entities.Media {
			if m.MediaURLHTTPS != "" {
				item.MediaURLs = append(item.MediaURLs, m.MediaURLHTTPS)
			} else if m.URL != "" {
				item.MediaURLs = append(item.MediaURLs, m.URL)
			}
		}
	}

	return item
}

func intPtrIf(present bool, v int) *int {
	if !present {
		return nil
	}

	return &v
}

func (a *authorPayload) handle() string {
	if a.UserName != "" {
		return a.UserName
	}

	return a.ScreenName
}

func (a *authorPayload) toAuthor() domain.Author {
	followers := 0

	switch {
	case a.Followers != nil:
		followers = *a.Followers
	case a.PublicMetrics != nil:
		followers = a.PublicMetrics.FollowersCount
	}

	return domain.Author{
		ID:        a.ID,
		Handle:    a.handle(),
		Name:      a.Name,
		AvatarURL: a.ProfilePicture,
		Followers: followers,
	}
}

// accountPayload is the account-graph user shape.
type accountPayload struct {
	ID            string         `json:"id"`
	Username      string         `json:"username"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	PublicMetrics *publicMetrics `json:"public_metrics"`
}

func (p *accountPayload) toAccount() domain.Account {
	account := domain.Account{
		ID:          p.ID,
		Username:    p.Username,
		Name:        p.Name,
		Description: p.Description,
	}

	if p.PublicMetrics != nil {
		account.Followers = p.PublicMetrics.FollowersCount
	}

	return account
}
