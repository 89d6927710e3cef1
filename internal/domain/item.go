// Package domain holds the core data model shared by every pipeline stage.
package domain

// SourceKind identifies which provider path an item arrived through.
type SourceKind string

const (
	SourceFollowed SourceKind = "followed"
	SourceTrending SourceKind = "trending"
)

// Author is the posting account as reported by the provider.
type Author struct {
	ID        string `json:"id"`
	Handle    string `json:"handle"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Followers int    `json:"followers"`
}

// Engagement carries the non-negative interaction counters of a post.
// Missing counters default to zero at the adapter boundary.
type Engagement struct {
	Likes   int `json:"likes"`
	Reposts int `json:"reposts"`
	Replies int `json:"replies"`
	Quotes  int `json:"quotes"`
	Views   int `json:"views"`
}

// QuotedItem is the one-level-deep quoted post attached to an Item.
type QuotedItem struct {
	AuthorHandle string `json:"author_handle"`
	Text         string `json:"text"`
}

// Item is one collected social post, the atomic unit of the pipeline.
// ID is globally unique within one provider, but the same ID may arrive
// through both the followed and trending paths.
type Item struct {
	ID         string      `json:"id"`
	Text       string      `json:"text"`
	Author     Author      `json:"author"`
	CreatedAt  string      `json:"created_at"`
	Engagement Engagement  `json:"engagement"`
	Source     SourceKind  `json:"source_kind"`
	Language   string      `json:"language,omitempty"`
	URL        string      `json:"url,omitempty"`
	MediaURLs  []string    `json:"media_urls,omitempty"`
	Quoted     *QuotedItem `json:"quoted_item,omitempty"`
}

// Account is one monitored account from the account-graph provider.
type Account struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Followers   int    `json:"followers"`
}
