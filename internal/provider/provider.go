// Package provider adapts upstream scrape and account-graph payloads into
// the canonical domain model. The HTTP clients here are thin; all curation
// logic lives downstream.
package provider

import (
	"context"

	"tweetwatch/internal/domain"
)

// ItemProvider returns raw posts for one account or one search query.
type ItemProvider interface {
	UserItems(ctx context.Context, username string) ([]domain.Item, error)
	Search(ctx context.Context, query string, limit int) ([]domain.Item, error)
}

// AccountProvider returns the monitored-account list of one user.
type AccountProvider interface {
	Following(ctx context.Context, username string) ([]domain.Account, error)
}
