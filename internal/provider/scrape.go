package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tweetwatch/internal/domain"
)

const (
	defaultRetryAttempts = 3
	rateLimitWait        = 10 * time.Second
)

// ScrapeConfig configures the scrape-source client.
type ScrapeConfig struct {
	APIKey         string
	BaseURL        string
	RetryAttempts  int
	Timeout        time.Duration
	ExcludeReposts bool
	ExcludeReplies bool
	ItemsPerUser   int
	MinViews       int
}

// Doer is the subset of http.Client the providers need.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ScrapeClient talks to the post-scraping source.
type ScrapeClient struct {
	cfg    ScrapeConfig
	http   Doer
	logger *zerolog.Logger
}

// NewScrapeClient creates a scrape-source item provider.
func NewScrapeClient(cfg ScrapeConfig, doer Doer, logger *zerolog.Logger) *ScrapeClient {
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = defaultRetryAttempts
	}

	if doer == nil {
		doer = &http.Client{Timeout: cfg.Timeout}
	}

	return &ScrapeClient{cfg: cfg, http: doer, logger: logger}
}

type userItemsResponse struct {
	Data struct {
		Tweets []itemPayload `json:"tweets"`
	} `json:"data"`
}

type searchResponse struct {
	Tweets []itemPayload `json:"tweets"`
	Data   struct {
		Tweets []itemPayload `json:"tweets"`
	} `json:"data"`
}

// UserItems fetches the latest posts of one account, applying the
// repost/reply exclusions and the per-user cap.
func (c *ScrapeClient) UserItems(ctx context.Context, username string) ([]domain.Item, error) {
	body, err := c.get(ctx, "user/last_tweets", url.Values{"userName": {username}})
	if err != nil {
		return nil, err
	}

	var resp userItemsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode user items: %w", err)
	}

	items := make([]domain.Item, 0, len(resp.Data.Tweets))

	for i := range resp.Data.Tweets {
		p := &resp.Data.Tweets[i]

		if c.cfg.ExcludeReposts && (p.Type == "retweet" || strings.HasPrefix(p.Text, "RT @")) {
			continue
		}

		if c.cfg.ExcludeReplies && p.IsReply {
			continue
		}

		items = append(items, p.toItem(domain.SourceFollowed))

		if c.cfg.ItemsPerUser > 0 && len(items) >= c.cfg.ItemsPerUser {
			break
		}
	}

	return items, nil
}

// Search runs the trending advanced search, keeping posts above the view
// threshold sorted by views descending, capped at limit.
func (c *ScrapeClient) Search(ctx context.Context, query string, limit int) ([]domain.Item, error) {
	body, err := c.get(ctx, "tweet/advanced_search", url.Values{
		"query":     {query},
		"queryType": {"Top"},
	})
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	payloads := resp.Tweets
	if len(payloads) == 0 {
		payloads = resp.Data.Tweets
	}

	items := make([]domain.Item, 0, len(payloads))

	for i := range payloads {
		item := payloads[i].toItem(domain.SourceTrending)
		if item.Engagement.Views >= c.cfg.MinViews {
			items = append(items, item)
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Engagement.Views > items[j].Engagement.Views
	})

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	return items, nil
}

func (c *ScrapeClient) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	target := strings.TrimRight(c.cfg.BaseURL, "/") + "/" + endpoint
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var lastErr error

	for attempt := 0; attempt < c.cfg.RetryAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}

		req.Header.Set("X-API-Key", c.cfg.APIKey)

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			c.logger.Warn().Str("endpoint", endpoint).Msg("scrape source rate limited, waiting")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(rateLimitWait):
			}

			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("scrape source status %d", resp.StatusCode)
			continue
		}

		return body, nil
	}

	return nil, fmt.Errorf("scrape request failed after %d attempts: %w", c.cfg.RetryAttempts, lastErr)
}
