package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tweetwatch/internal/domain"
)

const followingPageSize = 1000

// GraphConfig configures the account-graph client.
type GraphConfig struct {
	BearerToken   string
	BaseURL       string
	RetryAttempts int
	MaxAccounts   int
}

// GraphClient fetches the monitored-account list from the account-graph
// source, following pagination until exhausted or MaxAccounts is reached.
type GraphClient struct {
	cfg    GraphConfig
	http   Doer
	logger *zerolog.Logger
}

// NewGraphClient creates an account provider.
func NewGraphClient(cfg GraphConfig, doer Doer, logger *zerolog.Logger) *GraphClient {
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = defaultRetryAttempts
	}

	if doer == nil {
		doer = &http.Client{Timeout: 30 * time.Second}
	}

	return &GraphClient{cfg: cfg, http: doer, logger: logger}
}

type userLookupResponse struct {
	Data accountPayload `json:"data"`
}

type followingResponse struct {
	Data []accountPayload `json:"data"`
	Meta struct {
		NextToken string `json:"next_token"`
	} `json:"meta"`
}

// Following resolves the username and pages through its following list.
func (c *GraphClient) Following(ctx context.Context, username string) ([]domain.Account, error) {
	body, err := c.get(ctx, "users/by/username/"+url.PathEscape(username), nil)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	var lookup userLookupResponse
	if err := json.Unmarshal(body, &lookup); err != nil {
		return nil, fmt.Errorf("decode user lookup: %w", err)
	}

	var (
		accounts  []domain.Account
		nextToken string
	)

	for {
		params := url.Values{
			"max_results": {strconv.Itoa(followingPageSize)},
			"user.fields": {"username,name,description,public_metrics"},
		}
		if nextToken != "" {
			params.Set("pagination_token", nextToken)
		}

		body, err := c.get(ctx, "users/"+lookup.Data.ID+"/following", params)
		if err != nil {
			return nil, fmt.Errorf("fetch following page: %w", err)
		}

		var page followingResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("decode following page: %w", err)
		}

		for i := range page.Data {
			accounts = append(accounts, page.Data[i].toAccount())
		}

		if c.cfg.MaxAccounts > 0 && len(accounts) >= c.cfg.MaxAccounts {
			return accounts[:c.cfg.MaxAccounts], nil
		}

		nextToken = page.Meta.NextToken
		if nextToken == "" {
			return accounts, nil
		}
	}
}

func (c *GraphClient) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
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

		req.Header.Set("Authorization", "Bearer "+c.cfg.BearerToken)

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
			wait := rateLimitWait
			if reset := resp.Header.Get("x-rate-limit-reset"); reset != "" {
				if epoch, err := strconv.ParseInt(reset, 10, 64); err == nil {
					if until := time.Until(time.Unix(epoch, 0)); until > wait {
						wait = until
					}
				}
			}

			c.logger.Warn().Dur("wait", wait).Msg("account graph rate limited, waiting")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}

			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("account graph status %d", resp.StatusCode)
			continue
		}

		return body, nil
	}

	return nil, fmt.Errorf("graph request failed after %d attempts: %w", c.cfg.RetryAttempts, lastErr)
}
