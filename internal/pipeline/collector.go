package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tweetwatch/internal/domain"
	"tweetwatch/internal/filter"
	"tweetwatch/internal/observability"
	"tweetwatch/internal/provider"
	"tweetwatch/internal/store"
)

// CollectorConfig tunes one collect run.
type CollectorConfig struct {
	Username         string
	ExcludeUsers     []string
	Lookback         time.Duration
	TrendingEnabled  bool
	TrendingQuery    string
	TrendingMaxItems int
	AccountCacheTTL  time.Duration
	Deduplicate      bool
	Content          filter.ContentConfig
}

// Collector gathers raw items from the monitored accounts and the trending
// search, applying ledger, window and content filters. It mutates the
// ledger in memory only; the caller commits it after the raw artifact has
// been durably written, so a crash mid-run never marks unrecorded items as
// seen.
type Collector struct {
	cfg      CollectorConfig
	items    provider.ItemProvider
	accounts provider.AccountProvider
	clock    store.Clock
	metrics  *observability.Metrics
	logger   *zerolog.Logger
}

// NewCollector creates a collector.
func NewCollector(cfg CollectorConfig, items provider.ItemProvider, accounts provider.AccountProvider, clock store.Clock, metrics *observability.Metrics, logger *zerolog.Logger) *Collector {
	return &Collector{
		cfg:      cfg,
		items:    items,
		accounts: accounts,
		clock:    clock,
		metrics:  metrics,
		logger:   logger,
	}
}

// Run executes the collect stage. Per-account provider failures are soft;
// only cancellation and a completely unreachable account list are fatal.
func (c *Collector) Run(ctx context.Context, ledger *store.Ledger) (*domain.RawCollection, error) {
	c.logger.Debug().Str("state", string(StateCollecting)).Msg("pipeline state")

	now := c.clock.Now()
	window := filter.NewWindow(c.cfg.Lookback)
	content := filter.NewContent(c.cfg.Content)

	accounts, err := c.monitoredAccounts(ctx, ledger, now)
	if err != nil {
		return nil, err
	}

	c.logger.Info().Int("accounts", len(accounts)).Msg("collecting followed accounts")

	var (
		followed  []domain.AccountItems
		collected = make(map[string]struct{})
		calls     int
	)

	for _, account := range accounts {
		if err := checkpoint(ctx); err != nil {
			return nil, err
		}

		items, err := c.items.UserItems(ctx, account.Username)

		calls++

		if err != nil {
			c.logger.Warn().Err(err).Str("account", account.Username).Msg("account fetch failed, skipping")
			continue
		}

		kept := c.filterNew(items, ledger, window, content, now, collected)
		if len(kept) > 0 {
			followed = append(followed, domain.AccountItems{Account: account, Items: kept})

			for range kept {
				c.metrics.ItemCollected(string(domain.SourceFollowed))
			}
		}
	}

	var trending []domain.Item

	if c.cfg.TrendingEnabled {
		if err := checkpoint(ctx); err != nil {
			return nil, err
		}

		items, err := c.items.Search(ctx, c.cfg.TrendingQuery, c.cfg.TrendingMaxItems)

		calls++

		if err != nil {
			c.logger.Warn().Err(err).Msg("trending search failed, continuing without it")
		} else {
			trending = c.filterNew(items, ledger, window, content, now, collected)

			for range trending {
				c.metrics.ItemCollected(string(domain.SourceTrending))
			}
		}
	}

	total := 0
	for _, group := range followed {
		total += len(group.Items)
	}

	total += len(trending)

	c.logger.Info().
		Int("followed", total-len(trending)).
		Int("trending", len(trending)).
		Int("provider_calls", calls).
		Msg("collection done")

	return &domain.RawCollection{
		Metadata: domain.CollectionMeta{
			CollectedAt:       now,
			LookbackHours:     c.cfg.Lookback.Hours(),
			AccountCount:      len(accounts),
			TotalItems:        total,
			ProviderCallCount: calls,
		},
		Followed: followed,
		Trending: trending,
	}, nil
}

// filterNew applies cross-source dedup, the ledger, the look-back window
// and the content rules, marking survivors seen in memory.
func (c *Collector) filterNew(items []domain.Item, ledger *store.Ledger, window *filter.Window, content *filter.Content, now time.Time, collected map[string]struct{}) []domain.Item {
	var kept []domain.Item

	for _, item := range items {
		if _, dup := collected[item.ID]; dup {
			c.metrics.ItemFiltered("cross_source_duplicate")
			continue
		}

		if c.cfg.Deduplicate && ledger.IsSeen(item.ID) {
			c.metrics.ItemFiltered("seen")
			continue
		}

		if !window.InWindow(item, now) {
			c.metrics.ItemFiltered("window")
			continue
		}

		ok, reason := content.Accept(item)
		if !ok {
			c.metrics.ItemFiltered(reason)
			continue
		}

		collected[item.ID] = struct{}{}
		ledger.MarkSeen(item.ID)
		kept = append(kept, item)
	}

	return kept
}

// monitoredAccounts serves the account list from the ledger cache while
// fresh, refreshing from the graph provider otherwise. Exclusions apply
// after caching so a watch-list edit takes effect without a refetch.
func (c *Collector) monitoredAccounts(ctx context.Context, ledger *store.Ledger, now time.Time) ([]domain.Account, error) {
	accounts, fresh := ledger.CachedAccounts(now, c.cfg.AccountCacheTTL)
	if fresh {
		c.logger.Info().Int("accounts", len(accounts)).Msg("using cached account list")

		return c.applyExclusions(accounts), nil
	}

	if c.accounts == nil {
		if len(accounts) > 0 {
			c.logger.Warn().Msg("account cache stale and no graph credential configured, reusing stale cache")

			return c.applyExclusions(accounts), nil
		}

		return nil, fmt.Errorf("no cached account list and no graph credential configured")
	}

	fetched, err := c.accounts.Following(ctx, c.cfg.Username)
	if err != nil {
		if len(accounts) > 0 {
			c.logger.Warn().Err(err).Msg("account list refresh failed, reusing stale cache")

			return c.applyExclusions(accounts), nil
		}

		return nil, fmt.Errorf("fetch account list: %w", err)
	}

	ledger.SetAccountCache(fetched, now)

	return c.applyExclusions(fetched), nil
}

func (c *Collector) applyExclusions(accounts []domain.Account) []domain.Account {
	if len(c.cfg.ExcludeUsers) == 0 {
		return accounts
	}

	excluded := make(map[string]struct{}, len(c.cfg.ExcludeUsers))
	for _, u := range c.cfg.ExcludeUsers {
		excluded[u] = struct{}{}
	}

	kept := make([]domain.Account, 0, len(accounts))

	for _, account := range accounts {
		if _, skip := excluded[account.Username]; !skip {
			kept = append(kept, account)
		}
	}

	return kept
}
