package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"tweetwatch/internal/config"
	"tweetwatch/internal/filter"
	"tweetwatch/internal/llm"
	"tweetwatch/internal/notify"
	"tweetwatch/internal/observability"
	"tweetwatch/internal/pipeline"
	"tweetwatch/internal/provider"
	"tweetwatch/internal/report"
	"tweetwatch/internal/store"
)

// app is the wired application shared by every subcommand.
type app struct {
	cfg       *config.Config
	watchlist *config.Watchlist
	logger    zerolog.Logger
	metrics   *observability.Metrics
	clock     store.Clock
	store     store.Store
	writer    *report.Writer
}

func newRootCmd() *cobra.Command {
	var a app

	root := &cobra.Command{
		Use:           "tweetwatch",
		Short:         "Curate AI-themed social posts into periodic digest reports",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.init(); err != nil {
				return err
			}

			if a.cfg.MetricsPort > 0 {
				go func() {
					if err := observability.Serve(cmd.Context(), a.cfg.MetricsPort, &a.logger); err != nil {
						a.logger.Warn().Err(err).Msg("metrics server stopped")
					}
				}()
			}

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runAll(cmd.Context())
		},
	}

	root.AddCommand(newCollectCmd(&a), newAnalyzeCmd(&a), newReportCmd(&a))

	return root
}

func (a *app) init() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	watchlist, err := config.LoadWatchlist(cfg.WatchlistFile)
	if err != nil {
		return fmt.Errorf("load watchlist: %w", err)
	}

	a.cfg = cfg
	a.watchlist = watchlist
	a.logger = newLogger(cfg.AppEnv)
	a.clock = store.SystemClock()
	a.store = store.NewFileStore(cfg.StateFile)
	a.writer = report.NewWriter(cfg.OutputDir, &a.logger)

	if cfg.MetricsPort > 0 {
		a.metrics = observability.New(prometheus.DefaultRegisterer)
	}

	return nil
}

func newLogger(appEnv string) zerolog.Logger {
	if appEnv == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
			With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// orchestrator returns the LLM orchestrator, or nil when no credential is
// configured. Callers degrade instead of failing.
func (a *app) orchestrator() *llm.Orchestrator {
	if a.cfg.LLMAPIKey == "" {
		return nil
	}

	completer := llm.NewClient(llm.ClientConfig{
		APIKey:          a.cfg.LLMAPIKey,
		BaseURL:         a.cfg.LLMBaseURL,
		Model:           a.cfg.LLMModel,
		MaxOutputTokens: a.cfg.LLMMaxOutputTokens,
		RateLimitRPS:    a.cfg.RateLimitRPS,
	}, &a.logger)

	return llm.NewOrchestrator(completer, a.cfg.LLMMaxRetries, a.cfg.LLMTimeout, &a.logger)
}

// pipelineOrchestrator boxes the orchestrator for the pipeline without
// letting a typed nil pointer masquerade as a live interface.
func (a *app) pipelineOrchestrator() pipeline.Orchestrator {
	orch := a.orchestrator()
	if orch == nil {
		return nil
	}

	return orch
}

func (a *app) collector() (*pipeline.Collector, error) {
	if a.cfg.ScrapeAPIKey == "" {
		return nil, fmt.Errorf("SCRAPE_API_KEY is required for collection")
	}

	items := provider.NewScrapeClient(provider.ScrapeConfig{
		APIKey:         a.cfg.ScrapeAPIKey,
		BaseURL:        a.cfg.ScrapeBaseURL,
		RetryAttempts:  a.cfg.ProviderRetry,
		Timeout:        a.cfg.RequestTimeout,
		ExcludeReposts: a.cfg.ExcludeReposts,
		ExcludeReplies: a.cfg.ExcludeReplies,
		ItemsPerUser:   a.cfg.ItemsPerAccount,
		MinViews:       a.cfg.TrendingMinViews,
	}, nil, &a.logger)

	var accounts provider.AccountProvider
	if a.cfg.GraphAPIKey != "" {
		accounts = provider.NewGraphClient(provider.GraphConfig{
			BearerToken:   a.cfg.GraphAPIKey,
			BaseURL:       a.cfg.GraphBaseURL,
			RetryAttempts: a.cfg.ProviderRetry,
			MaxAccounts:   a.cfg.MaxAccounts,
		}, nil, &a.logger)
	}

	return pipeline.NewCollector(pipeline.CollectorConfig{
		Username:         a.watchlist.Username,
		ExcludeUsers:     a.watchlist.ExcludeUsers,
		Lookback:         a.cfg.Lookback(),
		TrendingEnabled:  a.cfg.TrendingEnabled,
		TrendingQuery:    a.watchlist.TrendingQuery,
		TrendingMaxItems: a.cfg.TrendingMaxItems,
		AccountCacheTTL:  a.cfg.AccountCacheTTL,
		Deduplicate:      a.cfg.Deduplicate,
		Content:          a.contentConfig(),
	}, items, accounts, a.clock, a.metrics, &a.logger), nil
}

// contentConfig builds the shared local-filter rules. AIFilter carries
// through to collection so keyword judgment is deferred to the relevance
// pass there too, not applied early and irreversibly before the raw
// artifact is written.
func (a *app) contentConfig() filter.ContentConfig {
	return filter.ContentConfig{
		Enabled:         a.cfg.FiltersEnabled,
		Language:        a.cfg.FilterLanguage,
		MinLikes:        a.cfg.MinLikes,
		MinReposts:      a.cfg.MinReposts,
		AIFilter:        a.cfg.AIFilter,
		IncludeKeywords: a.watchlist.IncludeKeywords,
		ExcludeKeywords: a.watchlist.ExcludeKeywords,
	}
}

func (a *app) notifier() notify.Notifier {
	if a.cfg.NotifyURL == "" {
		return notify.NewNop()
	}

	return notify.NewWebhook(a.cfg.NotifyURL, &http.Client{Timeout: a.cfg.RequestTimeout}, &a.logger)
}
