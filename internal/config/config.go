package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"local"`

	// Providers
	ScrapeAPIKey   string        `env:"SCRAPE_API_KEY"`
	ScrapeBaseURL  string        `env:"SCRAPE_BASE_URL" envDefault:"https://api.twitterapi.io/twitter"`
	GraphAPIKey    string        `env:"GRAPH_API_KEY"`
	GraphBaseURL   string        `env:"GRAPH_BASE_URL" envDefault:"https://api.twitter.com/2"`
	ProviderRetry  int           `env:"PROVIDER_RETRY_ATTEMPTS" envDefault:"3"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`

	// LLM
	LLMAPIKey          string        `env:"LLM_API_KEY"`
	LLMBaseURL         string        `env:"LLM_BASE_URL"`
	LLMModel           string        `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	LLMMaxOutputTokens int           `env:"LLM_MAX_OUTPUT_TOKENS" envDefault:"4096"`
	LLMMaxRetries      int           `env:"LLM_MAX_RETRIES" envDefault:"3"`
	LLMTimeout         time.Duration `env:"LLM_TIMEOUT" envDefault:"120s"`
	RateLimitRPS       float64       `env:"RATE_LIMIT_RPS" envDefault:"1"`
	MaxBatchTokens     int           `env:"MAX_BATCH_TOKENS" envDefault:"30000"`

	// Collection
	LookbackHours    float64       `env:"LOOKBACK_HOURS" envDefault:"0"`
	ItemsPerAccount  int           `env:"ITEMS_PER_ACCOUNT" envDefault:"20"`
	MaxAccounts      int           `env:"MAX_ACCOUNTS" envDefault:"0"`
	ExcludeReposts   bool          `env:"EXCLUDE_REPOSTS" envDefault:"true"`
	ExcludeReplies   bool          `env:"EXCLUDE_REPLIES" envDefault:"true"`
	TrendingEnabled  bool          `env:"TRENDING_ENABLED" envDefault:"true"`
	TrendingMaxItems int           `env:"TRENDING_MAX_ITEMS" envDefault:"20"`
	TrendingMinViews int           `env:"TRENDING_MIN_VIEWS" envDefault:"2000"`
	AccountCacheTTL  time.Duration `env:"ACCOUNT_CACHE_TTL" envDefault:"24h"`
	Deduplicate      bool          `env:"DEDUPLICATE" envDefault:"true"`

	// Content filter
	FiltersEnabled bool   `env:"FILTERS_ENABLED" envDefault:"true"`
	FilterLanguage string `env:"FILTER_LANGUAGE" envDefault:"all"`
	MinLikes       int    `env:"MIN_LIKES" envDefault:"0"`
	MinReposts     int    `env:"MIN_REPOSTS" envDefault:"0"`
	AIFilter       bool   `env:"AI_FILTER" envDefault:"false"`

	// Artifacts and state
	OutputDir     string `env:"OUTPUT_DIR" envDefault:"./reports"`
	StateFile     string `env:"STATE_FILE" envDefault:".tweetwatch_state.json"`
	WatchlistFile string `env:"WATCHLIST_FILE" envDefault:"watchlist.yaml"`
	MediaDir      string `env:"MEDIA_DIR" envDefault:"./reports/media"`
	FetchMedia    bool   `env:"FETCH_MEDIA" envDefault:"true"`

	// Notifications
	NotifyURL       string `env:"NOTIFY_URL"`
	NotifyThreshold int    `env:"NOTIFY_THRESHOLD" envDefault:"1"`

	// Observability
	MetricsPort int `env:"METRICS_PORT" envDefault:"0"`
}

// Watchlist is the YAML-managed account and keyword configuration.
type Watchlist struct {
	Username        string   `yaml:"username"`
	ExcludeUsers    []string `yaml:"exclude_users"`
	IncludeKeywords []string `yaml:"include_keywords"`
	ExcludeKeywords []string `yaml:"exclude_keywords"`
	TrendingQuery   string   `yaml:"trending_query"`
}

const defaultTrendingQuery = `(AI OR LLM OR GPT OR Claude OR OpenAI OR AGI) min_faves:50 -is:retweet -is:reply`

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadWatchlist reads the watch list YAML. A missing file yields an empty
// watch list so that artifact-only stages keep working.
func LoadWatchlist(path string) (*Watchlist, error) {
	wl := &Watchlist{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			wl.TrendingQuery = defaultTrendingQuery
			return wl, nil
		}

		return nil, fmt.Errorf("read watchlist: %w", err)
	}

	if err := yaml.Unmarshal(data, wl); err != nil {
		return nil, fmt.Errorf("parse watchlist: %w", err)
	}

	if wl.TrendingQuery == "" {
		wl.TrendingQuery = defaultTrendingQuery
	}

	return wl, nil
}

// Lookback converts the configured look-back hours to a duration.
// Zero means no window filtering.
func (c *Config) Lookback() time.Duration {
	return time.Duration(c.LookbackHours * float64(time.Hour))
}
