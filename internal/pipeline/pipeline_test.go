package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweetwatch/internal/domain"
	"tweetwatch/internal/filter"
	"tweetwatch/internal/llm"
	"tweetwatch/internal/store"
)

type fakeClock struct {
	now time.Time
}

func (c fakeClock) Now() time.Time { return c.now }

var testNow = time.Date(2026, 2, 7, 12, 0, 0, 0, time.UTC)

func testClock() store.Clock { return fakeClock{now: testNow} }

// routedCompleter answers each pipeline stage by matching prompt markers,
// so one scripted instance can serve a whole Analyze run.
type routedCompleter struct {
	mu sync.Mutex

	relevance string
	summary   string
	validated string
	merged    string
	failMerge bool

	prompts []string
}

func (r *routedCompleter) Complete(_ context.Context, prompt string) (llm.Completion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prompts = append(r.prompts, prompt)

	switch {
	case strings.Contains(prompt, "Review the digest below"):
		return llm.Completion{Text: r.validated, Usage: llm.Usage{InputTokens: 5, OutputTokens: 5}}, nil
	case strings.Contains(prompt, "--- Partial digest"):
		if r.failMerge {
			return llm.Completion{}, errors.New("merge refused")
		}

		return llm.Completion{Text: r.merged, Usage: llm.Usage{InputTokens: 5, OutputTokens: 5}}, nil
	case strings.Contains(prompt, "relevant_ids"):
		return llm.Completion{Text: r.relevance, Usage: llm.Usage{InputTokens: 5, OutputTokens: 5}}, nil
	default:
		return llm.Completion{Text: r.summary, Usage: llm.Usage{InputTokens: 5, OutputTokens: 5}}, nil
	}
}

func testOrchestrator(completer llm.Completer) *llm.Orchestrator {
	logger := zerolog.Nop()

	return llm.NewOrchestrator(completer, 1, time.Minute, &logger)
}

func testItem(id, text string) domain.Item {
	return domain.Item{
		ID:        id,
		Text:      text,
		CreatedAt: "Sat Feb 07 11:01:48 +0000 2026",
		Author:    domain.Author{Handle: "tester"},
		URL:       "https://x.com/tester/status/" + id,
	}
}

func testCollection(followed []domain.Item, trending []domain.Item) *domain.RawCollection {
	return &domain.RawCollection{
		Metadata: domain.CollectionMeta{
			CollectedAt: testNow,
			TotalItems:  len(followed) + len(trending),
		},
		Followed: []domain.AccountItems{{
			Account: domain.Account{ID: "10", Username: "tester"},
			Items:   followed,
		}},
		Trending: trending,
	}
}

func newTestPipeline(cfg Config, orch Orchestrator) *Pipeline {
	logger := zerolog.Nop()

	return New(cfg, orch, testClock(), nil, &logger)
}

func TestAnalyzeWithoutModelDegradesToKeywordRules(t *testing.T) {
	cfg := Config{
		AIFilter: true, // requested, but no model available
		Content: filter.ContentConfig{
			Enabled:         true,
			Language:        "all",
			IncludeKeywords: []string{"AI"},
		},
	}

	raw := testCollection([]domain.Item{
		testItem("1", "new AI model dropped"),
		testItem("2", "my lunch was great"),
	}, nil)

	analysis, err := newTestPipeline(cfg, nil).Analyze(context.Background(), raw, domain.TimeWindow{}, []string{"raw.json"})

	require.NoError(t, err)
	assert.Equal(t, 2, analysis.Metadata.TotalItems)
	assert.Equal(t, 1, analysis.Metadata.FilteredCount)
	assert.Empty(t, analysis.Summary)
	assert.Nil(t, analysis.RelevantIDs)

	require.Len(t, analysis.FilteredFollowed, 1)
	require.Len(t, analysis.FilteredFollowed[0].Items, 1)
	assert.Equal(t, "1", analysis.FilteredFollowed[0].Items[0].ID)
}

func TestAnalyzeFullRun(t *testing.T) {
	completer := &routedCompleter{
		relevance: "```json\n{\"relevant_ids\": [\"1\", \"2\"], \"urgent_ids\": [\"2\"]}\n```",
		summary:   "## Models & Research\n\n- [raw](https://x.com/tester/status/1)。draft\n",
		validated: "## Models & Research\n\n- [clean](https://x.com/tester/status/1)。reviewed\n",
	}

	cfg := Config{
		AIFilter: true,
		Content:  filter.ContentConfig{Enabled: true, Language: "all"},
	}

	raw := testCollection([]domain.Item{
		testItem("1", "weights released"),
		testItem("2", "critical CVE in inference stack"),
		testItem("3", "unrelated chatter"),
	}, []domain.Item{testItem("4", "trending noise")})

	analysis, err := newTestPipeline(cfg, testOrchestrator(completer)).
		Analyze(context.Background(), raw, domain.TimeWindow{}, []string{"raw.json"})

	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2"}, analysis.RelevantIDs)
	assert.Equal(t, []string{"2"}, analysis.UrgentIDs)
	assert.Equal(t, 4, analysis.Metadata.TotalItems)
	assert.Equal(t, 2, analysis.Metadata.FilteredCount)

	// Irrelevant followed item and the trending item are both gone.
	require.Len(t, analysis.FilteredFollowed, 1)
	assert.Len(t, analysis.FilteredFollowed[0].Items, 2)
	assert.Empty(t, analysis.FilteredTrending)

	// The self-reviewed summary wins over the raw batch output.
	assert.Contains(t, analysis.Summary, "clean")
	assert.NotContains(t, analysis.Summary, "draft")
}

func TestAnalyzeUnparsableRelevanceKeepsEverything(t *testing.T) {
	completer := &routedCompleter{
		relevance: "I could not decide, sorry",
		summary:   "## Highlights\n\n- everything happened\n",
		validated: "## Highlights\n\n- everything happened\n",
	}

	cfg := Config{
		AIFilter: true,
		Content:  filter.ContentConfig{Enabled: true, Language: "all"},
	}

	raw := testCollection([]domain.Item{
		testItem("1", "first"),
		testItem("2", "second"),
	}, nil)

	analysis, err := newTestPipeline(cfg, testOrchestrator(completer)).
		Analyze(context.Background(), raw, domain.TimeWindow{}, nil)

	require.NoError(t, err)

	// A relevance pass with zero usable results must not empty the report.
	assert.Nil(t, analysis.RelevantIDs)
	assert.Equal(t, 2, analysis.Metadata.FilteredCount)
	assert.NotEmpty(t, analysis.Summary)
}

func TestAnalyzeSummaryDropsTrailingJSONBlock(t *testing.T) {
	completer := &routedCompleter{
		summary:   "## Highlights\n\n- the digest itself\n\n```json\n{\"relevant_ids\": [\"1\"]}\n```",
		validated: "",
	}

	cfg := Config{Content: filter.ContentConfig{Enabled: false}}

	raw := testCollection([]domain.Item{testItem("1", "one story")}, nil)

	analysis, err := newTestPipeline(cfg, testOrchestrator(completer)).
		Analyze(context.Background(), raw, domain.TimeWindow{}, nil)

	require.NoError(t, err)
	assert.Contains(t, analysis.Summary, "the digest itself")
	assert.NotContains(t, analysis.Summary, "relevant_ids")
	assert.NotContains(t, analysis.Summary, "```")
}

func TestAnalyzeMergeFailureFallsBackToPartials(t *testing.T) {
	completer := &routedCompleter{
		summary:   "## Highlights\n\n- partial finding\n",
		failMerge: true,
	}

	cfg := Config{
		Content: filter.ContentConfig{Enabled: false},

		// Force one line per batch so several partials exist to merge.
		MaxBatchTokens: 1,
	}

	raw := testCollection([]domain.Item{
		testItem("1", "first story"),
		testItem("2", "second story"),
	}, nil)

	analysis, err := newTestPipeline(cfg, testOrchestrator(completer)).
		Analyze(context.Background(), raw, domain.TimeWindow{}, nil)

	require.NoError(t, err)

	// Both partial digests survive, concatenated.
	assert.Equal(t, 2, strings.Count(analysis.Summary, "partial finding"))
}

func TestAnalyzeWindowRejectsOldItems(t *testing.T) {
	window := domain.TimeWindow{
		From: testNow.Add(-8 * time.Hour),
		To:   testNow,
	}

	old := testItem("1", "ancient news")
	old.CreatedAt = "2026-02-06T00:00:00Z"

	raw := testCollection([]domain.Item{old, testItem("2", "fresh news")}, nil)

	analysis, err := newTestPipeline(Config{}, nil).Analyze(context.Background(), raw, window, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, analysis.Metadata.FilteredCount)
	assert.Equal(t, "2", analysis.FilteredFollowed[0].Items[0].ID)
}

func TestAnalyzeCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	raw := testCollection([]domain.Item{testItem("1", "anything")}, nil)

	_, err := newTestPipeline(Config{}, nil).Analyze(ctx, raw, domain.TimeWindow{}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCancelled)
}
