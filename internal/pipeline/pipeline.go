// Package pipeline composes the window filter, content filter, token
// batcher and LLM orchestrator into the collect and analyze stages.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tweetwatch/internal/batch"
	"tweetwatch/internal/domain"
	"tweetwatch/internal/filter"
	"tweetwatch/internal/llm"
	"tweetwatch/internal/observability"
	"tweetwatch/internal/store"
)

// State names the curation pipeline stages.
type State string

const (
	StateCollecting  State = "COLLECTING"
	StateFiltering   State = "FILTERING"
	StateRelevance   State = "RELEVANCE_PASS"
	StateSummarizing State = "SUMMARIZING"
	StateMerging     State = "MERGING"
	StateValidating  State = "VALIDATING"
	StateDone        State = "DONE"
)

// ErrCancelled is recorded when a run stops at a cooperative checkpoint.
var ErrCancelled = errors.New("pipeline cancelled")

// Orchestrator is the LLM call surface the pipeline depends on.
type Orchestrator interface {
	Call(ctx context.Context, prompt string) (llm.Completion, error)
	RobustBatchCall(ctx context.Context, lines []string, build func(lines []string) string) ([]llm.BatchResponse, llm.Usage, error)
}

// Config tunes one analyze run.
type Config struct {
	AIFilter       bool
	MaxBatchTokens int
	Model          string
	Content        filter.ContentConfig
}

// Pipeline runs the analyze stage machine. A nil orchestrator means no LLM
// credential is configured: the run degrades to local filtering with an
// empty summary rather than failing.
type Pipeline struct {
	cfg     Config
	orch    Orchestrator
	clock   store.Clock
	metrics *observability.Metrics
	logger  *zerolog.Logger
}

// New creates a pipeline.
func New(cfg Config, orch Orchestrator, clock store.Clock, metrics *observability.Metrics, logger *zerolog.Logger) *Pipeline {
	if cfg.MaxBatchTokens <= 0 {
		cfg.MaxBatchTokens = 30000
	}

	return &Pipeline{cfg: cfg, orch: orch, clock: clock, metrics: metrics, logger: logger}
}

type relevanceResult struct {
	RelevantIDs []string `json:"relevant_ids"`
	UrgentIDs   []string `json:"urgent_ids"`
}

// Analyze runs FILTERING -> [RELEVANCE_PASS] -> SUMMARIZING -> MERGING /
// VALIDATING -> DONE over one raw collection. Stage failures degrade to
// partial results; only cancellation aborts the run.
func (p *Pipeline) Analyze(ctx context.Context, raw *domain.RawCollection, window domain.TimeWindow, sourceFiles []string) (*domain.Analysis, error) {
	aiActive := p.cfg.AIFilter && p.orch != nil

	if p.cfg.AIFilter && p.orch == nil {
		p.logger.Warn().Msg("AI filter requested but no LLM credential configured, falling back to keyword rules")
	}

	p.setState(StateFiltering)

	stageStart := time.Now()
	followed, trending, rejected := p.filterItems(raw, window, aiActive)

	p.metrics.StageDone(string(StateFiltering), time.Since(stageStart))

	filteredItems := flatten(followed, trending)
	totalItems := len(raw.AllItems())

	p.logger.Info().
		Int("total", totalItems).
		Int("passed", len(filteredItems)).
		Int("rejected", rejected).
		Msg("local filtering done")

	var usage llm.Usage

	result := domain.CurationResult{}

	if err := checkpoint(ctx); err != nil {
		return nil, err
	}

	if aiActive && len(filteredItems) > 0 {
		p.setState(StateRelevance)

		stageStart = time.Now()

		relevant, urgent, err := p.relevancePass(ctx, filteredItems, window, &usage)
		if err != nil {
			return nil, err
		}

		p.metrics.StageDone(string(StateRelevance), time.Since(stageStart))

		if relevant != nil {
			result.RelevantIDs = relevant
			result.UrgentIDs = urgent
			followed, trending = keepRelevant(followed, trending, relevant)
			filteredItems = flatten(followed, trending)

			p.logger.Info().Int("relevant", len(filteredItems)).Msg("relevance pass done")
		}
	}

	if err := checkpoint(ctx); err != nil {
		return nil, err
	}

	if p.orch != nil && len(filteredItems) > 0 {
		stageStart = time.Now()

		summary, err := p.summarize(ctx, filteredItems, window, &usage)
		if err != nil {
			return nil, err
		}

		p.metrics.StageDone(string(StateSummarizing), time.Since(stageStart))

		result.Summary = summary
	} else if p.orch == nil {
		p.logger.Warn().Msg("skipping summarization, no LLM credential configured")
	}

	p.setState(StateDone)
	p.logger.Info().
		Int("input_tokens", usage.InputTokens).
		Int("output_tokens", usage.OutputTokens).
		Msg("analysis complete")

	return &domain.Analysis{
		Metadata: domain.AnalysisMeta{
			AnalyzedAt:    p.clock.Now(),
			SourceFiles:   sourceFiles,
			Window:        window,
			TotalItems:    totalItems,
			FilteredCount: len(filteredItems),
			Model:         p.cfg.Model,
		},
		RelevantIDs:      sortedIDs(result.RelevantIDs),
		UrgentIDs:        sortedIDs(result.UrgentIDs),
		Summary:          result.Summary,
		FilteredFollowed: followed,
		FilteredTrending: trending,
	}, nil
}

func (p *Pipeline) setState(state State) {
	p.logger.Debug().Str("state", string(state)).Msg("pipeline state")
}

func checkpoint(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	return nil
}

// filterItems applies window and content rules. With aiActive the content
// filter defers relevance to the LLM pass; without it keyword rules apply.
func (p *Pipeline) filterItems(raw *domain.RawCollection, window domain.TimeWindow, aiActive bool) ([]domain.AccountItems, []domain.Item, int) {
	contentCfg := p.cfg.Content
	contentCfg.AIFilter = aiActive
	content := filter.NewContent(contentCfg)

	rejected := 0

	accept := func(item domain.Item) bool {
		if !inWindow(item, window) {
			rejected++
			p.metrics.ItemFiltered("window")

			return false
		}

		ok, reason := content.Accept(item)
		if !ok {
			rejected++
			p.metrics.ItemFiltered(reason)
		}

		return ok
	}

	var followed []domain.AccountItems

	for _, group := range raw.Followed {
		var kept []domain.Item

		for _, item := range group.Items {
			if accept(item) {
				kept = append(kept, item)
			}
		}

		if len(kept) > 0 {
			followed = append(followed, domain.AccountItems{Account: group.Account, Items: kept})
		}
	}

	var trending []domain.Item

	for _, item := range raw.Trending {
		if accept(item) {
			trending = append(trending, item)
		}
	}

	return followed, trending, rejected
}

// inWindow fails open on unparsable timestamps, same as the collect-side
// window filter.
func inWindow(item domain.Item, window domain.TimeWindow) bool {
	if window.From.IsZero() && window.To.IsZero() {
		return true
	}

	created, ok := filter.ParseCreatedAt(item.CreatedAt)
	if !ok {
		return true
	}

	if !window.From.IsZero() && created.Before(window.From) {
		return false
	}

	if !window.To.IsZero() && created.After(window.To) {
		return false
	}

	return true
}

// relevancePass asks the model which IDs are on-topic, one robust call per
// packed batch, unioning the returned sets. It returns nil sets when zero
// batches produced a usable result, so the caller treats everything as
// relevant instead of silently emptying the report.
func (p *Pipeline) relevancePass(ctx context.Context, items []domain.Item, window domain.TimeWindow, usage *llm.Usage) (map[string]struct{}, map[string]struct{}, error) {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, formatItemLine(item, true))
	}

	windowDesc := describeWindow(window)

	relevant := make(map[string]struct{})
	urgent := make(map[string]struct{})
	gotAny := false

	for _, b := range batch.Pack(lines, p.cfg.MaxBatchTokens) {
		responses, batchUsage, err := p.orch.RobustBatchCall(ctx, b, func(ls []string) string {
			return buildRelevancePrompt(ls, windowDesc)
		})

		usage.Add(batchUsage)
		p.metrics.LLMTokens(batchUsage.InputTokens, batchUsage.OutputTokens)

		if err != nil {
			return nil, nil, fmt.Errorf("relevance pass: %w", err)
		}

		for _, resp := range responses {
			payload, ok := llm.ExtractJSONBlock(resp.Text)
			if !ok {
				p.logger.Warn().Msg("relevance response carried no JSON block")
				p.metrics.LLMCall("unparsable")

				continue
			}

			var parsed relevanceResult
			if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
				p.logger.Warn().Err(err).Msg("relevance response JSON did not parse")
				p.metrics.LLMCall("unparsable")

				continue
			}

			gotAny = true

			p.metrics.LLMCall("ok")

			for _, id := range parsed.RelevantIDs {
				relevant[id] = struct{}{}
			}

			for _, id := range parsed.UrgentIDs {
				relevant[id] = struct{}{}
				urgent[id] = struct{}{}
			}
		}
	}

	if !gotAny {
		p.logger.Warn().Msg("no relevance batch returned a result, treating all items as relevant")

		return nil, nil, nil
	}

	return relevant, urgent, nil
}

// summarize runs one summary call per batch, then merges (several batches)
// or self-reviews (single batch). Merge or validate failures fall back to
// the raw partial summaries rather than aborting.
func (p *Pipeline) summarize(ctx context.Context, items []domain.Item, window domain.TimeWindow, usage *llm.Usage) (string, error) {
	p.setState(StateSummarizing)

	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, formatItemLine(item, false))
	}

	windowDesc := describeWindow(window)

	var partials []string

	for _, b := range batch.Pack(lines, p.cfg.MaxBatchTokens) {
		responses, batchUsage, err := p.orch.RobustBatchCall(ctx, b, func(ls []string) string {
			return buildSummaryPrompt(ls, windowDesc)
		})

		usage.Add(batchUsage)
		p.metrics.LLMTokens(batchUsage.InputTokens, batchUsage.OutputTokens)

		if err != nil {
			return "", fmt.Errorf("summarize: %w", err)
		}

		var parts []string

		for _, resp := range responses {
			// Some models echo the relevance-pass JSON after the digest;
			// only the prose belongs in the summary.
			if text := llm.StripJSONBlock(resp.Text); text != "" {
				parts = append(parts, text)
				p.metrics.LLMCall("ok")
			}
		}

		if len(parts) > 0 {
			partials = append(partials, strings.Join(parts, "\n\n"))
		}
	}

	if err := checkpoint(ctx); err != nil {
		return "", err
	}

	switch len(partials) {
	case 0:
		p.logger.Warn().Msg("no summary batch produced output")

		return "", nil
	case 1:
		return p.validate(ctx, partials[0], usage), nil
	default:
		return p.merge(ctx, partials, usage), nil
	}
}

func (p *Pipeline) validate(ctx context.Context, summary string, usage *llm.Usage) string {
	p.setState(StateValidating)

	completion, err := p.orch.Call(ctx, buildValidatePrompt(summary))
	if err != nil {
		p.logger.Warn().Err(err).Msg("validation pass failed, keeping raw summary")
		p.metrics.LLMCall("failed")

		return summary
	}

	usage.Add(completion.Usage)
	p.metrics.LLMTokens(completion.Usage.InputTokens, completion.Usage.OutputTokens)
	p.metrics.LLMCall("ok")

	if text := strings.TrimSpace(completion.Text); text != "" {
		return text
	}

	return summary
}

func (p *Pipeline) merge(ctx context.Context, partials []string, usage *llm.Usage) string {
	p.setState(StateMerging)

	completion, err := p.orch.Call(ctx, buildMergePrompt(partials))
	if err != nil {
		p.logger.Warn().Err(err).Msg("merge pass failed, concatenating partial summaries")
		p.metrics.LLMCall("failed")

		return strings.Join(partials, "\n\n")
	}

	usage.Add(completion.Usage)
	p.metrics.LLMTokens(completion.Usage.InputTokens, completion.Usage.OutputTokens)
	p.metrics.LLMCall("ok")

	if text := strings.TrimSpace(completion.Text); text != "" {
		return text
	}

	return strings.Join(partials, "\n\n")
}

func describeWindow(window domain.TimeWindow) string {
	if window.From.IsZero() || window.To.IsZero() {
		return ""
	}

	hours := window.To.Sub(window.From).Hours()

	return fmt.Sprintf(" (covering the last %.0f hours)", hours)
}

func flatten(followed []domain.AccountItems, trending []domain.Item) []domain.Item {
	var items []domain.Item

	for _, group := range followed {
		items = append(items, group.Items...)
	}

	return append(items, trending...)
}

func keepRelevant(followed []domain.AccountItems, trending []domain.Item, relevant map[string]struct{}) ([]domain.AccountItems, []domain.Item) {
	var keptFollowed []domain.AccountItems

	for _, group := range followed {
		var kept []domain.Item

		for _, item := range group.Items {
			if _, ok := relevant[item.ID]; ok {
				kept = append(kept, item)
			}
		}

		if len(kept) > 0 {
			keptFollowed = append(keptFollowed, domain.AccountItems{Account: group.Account, Items: kept})
		}
	}

	var keptTrending []domain.Item

	for _, item := range trending {
		if _, ok := relevant[item.ID]; ok {
			keptTrending = append(keptTrending, item)
		}
	}

	return keptFollowed, keptTrending
}

func sortedIDs(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}

	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}
