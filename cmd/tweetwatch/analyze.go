package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tweetwatch/internal/domain"
	"tweetwatch/internal/notify"
	"tweetwatch/internal/pipeline"
	"tweetwatch/internal/report"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var (
		source   string
		fromFlag string
		toFlag   string
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Filter, curate and summarize a raw collection artifact",
		RunE: func(cmd *cobra.Command, _ []string) error {
			window, err := parseWindowFlags(fromFlag, toFlag)
			if err != nil {
				return err
			}

			_, _, err = a.analyze(cmd.Context(), source, window)

			return err
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "raw artifact to analyze (default: newest in the output dir)")
	cmd.Flags().StringVar(&fromFlag, "from", "", "window start, RFC 3339 (default: derived from the artifact)")
	cmd.Flags().StringVar(&toFlag, "to", "", "window end, RFC 3339")

	return cmd
}

func parseWindowFlags(fromFlag, toFlag string) (*domain.TimeWindow, error) {
	if fromFlag == "" && toFlag == "" {
		return nil, nil
	}

	window := &domain.TimeWindow{}

	if fromFlag != "" {
		from, err := time.Parse(time.RFC3339, fromFlag)
		if err != nil {
			return nil, fmt.Errorf("parse --from: %w", err)
		}

		window.From = from
	}

	if toFlag != "" {
		to, err := time.Parse(time.RFC3339, toFlag)
		if err != nil {
			return nil, fmt.Errorf("parse --to: %w", err)
		}

		window.To = to
	}

	return window, nil
}

// analyze runs the analyze stage over one raw artifact. A nil window
// derives the report window from the artifact's own collection metadata.
func (a *app) analyze(ctx context.Context, source string, window *domain.TimeWindow) (*domain.Analysis, string, error) {
	if source == "" {
		var err error

		source, err = report.LatestRaw(a.cfg.OutputDir)
		if err != nil {
			return nil, "", err
		}
	}

	raw, err := report.ReadRaw(source)
	if err != nil {
		return nil, "", err
	}

	return a.analyzeWindow(ctx, raw, source, window)
}

// analyzeRaw analyzes an in-memory collection, deriving the window from its
// metadata. Used by the run-all path.
func (a *app) analyzeRaw(ctx context.Context, raw *domain.RawCollection, source string) (*domain.Analysis, string, error) {
	return a.analyzeWindow(ctx, raw, source, nil)
}

func (a *app) analyzeWindow(ctx context.Context, raw *domain.RawCollection, source string, window *domain.TimeWindow) (*domain.Analysis, string, error) {
	if window == nil {
		window = &domain.TimeWindow{To: raw.Metadata.CollectedAt}
		if raw.Metadata.LookbackHours > 0 {
			window.From = raw.Metadata.CollectedAt.Add(-time.Duration(raw.Metadata.LookbackHours * float64(time.Hour)))
		}
	}

	p := pipeline.New(pipeline.Config{
		AIFilter:       a.cfg.AIFilter,
		MaxBatchTokens: a.cfg.MaxBatchTokens,
		Model:          a.cfg.LLMModel,
		Content:        a.contentConfig(),
	}, a.pipelineOrchestrator(), a.clock, a.metrics, &a.logger)

	analysis, err := p.Analyze(ctx, raw, *window, []string{source})
	if err != nil {
		return nil, "", fmt.Errorf("analyze: %w", err)
	}

	path, err := a.writer.WriteAnalysis(analysis, a.clock.Now())
	if err != nil {
		return nil, "", err
	}

	if len(analysis.UrgentIDs) > 0 {
		a.notifier().Notify(ctx, notify.Event{
			Kind:      "urgent",
			Message:   fmt.Sprintf("%d urgent items flagged", len(analysis.UrgentIDs)),
			ItemCount: len(analysis.UrgentIDs),
			Urgent:    true,
			At:        a.clock.Now(),
		})
	}

	return analysis, path, nil
}
