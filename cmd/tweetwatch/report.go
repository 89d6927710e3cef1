package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tweetwatch/internal/domain"
	"tweetwatch/internal/report"
)

func newReportCmd(a *app) *cobra.Command {
	var (
		source  string
		daily   string
		weekly  string
		monthly string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render an analysis into Markdown and PDF, or aggregate a period",
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch {
			case daily != "":
				return a.periodicReport(cmd.Context(), report.PeriodDaily, daily)
			case weekly != "":
				return a.periodicReport(cmd.Context(), report.PeriodWeekly, weekly)
			case monthly != "":
				return a.periodicReport(cmd.Context(), report.PeriodMonthly, monthly)
			default:
				_, err := a.runReport(cmd.Context(), source, nil)

				return err
			}
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "analysis artifact to render (default: newest in the output dir)")
	cmd.Flags().StringVar(&daily, "daily", "", "aggregate one day's runs, YYYY-MM-DD")
	cmd.Flags().StringVar(&weekly, "weekly", "", "aggregate the 7 days ending at YYYY-MM-DD")
	cmd.Flags().StringVar(&monthly, "monthly", "", "aggregate one calendar month, YYYY-MM")

	return cmd
}

// runReport renders one analysis artifact. The analysis may be handed over
// directly by the run-all path to skip the artifact round trip.
func (a *app) runReport(ctx context.Context, source string, analysis *domain.Analysis) (string, error) {
	if analysis == nil {
		if source == "" {
			var err error

			source, err = report.LatestAnalysis(a.cfg.OutputDir)
			if err != nil {
				return "", err
			}
		}

		var err error

		analysis, err = report.ReadAnalysis(source)
		if err != nil {
			return "", err
		}
	}

	summary := report.Parse(analysis.Summary)
	if summary.IsEmpty() {
		a.logger.Warn().Msg("summary is empty, rendering metadata-only report")
	}

	if a.cfg.FetchMedia && !summary.IsEmpty() {
		fetcher := report.NewMediaFetcher(nil, a.cfg.MediaDir, &a.logger)

		items := make([]domain.Item, 0, analysis.Metadata.FilteredCount)
		for _, group := range analysis.FilteredFollowed {
			items = append(items, group.Items...)
		}

		items = append(items, analysis.FilteredTrending...)

		report.AttachImages(summary, fetcher.FetchAll(ctx, items))
	}

	return a.writer.WriteReport(summary, report.Meta{
		GeneratedAt: a.clock.Now(),
		Window:      analysis.Metadata.Window,
		ItemCount:   analysis.Metadata.FilteredCount,
		SourceCount: len(analysis.FilteredFollowed),
	}, "report_"+a.clock.Now().Format("20060102_150405"))
}

// periodicReport aggregates every analysis of the period into one digest.
func (a *app) periodicReport(ctx context.Context, period report.Period, day string) error {
	layout := "2006-01-02"
	if period == report.PeriodMonthly {
		layout = "2006-01"
	}

	anchor, err := time.ParseInLocation(layout, day, time.Local)
	if err != nil {
		return fmt.Errorf("parse --%s: %w", period, err)
	}

	from, to := period.Range(anchor)

	paths, err := report.AnalysesBetween(a.cfg.OutputDir, from, to)
	if err != nil {
		return err
	}

	if len(paths) == 0 {
		return fmt.Errorf("no analysis artifacts between %s and %s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	}

	summaries := make([]string, 0, len(paths))
	itemCount := 0

	for _, path := range paths {
		analysis, err := report.ReadAnalysis(path)
		if err != nil {
			a.logger.Warn().Err(err).Str("path", path).Msg("skipping unreadable analysis")
			continue
		}

		summaries = append(summaries, analysis.Summary)
		itemCount += analysis.Metadata.FilteredCount
	}

	var consolidator report.Consolidator
	if orch := a.orchestrator(); orch != nil {
		consolidator = orch
	}

	aggregated, err := report.NewAggregator(consolidator, &a.logger).Aggregate(ctx, summaries, period)
	if err != nil {
		return err
	}

	if aggregated == "" {
		return fmt.Errorf("nothing to aggregate: all %d summaries were empty", len(summaries))
	}

	_, err = a.writer.WriteReport(report.Parse(aggregated), report.Meta{
		Title:       fmt.Sprintf("AI Feed Digest (%s)", period),
		GeneratedAt: a.clock.Now(),
		Window:      domain.TimeWindow{From: from, To: to},
		ItemCount:   itemCount,
		SourceCount: len(summaries),
	}, period.Key(anchor))

	return err
}
