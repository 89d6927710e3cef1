package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tweetwatch/internal/llm"
)

// Period is the aggregation granularity.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// Key returns the artifact naming key for a period anchored at day, e.g.
// daily_20260207, weekly_20260207, monthly_202602.
func (p Period) Key(day time.Time) string {
	if p == PeriodMonthly {
		return fmt.Sprintf("%s_%s", p, day.Format("200601"))
	}

	return fmt.Sprintf("%s_%s", p, day.Format("20060102"))
}

// Range returns the half-open window [from, to) the period covers when
// anchored at day: the day itself, the 7 days ending at day, or the
// calendar month containing day.
func (p Period) Range(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())

	switch p {
	case PeriodWeekly:
		return start.AddDate(0, 0, -6), start.AddDate(0, 0, 1)
	case PeriodMonthly:
		monthStart := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())

		return monthStart, monthStart.AddDate(0, 1, 0)
	default:
		return start, start.AddDate(0, 0, 1)
	}
}

// Consolidator is the single-call surface the aggregator needs from the
// model layer. Satisfied by *llm.Orchestrator.
type Consolidator interface {
	Call(ctx context.Context, prompt string) (llm.Completion, error)
}

// Aggregator merges multiple run summaries into one periodic summary. The
// merge dedups entries across runs by canonical link, keeping the longest
// variant of a duplicated entry. With a consolidator it asks the model to
// rewrite the merged list; without one, or when the call fails, it emits
// the deduplicated entries directly.
type Aggregator struct {
	consolidator Consolidator
	logger       *zerolog.Logger
}

// NewAggregator creates an aggregator. consolidator may be nil.
func NewAggregator(consolidator Consolidator, logger *zerolog.Logger) *Aggregator {
	return &Aggregator{consolidator: consolidator, logger: logger}
}

// Aggregate merges the given summaries into one. The result always parses
// under the summary grammar.
func (a *Aggregator) Aggregate(ctx context.Context, summaries []string, period Period) (string, error) {
	merged := mergeSummaries(summaries)
	if merged.IsEmpty() {
		return "", nil
	}

	fallback := renderMerged(merged)

	if a.consolidator == nil {
		a.logger.Info().Msg("no model configured, emitting deduplicated entries")

		return fallback, nil
	}

	completion, err := a.consolidator.Call(ctx, buildConsolidationPrompt(merged, period))
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("aggregate cancelled: %w", ctx.Err())
		}

		a.logger.Warn().Err(err).Msg("consolidation call failed, emitting deduplicated entries")

		return fallback, nil
	}

	if Parse(completion.Text).IsEmpty() {
		a.logger.Warn().Msg("consolidated summary parsed empty, emitting deduplicated entries")

		return fallback, nil
	}

	return completion.Text, nil
}

// mergeSummaries parses each summary and merges sections in the canonical
// order, deduplicating linked entries by canonical link. On a duplicate the
// entry with the longer raw line wins, in the position of its first
// occurrence.
func mergeSummaries(summaries []string) *Summary {
	type slot struct {
		section int
		index   int
	}

	merged := &Summary{}
	index := make(map[string]int, len(SectionNames))

	for _, name := range SectionNames {
		index[name] = len(merged.Sections)
		merged.Sections = append(merged.Sections, Section{Name: name})
	}

	seen := make(map[string]slot)

	for _, text := range summaries {
		for _, sec := range Parse(text).Sections {
			si := index[sec.Name]

			merged.Sections[si].Highlights = append(merged.Sections[si].Highlights, sec.Highlights...)

			for _, entry := range sec.Entries {
				if prev, ok := seen[entry.Link]; ok {
					existing := &merged.Sections[prev.section].Entries[prev.index]
					if len(entry.Raw) > len(existing.Raw) {
						*existing = entry
					}

					continue
				}

				merged.Sections[si].Entries = append(merged.Sections[si].Entries, entry)
				seen[entry.Link] = slot{section: si, index: len(merged.Sections[si].Entries) - 1}
			}
		}
	}

	return merged
}

func renderMerged(summary *Summary) string {
	var sb strings.Builder

	for _, sec := range summary.Sections {
		if len(sec.Entries) == 0 && len(sec.Highlights) == 0 {
			continue
		}

		sb.WriteString("## " + sec.Name + "\n\n")

		for _, h := range sec.Highlights {
			sb.WriteString("- " + h + "\n")
		}

		for _, e := range sec.Entries {
			sb.WriteString(e.Raw + "\n")
		}

		sb.WriteString("\n")
	}

	return strings.TrimRight(sb.String(), "\n") + "\n"
}

func buildConsolidationPrompt(summary *Summary, period Period) string {
	var sb strings.Builder

	sb.WriteString("You are consolidating several AI-news digests into one ")
	sb.WriteString(string(period))
	sb.WriteString(" digest.\n\n")
	sb.WriteString("Merge overlapping stories, drop stale minor items and keep the most significant ones.\n")
	sb.WriteString("Answer with Markdown using exactly these \"## <name>\" sections, omitting empty ones:\n")

	for _, name := range SectionNames {
		sb.WriteString("- " + name + "\n")
	}

	sb.WriteString("\nThe Highlights section holds plain \"- <text>\" bullets. Every other section holds\n")
	sb.WriteString("\"- [title](link)。description\" lines; keep the original links unchanged.\n\n")
	sb.WriteString("Source entries:\n\n")
	sb.WriteString(renderMerged(summary))

	return sb.String()
}
