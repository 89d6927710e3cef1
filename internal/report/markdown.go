package report

import (
	"fmt"
	"strings"
	"time"

	"tweetwatch/internal/domain"
)

// Meta tags a rendered report.
type Meta struct {
	Title       string
	GeneratedAt time.Time
	Window      domain.TimeWindow
	ItemCount   int
	SourceCount int
}

const timeLayout = "2006-01-02 15:04"

// RenderMarkdown renders a parsed summary to the structured-text report
// format. Entry order within each section is preserved from the parse.
func RenderMarkdown(summary *Summary, meta Meta) string {
	var sb strings.Builder

	title := meta.Title
	if title == "" {
		title = "AI Feed Digest"
	}

	sb.WriteString("# " + title + "\n\n")
	sb.WriteString(fmt.Sprintf("**Generated**: %s\n", meta.GeneratedAt.Format(timeLayout)))

	if !meta.Window.From.IsZero() && !meta.Window.To.IsZero() {
		sb.WriteString(fmt.Sprintf("**Window**: %s ~ %s\n",
			meta.Window.From.Format(timeLayout), meta.Window.To.Format(timeLayout)))
	}

	sb.WriteString(fmt.Sprintf("**Items**: %d", meta.ItemCount))

	if meta.SourceCount > 0 {
		sb.WriteString(fmt.Sprintf(" from %d sources", meta.SourceCount))
	}

	sb.WriteString("\n\n---\n")

	for _, sec := range summary.Sections {
		if len(sec.Entries) == 0 && len(sec.Highlights) == 0 {
			continue
		}

		sb.WriteString("\n## " + sec.Name + "\n\n")

		for _, h := range sec.Highlights {
			sb.WriteString("- " + h + "\n")
		}

		for _, e := range sec.Entries {
			sb.WriteString(fmt.Sprintf("- [%s](%s)。%s\n", e.Title, e.Link, e.Description))

			if e.ImageRef != "" {
				sb.WriteString(fmt.Sprintf("  ![](%s)\n", e.ImageRef))
			}
		}
	}

	return sb.String()
}
