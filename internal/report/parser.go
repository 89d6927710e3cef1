// Package report parses the structured summary grammar and renders it to
// the report artifacts (Markdown and PDF), plus the periodic aggregation
// over prior summaries.
package report

import (
	"regexp"
	"strings"
)

// SectionHighlights is the one section whose entries are flat bullet
// strings without links.
const SectionHighlights = "Highlights"

// SectionNames is the closed category vocabulary shared with the
// summarization prompt. Sections outside this set are dropped silently.
var SectionNames = []string{
	SectionHighlights,
	"Products & Launches",
	"Models & Research",
	"Tools & Open Source",
	"Industry & Funding",
	"Community & Opinions",
}

var (
	sectionHeaderRegex = regexp.MustCompile(`^##\s+(.+?)\s*$`)

	// Entry shape: "- [title](link)<sep>description". The separator is a
	// sentence-ending punctuation mark, full-width or ASCII. Lines not
	// matching are ignored to stay robust against model format drift.
	entryLineRegex = regexp.MustCompile(`^\s{0,3}[-*]\s*\[(.+?)\]\((\S+?)\)\s*[。．.!！，,:：]?\s*(.*)$`)

	// Indented image reference following an entry.
	imageLineRegex = regexp.MustCompile(`^\s+!\[[^\]]*\]\((\S+?)\)\s*$`)

	bulletLineRegex = regexp.MustCompile(`^\s{0,3}[-*]\s+(.+?)\s*$`)
)

// Entry is one parsed section entry.
type Entry struct {
	Title       string
	Link        string
	Description string
	ImageRef    string

	// Raw keeps the original line for length-based dedup heuristics.
	Raw string
}

// Section is one named group of entries. For the highlights section the
// entries live in Highlights instead.
type Section struct {
	Name       string
	Entries    []Entry
	Highlights []string
}

// Summary is a parsed structured summary.
type Summary struct {
	Sections []Section
}

// IsEmpty reports whether no section carries any content.
func (s *Summary) IsEmpty() bool {
	for _, sec := range s.Sections {
		if len(sec.Entries) > 0 || len(sec.Highlights) > 0 {
			return false
		}
	}

	return true
}

// EntryCount counts entries across all sections, highlights included.
func (s *Summary) EntryCount() int {
	n := 0

	for _, sec := range s.Sections {
		n += len(sec.Entries) + len(sec.Highlights)
	}

	return n
}

// KnownSection reports whether the name is in the closed vocabulary.
func KnownSection(name string) bool {
	for _, s := range SectionNames {
		if strings.EqualFold(s, name) {
			return true
		}
	}

	return false
}

func canonicalSectionName(name string) string {
	for _, s := range SectionNames {
		if strings.EqualFold(s, name) {
			return s
		}
	}

	return name
}

// Parse splits a structured summary into typed sections. Unknown section
// names are dropped; malformed entry lines are skipped; an indented image
// line attaches to the preceding entry.
func Parse(text string) *Summary {
	summary := &Summary{}

	var (
		current *Section
		known   bool
	)

	flush := func() {
		if current != nil && known {
			summary.Sections = append(summary.Sections, *current)
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if m := sectionHeaderRegex.FindStringSubmatch(line); m != nil {
			flush()

			name := canonicalSectionName(m[1])
			known = KnownSection(name)
			current = &Section{Name: name}

			continue
		}

		if current == nil || !known {
			continue
		}

		if current.Name == SectionHighlights {
			if m := bulletLineRegex.FindStringSubmatch(line); m != nil {
				current.Highlights = append(current.Highlights, m[1])
			}

			continue
		}

		if m := entryLineRegex.FindStringSubmatch(line); m != nil {
			current.Entries = append(current.Entries, Entry{
				Title:       m[1],
				Link:        m[2],
				Description: strings.TrimSpace(m[3]),
				Raw:         strings.TrimSpace(line),
			})

			continue
		}

		if m := imageLineRegex.FindStringSubmatch(line); m != nil && len(current.Entries) > 0 {
			current.Entries[len(current.Entries)-1].ImageRef = m[1]
		}
	}

	flush()

	return summary
}

// ParseEntries extracts every linked entry of a summary, in order. Used by
// the periodic aggregator, which dedups across runs by canonical link.
func ParseEntries(text string) []Entry {
	var entries []Entry

	for _, sec := range Parse(text).Sections {
		entries = append(entries, sec.Entries...)
	}

	return entries
}
