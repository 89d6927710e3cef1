package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSummary = `## Highlights

- New frontier model tops every benchmark
- Major lab raises at a record valuation

## Models & Research

- [Qwen3 released](https://x.com/alibaba/status/111)。Open weights, 128k context.
  ![](media/qwen3.jpg)
- [Scaling paper](https://x.com/deepmind/status/222)。Compute-optimal training revisited.

## Rumors

- [leak](https://x.com/leaker/status/999)。Unverified chatter.

## Tools & Open Source

- [llama.cpp speedup](https://x.com/ggerganov/status/333)。2x prefill on Metal.
not a bullet, ignored
- malformed entry without a link
`

func TestParseSampleSummary(t *testing.T) {
	summary := Parse(sampleSummary)

	require.Len(t, summary.Sections, 3)

	highlights := summary.Sections[0]
	assert.Equal(t, SectionHighlights, highlights.Name)
	assert.Len(t, highlights.Highlights, 2)
	assert.Empty(t, highlights.Entries)

	models := summary.Sections[1]
	assert.Equal(t, "Models & Research", models.Name)
	require.Len(t, models.Entries, 2)

	first := models.Entries[0]
	assert.Equal(t, "Qwen3 released", first.Title)
	assert.Equal(t, "https://x.com/alibaba/status/111", first.Link)
	assert.Equal(t, "Open weights, 128k context.", first.Description)
	assert.Equal(t, "media/qwen3.jpg", first.ImageRef)

	assert.Empty(t, models.Entries[1].ImageRef)

	tools := summary.Sections[2]
	assert.Equal(t, "Tools & Open Source", tools.Name)
	require.Len(t, tools.Entries, 1)
	assert.Equal(t, "llama.cpp speedup", tools.Entries[0].Title)

	// The unknown "Rumors" section is gone entirely.
	for _, sec := range summary.Sections {
		assert.NotEqual(t, "Rumors", sec.Name)
	}

	assert.Equal(t, 5, summary.EntryCount())
	assert.False(t, summary.IsEmpty())
}

func TestParseSectionNameCaseInsensitive(t *testing.T) {
	summary := Parse("## models & research\n\n- [x](https://x.com/a/status/1)。y\n")

	require.Len(t, summary.Sections, 1)
	assert.Equal(t, "Models & Research", summary.Sections[0].Name)
}

func TestParseEmptyAndGarbage(t *testing.T) {
	assert.True(t, Parse("").IsEmpty())
	assert.True(t, Parse("free text without any structure").IsEmpty())
	assert.True(t, Parse("## Unknown Section\n- [a](https://b)。c").IsEmpty())
}

func TestParseEntrySeparatorVariants(t *testing.T) {
	tests := []struct {
		name string
		line string
		desc string
	}{
		{name: "full-width separator", line: "- [t](https://l)。desc", desc: "desc"},
		{name: "ascii period", line: "- [t](https://l). desc", desc: "desc"},
		{name: "colon", line: "- [t](https://l): desc", desc: "desc"},
		{name: "no description", line: "- [t](https://l)", desc: ""},
		{name: "asterisk bullet", line: "* [t](https://l)。desc", desc: "desc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary := Parse("## Models & Research\n" + tt.line + "\n")

			require.Len(t, summary.Sections, 1)
			require.Len(t, summary.Sections[0].Entries, 1)

			entry := summary.Sections[0].Entries[0]
			assert.Equal(t, "t", entry.Title)
			assert.Equal(t, "https://l", entry.Link)
			assert.Equal(t, tt.desc, entry.Description)
		})
	}
}

func TestRenderMarkdownRoundTrip(t *testing.T) {
	original := Parse(sampleSummary)

	rendered := RenderMarkdown(original, Meta{ItemCount: 10})
	reparsed := Parse(rendered)

	require.Len(t, reparsed.Sections, len(original.Sections))
	assert.Equal(t, original.EntryCount(), reparsed.EntryCount())

	for i, sec := range original.Sections {
		got := reparsed.Sections[i]

		assert.Equal(t, sec.Name, got.Name)
		assert.Equal(t, sec.Highlights, got.Highlights)
		require.Len(t, got.Entries, len(sec.Entries))

		for j, entry := range sec.Entries {
			assert.Equal(t, entry.Title, got.Entries[j].Title)
			assert.Equal(t, entry.Link, got.Entries[j].Link)
			assert.Equal(t, entry.Description, got.Entries[j].Description)
			assert.Equal(t, entry.ImageRef, got.Entries[j].ImageRef)
		}
	}
}

func TestParseEntriesFlattens(t *testing.T) {
	entries := ParseEntries(sampleSummary)

	require.Len(t, entries, 3)
	assert.Equal(t, "https://x.com/alibaba/status/111", entries[0].Link)
	assert.Equal(t, "https://x.com/ggerganov/status/333", entries[2].Link)
}
