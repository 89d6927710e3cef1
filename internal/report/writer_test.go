package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweetwatch/internal/domain"
)

func testWriter(t *testing.T) *Writer {
	t.Helper()

	logger := zerolog.Nop()

	return NewWriter(t.TempDir(), &logger)
}

func TestWriteAndReadRawArtifact(t *testing.T) {
	w := testWriter(t)

	collected := time.Date(2026, 2, 7, 12, 0, 0, 0, time.UTC)
	raw := &domain.RawCollection{
		Metadata: domain.CollectionMeta{CollectedAt: collected, TotalItems: 1},
		Trending: []domain.Item{{ID: "1", Text: "hello"}},
	}

	path, err := w.WriteRaw(raw, collected)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(w.Dir(), "raw_items_20260207_120000.json"), path)

	loaded, err := ReadRaw(path)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Metadata.TotalItems)
	assert.Equal(t, "hello", loaded.Trending[0].Text)
}

func TestWriteAnalysisAndLatest(t *testing.T) {
	w := testWriter(t)

	first := time.Date(2026, 2, 7, 8, 0, 0, 0, time.UTC)
	second := time.Date(2026, 2, 7, 20, 0, 0, 0, time.UTC)

	_, err := w.WriteAnalysis(&domain.Analysis{Summary: "early"}, first)
	require.NoError(t, err)

	latestPath, err := w.WriteAnalysis(&domain.Analysis{Summary: "late"}, second)
	require.NoError(t, err)

	found, err := LatestAnalysis(w.Dir())
	require.NoError(t, err)
	assert.Equal(t, latestPath, found)

	analysis, err := ReadAnalysis(found)
	require.NoError(t, err)
	assert.Equal(t, "late", analysis.Summary)
}

func TestLatestAnalysisEmptyDir(t *testing.T) {
	_, err := LatestAnalysis(t.TempDir())

	require.Error(t, err)
}

func TestAnalysesBetween(t *testing.T) {
	w := testWriter(t)

	stamps := []time.Time{
		time.Date(2026, 2, 6, 23, 0, 0, 0, time.Local),
		time.Date(2026, 2, 7, 9, 0, 0, 0, time.Local),
		time.Date(2026, 2, 7, 21, 0, 0, 0, time.Local),
		time.Date(2026, 2, 8, 1, 0, 0, 0, time.Local),
	}

	for _, ts := range stamps {
		_, err := w.WriteAnalysis(&domain.Analysis{}, ts)
		require.NoError(t, err)
	}

	from := time.Date(2026, 2, 7, 0, 0, 0, 0, time.Local)
	to := from.AddDate(0, 0, 1)

	paths, err := AnalysesBetween(w.Dir(), from, to)
	require.NoError(t, err)
	require.Len(t, paths, 2)

	assert.Contains(t, paths[0], "analysis_20260207_090000.json")
	assert.Contains(t, paths[1], "analysis_20260207_210000.json")
}

func TestWriteReportCreatesMarkdownPDFAndAliases(t *testing.T) {
	w := testWriter(t)

	summary := Parse("## Highlights\n\n- something happened\n")
	meta := Meta{GeneratedAt: time.Date(2026, 2, 7, 12, 0, 0, 0, time.UTC), ItemCount: 1}

	mdPath, err := w.WriteReport(summary, meta, "report_20260207_120000")
	require.NoError(t, err)

	content, err := os.ReadFile(mdPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "- something happened")

	alias, err := os.ReadFile(filepath.Join(w.Dir(), "latest_report.md"))
	require.NoError(t, err)
	assert.Equal(t, content, alias)

	// PDF renders from core fonts, so a plain summary must always produce one.
	pdfInfo, err := os.Stat(filepath.Join(w.Dir(), "report_20260207_120000.pdf"))
	require.NoError(t, err)
	assert.Positive(t, pdfInfo.Size())

	_, err = os.Stat(filepath.Join(w.Dir(), "latest_report.pdf"))
	require.NoError(t, err)
}

func TestWriteReportIsAdditive(t *testing.T) {
	w := testWriter(t)

	summary := Parse("## Highlights\n\n- first\n")
	meta := Meta{GeneratedAt: time.Now()}

	_, err := w.WriteReport(summary, meta, "report_a")
	require.NoError(t, err)

	_, err = w.WriteReport(Parse("## Highlights\n\n- second\n"), meta, "report_b")
	require.NoError(t, err)

	first, err := os.ReadFile(filepath.Join(w.Dir(), "report_a.md"))
	require.NoError(t, err)
	assert.Contains(t, string(first), "first")

	alias, err := os.ReadFile(filepath.Join(w.Dir(), "latest_report.md"))
	require.NoError(t, err)
	assert.Contains(t, string(alias), "second")
}
