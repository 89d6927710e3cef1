package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tweetwatch/internal/domain"
)

const (
	stampLayout = "20060102_150405"

	rawPrefix      = "raw_items_"
	analysisPrefix = "analysis_"
	reportPrefix   = "report_"
)

// Writer owns the output directory. Artifacts are strictly additive: every
// run writes new timestamped files, and only the "latest" aliases are ever
// overwritten.
type Writer struct {
	dir    string
	logger *zerolog.Logger
}

// NewWriter creates a writer rooted at dir.
func NewWriter(dir string, logger *zerolog.Logger) *Writer {
	return &Writer{dir: dir, logger: logger}
}

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

// WriteRaw persists a collection artifact and returns its path.
func (w *Writer) WriteRaw(rc *domain.RawCollection, ts time.Time) (string, error) {
	path := filepath.Join(w.dir, rawPrefix+ts.Format(stampLayout)+".json")

	if err := w.writeJSON(path, rc); err != nil {
		return "", err
	}

	w.logger.Info().Str("path", path).Int("items", rc.Metadata.TotalItems).Msg("raw artifact written")

	return path, nil
}

// WriteAnalysis persists an analysis artifact and returns its path.
func (w *Writer) WriteAnalysis(a *domain.Analysis, ts time.Time) (string, error) {
	path := filepath.Join(w.dir, analysisPrefix+ts.Format(stampLayout)+".json")

	if err := w.writeJSON(path, a); err != nil {
		return "", err
	}

	w.logger.Info().Str("path", path).Int("items", a.Metadata.TotalItems).Msg("analysis artifact written")

	return path, nil
}

// WriteReport renders the summary to Markdown and PDF under the given base
// name and refreshes the latest_report aliases. The PDF is best effort; a
// render failure is logged and only the Markdown paths are returned.
func (w *Writer) WriteReport(summary *Summary, meta Meta, base string) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	markdown := RenderMarkdown(summary, meta)
	mdPath := filepath.Join(w.dir, base+".md")

	if err := os.WriteFile(mdPath, []byte(markdown), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}

	if err := os.WriteFile(filepath.Join(w.dir, "latest_report.md"), []byte(markdown), 0o644); err != nil {
		return "", fmt.Errorf("write latest alias: %w", err)
	}

	pdfPath := filepath.Join(w.dir, base+".pdf")

	if err := RenderPDF(summary, meta, pdfPath); err != nil {
		w.logger.Warn().Err(err).Msg("pdf render failed, report is markdown only")
	} else if err := copyFile(pdfPath, filepath.Join(w.dir, "latest_report.pdf")); err != nil {
		w.logger.Warn().Err(err).Msg("latest pdf alias failed")
	}

	w.logger.Info().Str("path", mdPath).Int("entries", summary.EntryCount()).Msg("report written")

	return mdPath, nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(src), err)
	}

	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(dst), err)
	}

	return nil
}

func (w *Writer) writeJSON(path string, v any) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename artifact: %w", err)
	}

	return nil
}

// ReadRaw loads a collection artifact.
func ReadRaw(path string) (*domain.RawCollection, error) {
	var rc domain.RawCollection
	if err := readJSON(path, &rc); err != nil {
		return nil, err
	}

	return &rc, nil
}

// ReadAnalysis loads an analysis artifact.
func ReadAnalysis(path string) (*domain.Analysis, error) {
	var a domain.Analysis
	if err := readJSON(path, &a); err != nil {
		return nil, err
	}

	return &a, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read artifact: %w", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode artifact %s: %w", filepath.Base(path), err)
	}

	return nil
}

// LatestRaw returns the newest collection artifact in dir, or an error when
// none exists.
func LatestRaw(dir string) (string, error) {
	return latest(dir, rawPrefix)
}

// LatestAnalysis returns the newest analysis artifact in dir.
func LatestAnalysis(dir string) (string, error) {
	return latest(dir, analysisPrefix)
}

func latest(dir, prefix string) (string, error) {
	paths, err := stamped(dir, prefix)
	if err != nil {
		return "", err
	}

	if len(paths) == 0 {
		return "", fmt.Errorf("no %s*.json artifacts in %s", prefix, dir)
	}

	return paths[len(paths)-1], nil
}

// AnalysesBetween returns the analysis artifacts whose run timestamp falls
// in [from, to), oldest first.
func AnalysesBetween(dir string, from, to time.Time) ([]string, error) {
	paths, err := stamped(dir, analysisPrefix)
	if err != nil {
		return nil, err
	}

	var kept []string

	for _, path := range paths {
		ts, err := stampOf(path, analysisPrefix)
		if err != nil {
			continue
		}

		if !ts.Before(from) && ts.Before(to) {
			kept = append(kept, path)
		}
	}

	return kept, nil
}

// stamped lists prefix*.json files carrying a parseable timestamp, sorted
// chronologically. Lexical order equals chronological order for the stamp
// layout.
func stamped(dir, prefix string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, prefix+"*.json"))
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}

	kept := paths[:0]

	for _, path := range paths {
		if _, err := stampOf(path, prefix); err == nil {
			kept = append(kept, path)
		}
	}

	sort.Strings(kept)

	return kept, nil
}

func stampOf(path, prefix string) (time.Time, error) {
	name := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), prefix), ".json")

	return time.ParseInLocation(stampLayout, name, time.Local)
}
