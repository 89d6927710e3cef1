package report

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tweetwatch/internal/domain"
)

const (
	mediaFetchTimeout = 20 * time.Second
	maxMediaBytes     = 10 << 20
)

// MediaFetcher downloads item images into a local directory so the PDF
// renderer can embed them. Every failure is best effort: a download error
// only means the report ships without that image.
type MediaFetcher struct {
	client *http.Client
	dir    string
	logger *zerolog.Logger
}

// NewMediaFetcher creates a fetcher writing into dir. A nil client falls
// back to a default with a request timeout.
func NewMediaFetcher(client *http.Client, dir string, logger *zerolog.Logger) *MediaFetcher {
	if client == nil {
		client = &http.Client{Timeout: mediaFetchTimeout}
	}

	return &MediaFetcher{client: client, dir: dir, logger: logger}
}

// FetchAll downloads the first media attachment of each item and returns a
// map from the item's canonical URL to the local file path.
func (f *MediaFetcher) FetchAll(ctx context.Context, items []domain.Item) map[string]string {
	byLink := make(map[string]string)

	for _, item := range items {
		if item.URL == "" || len(item.MediaURLs) == 0 {
			continue
		}

		path, err := f.fetch(ctx, item.MediaURLs[0])
		if err != nil {
			f.logger.Debug().Err(err).Str("url", item.MediaURLs[0]).Msg("media fetch failed")
			continue
		}

		byLink[item.URL] = path
	}

	return byLink
}

func (f *MediaFetcher) fetch(ctx context.Context, url string) (string, error) {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download: status %d", resp.StatusCode)
	}

	path := filepath.Join(f.dir, uuid.NewString()+extensionFor(url, resp.Header.Get("Content-Type")))

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create media file: %w", err)
	}

	_, err = io.Copy(out, io.LimitReader(resp.Body, maxMediaBytes))
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		os.Remove(path)

		return "", fmt.Errorf("write media file: %w", err)
	}

	return path, nil
}

func extensionFor(url, contentType string) string {
	switch {
	case strings.Contains(contentType, "png"):
		return ".png"
	case strings.Contains(contentType, "gif"):
		return ".gif"
	case strings.Contains(contentType, "jpeg"), strings.Contains(contentType, "jpg"):
		return ".jpg"
	}

	if ext := filepath.Ext(strings.SplitN(url, "?", 2)[0]); ext != "" {
		return ext
	}

	return ".jpg"
}

// AttachImages resolves local image paths onto summary entries by canonical
// link. Entries without a matching download are left untouched.
func AttachImages(summary *Summary, byLink map[string]string) {
	for si := range summary.Sections {
		entries := summary.Sections[si].Entries

		for ei := range entries {
			if path, ok := byLink[entries[ei].Link]; ok {
				entries[ei].ImageRef = path
			}
		}
	}
}
