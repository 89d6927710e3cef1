// Package filter implements the cheap, local item filters that run before
// any paid LLM call: the look-back window check and the content rules.
package filter

import (
	"time"

	"github.com/araddon/dateparse"

	"tweetwatch/internal/domain"
)

// createdAtFormat is the legacy provider timestamp shape,
// e.g. "Sat Feb 07 11:01:48 +0000 2026".
const createdAtFormat = "Mon Jan 02 15:04:05 -0700 2006"

// ParseCreatedAt parses a source-reported timestamp. It tries the legacy
// provider format first, then any recognizable layout. The zero time and
// false are returned when nothing matches.
func ParseCreatedAt(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}

	if t, err := time.Parse(createdAtFormat, raw); err == nil {
		return t, true
	}

	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return time.Time{}, false
	}

	return t, true
}

// Window decides whether items fall inside the report look-back window.
type Window struct {
	Lookback time.Duration
}

// NewWindow returns a window filter. A zero lookback disables filtering.
func NewWindow(lookback time.Duration) *Window {
	return &Window{Lookback: lookback}
}

// InWindow reports whether the item belongs to the window ending at now.
// It fails open: an unset lookback or an unparsable timestamp keeps the
// item, since dropping data silently is worse than over-reporting.
func (w *Window) InWindow(item domain.Item, now time.Time) bool {
	if w.Lookback <= 0 {
		return true
	}

	created, ok := ParseCreatedAt(item.CreatedAt)
	if !ok {
		return true
	}

	return !created.Before(now.Add(-w.Lookback))
}
