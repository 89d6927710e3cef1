package filter

import (
	"strings"

	"golang.org/x/text/cases"

	"tweetwatch/internal/domain"
)

// Accept reason codes, first match wins.
const (
	ReasonNoFilters      = "no_filters"
	ReasonPassed         = "passed"
	ReasonAIFilterMode   = "ai_filter_mode"
	ReasonLanguage       = "language_filter"
	ReasonEngagement     = "engagement_filter"
	ReasonExcludeKeyword = "excluded_keyword"
	ReasonNoInclude      = "no_include_keyword"
)

// ContentConfig configures the local accept/reject rules.
type ContentConfig struct {
	Enabled         bool
	Language        string // "all" disables the language rule
	MinLikes        int
	MinReposts      int
	AIFilter        bool // defer relevance judgment to the LLM pass
	IncludeKeywords []string
	ExcludeKeywords []string
}

// Content applies the ordered local accept/reject rules. It is a pure
// function of the item: no network, no state. It exists to cut LLM cost
// before the paid pass.
type Content struct {
	cfg   ContentConfig
	caser cases.Caser
}

// NewContent creates a content filter.
func NewContent(cfg ContentConfig) *Content {
	return &Content{cfg: cfg, caser: cases.Fold()}
}

// Accept returns whether the item passes and the matching rule's reason
// code. Rule order: filters disabled, language, engagement, AI-filter
// deferral, exclude keywords, include keywords.
func (c *Content) Accept(item domain.Item) (bool, string) {
	if !c.cfg.Enabled {
		return true, ReasonNoFilters
	}

	if c.cfg.Language != "" && c.cfg.Language != "all" && item.Language != c.cfg.Language {
		return false, ReasonLanguage
	}

	if item.Engagement.Likes < c.cfg.MinLikes || item.Engagement.Reposts < c.cfg.MinReposts {
		return false, ReasonEngagement
	}

	if c.cfg.AIFilter {
		return true, ReasonAIFilterMode
	}

	text := c.caser.String(item.Text)

	for _, kw := range c.cfg.ExcludeKeywords {
		if strings.Contains(text, c.caser.String(kw)) {
			return false, ReasonExcludeKeyword + ":" + kw
		}
	}

	if len(c.cfg.IncludeKeywords) > 0 {
		matched := false

		for _, kw := range c.cfg.IncludeKeywords {
			if strings.Contains(text, c.caser.String(kw)) {
				matched = true
				break
			}
		}

		if !matched {
			return false, ReasonNoInclude
		}
	}

	return true, ReasonPassed
}
