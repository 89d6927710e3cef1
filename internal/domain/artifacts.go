package domain

import "time"

// CollectionMeta describes one collect run.
type CollectionMeta struct {
	CollectedAt       time.Time `json:"collected_at"`
	LookbackHours     float64   `json:"lookback_hours,omitempty"`
	AccountCount      int       `json:"account_count"`
	TotalItems        int       `json:"total_items"`
	ProviderCallCount int       `json:"provider_call_count"`
}

// AccountItems groups the surviving items of one followed account.
type AccountItems struct {
	Account Account `json:"account"`
	Items   []Item  `json:"items"`
}

// RawCollection is the artifact written by the collect stage.
type RawCollection struct {
	Metadata CollectionMeta `json:"metadata"`
	Followed []AccountItems `json:"followed"`
	Trending []Item         `json:"trending"`
}

// AllItems returns every item of the collection in stable order:
// followed accounts first, then trending.
func (rc *RawCollection) AllItems() []Item {
	items := make([]Item, 0, rc.Metadata.TotalItems)

	for _, ai := range rc.Followed {
		items = append(items, ai.Items...)
	}

	items = append(items, rc.Trending...)

	return items
}

// TimeWindow is the half-open report window [From, To).
type TimeWindow struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// AnalysisMeta describes one analyze run.
type AnalysisMeta struct {
	AnalyzedAt    time.Time  `json:"analyzed_at"`
	SourceFiles   []string   `json:"source_files"`
	Window        TimeWindow `json:"window"`
	TotalItems    int        `json:"total_items"`
	FilteredCount int        `json:"filtered_count"`
	Model         string     `json:"model,omitempty"`
}

// Analysis is the artifact written by the analyze stage.
type Analysis struct {
	Metadata         AnalysisMeta   `json:"metadata"`
	RelevantIDs      []string       `json:"relevant_ids,omitempty"`
	UrgentIDs        []string       `json:"urgent_ids,omitempty"`
	Summary          string         `json:"summary"`
	FilteredFollowed []AccountItems `json:"filtered_followed"`
	FilteredTrending []Item         `json:"filtered_trending"`
}

// CurationResult is the immutable outcome of one curation pipeline run.
// RelevantIDs and UrgentIDs are nil when no relevance pass ran; UrgentIDs
// is always a subset of RelevantIDs when both are set.
type CurationResult struct {
	RelevantIDs map[string]struct{}
	UrgentIDs   map[string]struct{}
	Summary     string
}
