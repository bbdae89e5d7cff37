package model

import "time"

// PriceTier is one labelled price of a catalog item (retail, wholesale, ...).
type PriceTier struct {
	Label  string  `json:"label" yaml:"label"`
	Amount float64 `json:"amount" yaml:"amount"`
}

// CatalogItem is immutable after load. Lowercased fields are derived once per load.
type CatalogItem struct {
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Category    string      `json:"category"`
	Brand       string      `json:"brand,omitempty"`
	Model       string      `json:"model,omitempty"`
	Prices      []PriceTier `json:"prices,omitempty"`
	Available   bool        `json:"available"`
	URL         string      `json:"url,omitempty"`
	Keywords    []string    `json:"keywords,omitempty"`
	Tags        []string    `json:"tags,omitempty"`

	TitleLower       string   `json:"-"`
	DescriptionLower string   `json:"-"`
	CategoryLower    string   `json:"-"`
	BrandLower       string   `json:"-"`
	ModelLower       string   `json:"-"`
	KeywordsLower    []string `json:"-"`
	TagsLower        []string `json:"-"`
	SearchBlob       string   `json:"-"`
}

// ScoredItem pairs a catalog item with its relevance score for one search call.
type ScoredItem struct {
	Item  *CatalogItem `json:"item"`
	Score int          `json:"score"`
}

// SearchStrategy tells how a result set was produced.
type SearchStrategy string

const (
	StrategySearch     SearchStrategy = "search"
	StrategyHighlights SearchStrategy = "highlights"
)

// SearchResult is the outcome of ranking the catalog against one raw query.
type SearchResult struct {
	Query        string         `json:"query"`
	Keywords     []string       `json:"keywords"`
	Items        []ScoredItem   `json:"items"`
	TotalMatched int            `json:"total_matched"`
	Strategy     SearchStrategy `json:"strategy"`
}

// CatalogStats describes the currently served snapshot.
type CatalogStats struct {
	Source     string    `json:"source"`
	Items      int       `json:"items"`
	Available  int       `json:"available"`
	Categories []string  `json:"categories"`
	LoadedAt   time.Time `json:"loaded_at"`
}
