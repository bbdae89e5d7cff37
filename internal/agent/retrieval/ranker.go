package retrieval

import (
	"fmt"
	"sort"
	"strings"

	"github.com/chative-salesdesk/server/internal/agent/lexicon"
	"github.com/chative-salesdesk/server/internal/agent/model"
	logx "github.com/chative-salesdesk/server/pkg/logger"
)

// Field names a catalog item field the ranker can score.
type Field string

const (
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	FieldCategory    Field = "category"
	FieldBrand       Field = "brand"
	FieldModel       Field = "model"
	FieldKeywords    Field = "keywords"
	FieldTags        Field = "tags"
)

// FieldWeight is one row of the scoring table. Weight is added once per keyword that is a
// substring of the field; PrefixBonus is added on top when the field starts with it.
type FieldWeight struct {
	Field       Field
	Weight      int
	PrefixBonus int
}

// DefaultWeights is the scoring table used unless WithWeights overrides it.
var DefaultWeights = []FieldWeight{
	{Field: FieldTitle, Weight: 10, PrefixBonus: 5},
	{Field: FieldDescription, Weight: 3},
	{Field: FieldCategory, Weight: 5},
	{Field: FieldBrand, Weight: 8},
	{Field: FieldModel, Weight: 8},
	{Field: FieldKeywords, Weight: 4},
	{Field: FieldTags, Weight: 2},
}

// DefaultAvailableBonus is added to items in stock that matched at least one keyword.
const DefaultAvailableBonus = 1

// Catalog is the read side of the catalog index.
type Catalog interface {
	Items() []model.CatalogItem
	Categories() []string
}

// Option tunes a Ranker at construction.
type Option func(*Ranker)

// WithWeights replaces the scoring table.
func WithWeights(weights []FieldWeight) Option {
	return func(r *Ranker) { r.weights = weights }
}

// WithAvailableBonus sets the score added to matching items in stock.
func WithAvailableBonus(bonus int) Option {
	return func(r *Ranker) { r.availableBonus = bonus }
}

// Ranker scores the catalog lexically against normalized queries.
type Ranker struct {
	catalog        Catalog
	norm           *lexicon.Normalizer
	weights        []FieldWeight
	availableBonus int
	maxResults     int
}

func NewRanker(catalog Catalog, norm *lexicon.Normalizer, cfg model.SearchConfig, opts ...Option) *Ranker {
	if norm == nil {
		norm = lexicon.NewNormalizer(nil)
	}
	r := &Ranker{
		catalog:        catalog,
		norm:           norm,
		weights:        DefaultWeights,
		availableBonus: DefaultAvailableBonus,
		maxResults:     cfg.MaxResults,
	}
	if r.maxResults <= 0 {
		r.maxResults = 5
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Search ranks the current catalog against rawQuery. A maxResults <= 0 uses the configured
// default. When no keyword survives normalization the result holds category highlights.
// Search never panics; an internal failure yields an empty result.
func (r *Ranker) Search(rawQuery string, maxResults int) (res model.SearchResult) {
	if maxResults <= 0 {
		maxResults = r.maxResults
	}
	res = model.SearchResult{Query: rawQuery, Keywords: []string{}, Items: []model.ScoredItem{}, Strategy: model.StrategySearch}
	defer func() {
		if rec := recover(); rec != nil {
			logx.Error().Str("query", rawQuery).Str("panic", fmt.Sprint(rec)).Msg("catalog search failed")
			res = model.SearchResult{Query: rawQuery, Keywords: []string{}, Items: []model.ScoredItem{}, Strategy: model.StrategySearch}
		}
	}()

	res.Keywords = r.norm.Normalize(rawQuery)
	items := r.catalog.Items()
	if len(res.Keywords) == 0 {
		res.Strategy = model.StrategyHighlights
		res.Items = r.highlights(items, maxResults)
		return res
	}

	for i := range items {
		if score := r.Score(&items[i], res.Keywords); score > 0 {
			res.Items = append(res.Items, model.ScoredItem{Item: &items[i], Score: score})
		}
	}
	sort.SliceStable(res.Items, func(a, b int) bool {
		return res.Items[a].Score > res.Items[b].Score
	})
	res.TotalMatched = len(res.Items)
	if len(res.Items) > maxResults {
		res.Items = res.Items[:maxResults]
	}

	logx.Debug().Str("query", rawQuery).Strs("keywords", res.Keywords).
		Int("matched", res.TotalMatched).Msg("catalog search")
	return res
}

// Score sums the table weights for every keyword found in each field. Items with no match
// score zero regardless of availability.
func (r *Ranker) Score(item *model.CatalogItem, keywords []string) int {
	score := 0
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		for _, w := range r.weights {
			score += fieldScore(item, w, kw)
		}
	}
	if score > 0 && item.Available {
		score += r.availableBonus
	}
	return score
}

func fieldScore(item *model.CatalogItem, w FieldWeight, kw string) int {
	switch w.Field {
	case FieldKeywords:
		return anyScore(item.KeywordsLower, w, kw)
	case FieldTags:
		return anyScore(item.TagsLower, w, kw)
	}
	var value string
	switch w.Field {
	case FieldTitle:
		value = item.TitleLower
	case FieldDescription:
		value = item.DescriptionLower
	case FieldCategory:
		value = item.CategoryLower
	case FieldBrand:
		value = item.BrandLower
	case FieldModel:
		value = item.ModelLower
	}
	return stringScore(value, w, kw)
}

func stringScore(value string, w FieldWeight, kw string) int {
	if !strings.Contains(value, kw) {
		return 0
	}
	if strings.HasPrefix(value, kw) {
		return w.Weight + w.PrefixBonus
	}
	return w.Weight
}

// anyScore counts a multi-valued field once per keyword, using its best element.
func anyScore(values []string, w FieldWeight, kw string) int {
	best := 0
	for _, v := range values {
		if s := stringScore(v, w, kw); s > best {
			best = s
		}
	}
	return best
}

// highlights picks the first available item of each category, in category order.
func (r *Ranker) highlights(items []model.CatalogItem, limit int) []model.ScoredItem {
	first := make(map[string]*model.CatalogItem)
	for i := range items {
		if !items[i].Available {
			continue
		}
		if _, ok := first[items[i].Category]; !ok {
			first[items[i].Category] = &items[i]
		}
	}
	out := []model.ScoredItem{}
	for _, cat := range r.catalog.Categories() {
		if len(out) == limit {
			break
		}
		if item, ok := first[cat]; ok {
			out = append(out, model.ScoredItem{Item: item})
		}
	}
	return out
}
