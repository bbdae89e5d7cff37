package retrieval

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chative-salesdesk/server/internal/agent/catalog"
	"github.com/chative-salesdesk/server/internal/agent/lexicon"
	"github.com/chative-salesdesk/server/internal/agent/model"
	logx "github.com/chative-salesdesk/server/pkg/logger"
)

const testCatalog = `{
  "categories": [
    {"name": "Traumaticas", "items": [
      {"title": "RETAY G17 Negra", "brand": "Retay", "model": "G17", "price": 1850000},
      {"title": "Ekol Firat Negro", "brand": "Ekol", "price": 1500000},
      {"title": "Blow TR92 Cromada", "brand": "Blow", "price": 1650000, "available": false}
    ]},
    {"name": "Defensa", "items": [
      {"title": "Gas pimienta 60ml", "description": "Aerosol de bolsillo", "price": 45000, "tags": ["negro"]},
      {"title": "Paralizador linterna", "price": 120000, "available": false}
    ]},
    {"name": "Accesorios", "items": [
      {"title": "Funda tactica", "keywords": ["holster", "pistola"], "price": 90000}
    ]}
  ]
}`

func TestMain(m *testing.M) {
	logx.Disable()
	os.Exit(m.Run())
}

func newTestRanker(t *testing.T, opts ...Option) *Ranker {
	t.Helper()
	norm := lexicon.NewNormalizer(nil)
	src := catalog.BytesSource{Data: []byte(testCatalog), Format: catalog.FormatJSON}
	idx := catalog.NewIndex(src, norm)
	require.NoError(t, idx.Reload(context.Background()))
	return NewRanker(idx, norm, model.SearchConfig{MaxResults: 5}, opts...)
}

func titles(items []model.ScoredItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Item.Title)
	}
	return out
}

func TestSearchScenarioRetayNegra(t *testing.T) {
	r := newTestRanker(t)
	res := r.Search("cuanto vale la retay negra", 5)

	assert.Equal(t, model.StrategySearch, res.Strategy)
	assert.Equal(t, []string{"retay", "negra", "negro"}, res.Keywords)
	require.NotEmpty(t, res.Items)
	assert.Equal(t, "RETAY G17 Negra", res.Items[0].Item.Title)
	assert.GreaterOrEqual(t, res.Items[0].Score, 20)
	// title retay +10 +5 prefix, brand retay +8 prefix-free, title negra +10, in stock +1
	assert.Equal(t, 34, res.Items[0].Score)
}

func TestScoreWeights(t *testing.T) {
	r := newTestRanker(t)
	item := &model.CatalogItem{
		TitleLower:       "pistola retay",
		DescriptionLower: "incluye retay",
		CategoryLower:    "retay",
		BrandLower:       "retay",
		ModelLower:       "retay",
		KeywordsLower:    []string{"retay", "retay mini"},
		TagsLower:        []string{"x retay"},
	}
	cases := []struct {
		name  string
		patch func(*model.CatalogItem)
		want  int
	}{
		{"title mid-string", func(i *model.CatalogItem) { *i = model.CatalogItem{TitleLower: "pistola retay"} }, 10},
		{"title prefix", func(i *model.CatalogItem) { *i = model.CatalogItem{TitleLower: "retay g17"} }, 15},
		{"description", func(i *model.CatalogItem) { *i = model.CatalogItem{DescriptionLower: "incluye retay"} }, 3},
		{"category", func(i *model.CatalogItem) { *i = model.CatalogItem{CategoryLower: "retay"} }, 5},
		{"brand", func(i *model.CatalogItem) { *i = model.CatalogItem{BrandLower: "retay"} }, 8},
		{"model", func(i *model.CatalogItem) { *i = model.CatalogItem{ModelLower: "retay"} }, 8},
		{"keywords count once", func(i *model.CatalogItem) { *i = model.CatalogItem{KeywordsLower: []string{"retay", "retay mini"}} }, 4},
		{"tags", func(i *model.CatalogItem) { *i = model.CatalogItem{TagsLower: []string{"x retay"}} }, 2},
		{"available alone scores nothing", func(i *model.CatalogItem) { *i = model.CatalogItem{Available: true, TitleLower: "otro"} }, 0},
		{"available bonus", func(i *model.CatalogItem) { *i = model.CatalogItem{Available: true, DescriptionLower: "retay"} }, 4},
		{"all fields", func(*model.CatalogItem) {}, 10 + 3 + 5 + 8 + 8 + 4 + 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			it := *item
			tc.patch(&it)
			assert.Equal(t, tc.want, r.Score(&it, []string{"retay"}))
		})
	}
}

func TestCustomWeights(t *testing.T) {
	r := newTestRanker(t, WithWeights([]FieldWeight{{Field: FieldTags, Weight: 7}}), WithAvailableBonus(0))
	res := r.Search("negro", 5)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Gas pimienta 60ml", res.Items[0].Item.Title)
	assert.Equal(t, 7, res.Items[0].Score)
}

func TestScoreMonotonicInKeywords(t *testing.T) {
	r := newTestRanker(t)
	base := []string{"retay"}
	extended := []string{"retay", "negra", "pistola", "gas"}
	items := r.catalog.Items()
	for i := range items {
		for n := 1; n <= len(extended); n++ {
			assert.GreaterOrEqual(t, r.Score(&items[i], extended[:n]), r.Score(&items[i], base),
				"item %q", items[i].Title)
		}
	}
}

func TestSearchTruncatesAndCounts(t *testing.T) {
	r := newTestRanker(t)
	res := r.Search("negro", 1)
	assert.Equal(t, []string{"negro", "negra"}, res.Keywords)
	assert.Equal(t, 3, res.TotalMatched)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "RETAY G17 Negra", res.Items[0].Item.Title)
}

func TestSearchTiesKeepCatalogOrder(t *testing.T) {
	r := newTestRanker(t, WithWeights([]FieldWeight{{Field: FieldCategory, Weight: 5}}), WithAvailableBonus(0))
	res := r.Search("traumaticas", 0)
	// catalog order puts in-stock items first
	assert.Equal(t, []string{"RETAY G17 Negra", "Ekol Firat Negro", "Blow TR92 Cromada"}, titles(res.Items))
	for _, it := range res.Items {
		assert.Equal(t, 5, it.Score)
	}
}

func TestSearchNoMatch(t *testing.T) {
	r := newTestRanker(t)
	res := r.Search("bicicleta", 5)
	assert.Equal(t, model.StrategySearch, res.Strategy)
	assert.Empty(t, res.Items)
	assert.NotNil(t, res.Items)
	assert.Zero(t, res.TotalMatched)
}

func TestSearchHighlightsOnStopWordsOnly(t *testing.T) {
	r := newTestRanker(t)
	res := r.Search("¡Hola, buenas tardes!", 5)

	assert.Equal(t, model.StrategyHighlights, res.Strategy)
	assert.Empty(t, res.Keywords)
	assert.Zero(t, res.TotalMatched)
	assert.Equal(t, []string{"RETAY G17 Negra", "Gas pimienta 60ml", "Funda tactica"}, titles(res.Items))
	for _, it := range res.Items {
		assert.True(t, it.Item.Available)
	}

	limited := r.Search("hola", 2)
	assert.Len(t, limited.Items, 2)
}

func TestSearchEmptyCatalog(t *testing.T) {
	idx := catalog.NewIndex(nil, nil)
	r := NewRanker(idx, nil, model.SearchConfig{})
	assert.Empty(t, r.Search("retay", 0).Items)
	assert.Empty(t, r.Search("", 0).Items)
	assert.Equal(t, 5, r.maxResults)
}
