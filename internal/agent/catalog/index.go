package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"github.com/chative-salesdesk/server/internal/agent/lexicon"
	"github.com/chative-salesdesk/server/internal/agent/model"
	logx "github.com/chative-salesdesk/server/pkg/logger"
)

// ErrEmptyCatalog is returned when a document decodes but holds no usable items.
var ErrEmptyCatalog = errors.New("catalog has no items")

// Index holds the in-memory catalog. Readers always see a complete snapshot:
// a load builds a new snapshot and swaps it in with a single atomic store.
type Index struct {
	snap   atomic.Pointer[snapshot]
	source Source
	norm   *lexicon.Normalizer
	group  singleflight.Group
}

type snapshot struct {
	items      []model.CatalogItem
	categories []string
	vocabulary map[string]struct{}
	source     string
	loadedAt   time.Time
}

// NewIndex returns an empty index bound to source for Reload. norm is used to keep
// stop-words out of the catalog vocabulary and may be nil.
func NewIndex(source Source, norm *lexicon.Normalizer) *Index {
	x := &Index{source: source, norm: norm}
	x.snap.Store(&snapshot{vocabulary: map[string]struct{}{}})
	return x
}

// Load replaces the catalog with the document from source. On failure the previous
// snapshot stays in place and the error is logged and returned; Load never panics.
func (x *Index) Load(ctx context.Context, source Source) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("catalog load panic: %v", r)
		}
		if err != nil {
			logx.Error().Err(err).Str("source", sourceName(source)).
				Int("kept_items", len(x.snap.Load().items)).
				Msg("catalog load failed; keeping previous snapshot")
		}
	}()

	if source == nil {
		return errors.New("catalog source is nil")
	}
	raw, format, err := source.Read(ctx)
	if err != nil {
		return err
	}
	doc, err := decode(raw, format)
	if err != nil {
		return err
	}
	next, err := x.build(doc)
	if err != nil {
		return err
	}
	next.source = source.Name()
	x.snap.Store(next)

	logx.Info().Str("source", next.source).Int("items", len(next.items)).
		Int("categories", len(next.categories)).Msg("catalog loaded")
	return nil
}

// Reload re-reads the bound source. Concurrent calls share a single load, which is not
// cancelled when the caller that started it goes away.
func (x *Index) Reload(ctx context.Context) error {
	loadCtx := context.WithoutCancel(ctx)
	_, err, _ := x.group.Do("reload", func() (any, error) {
		return nil, x.Load(loadCtx, x.source)
	})
	return err
}

// Items returns the current catalog. The slice is shared and must not be modified.
func (x *Index) Items() []model.CatalogItem {
	return x.snap.Load().items
}

// Categories returns top-level category labels in document order.
func (x *Index) Categories() []string {
	return x.snap.Load().categories
}

// HasTerm reports whether a folded token appears in the catalog's titles, brands,
// models, categories or keywords.
func (x *Index) HasTerm(term string) bool {
	_, ok := x.snap.Load().vocabulary[term]
	return ok
}

// Stats summarizes the snapshot currently served.
func (x *Index) Stats() model.CatalogStats {
	s := x.snap.Load()
	available := 0
	for i := range s.items {
		if s.items[i].Available {
			available++
		}
	}
	return model.CatalogStats{
		Source:     s.source,
		Items:      len(s.items),
		Available:  available,
		Categories: s.categories,
		LoadedAt:   s.loadedAt,
	}
}

func (x *Index) build(doc *document) (*snapshot, error) {
	s := &snapshot{vocabulary: map[string]struct{}{}, loadedAt: time.Now().UTC()}
	skipped := 0
	for _, cat := range doc.Categories {
		name := strings.TrimSpace(cat.Name)
		if name == "" {
			skipped += len(cat.Items)
			continue
		}
		kept := 0
		for _, it := range cat.Items {
			if strings.TrimSpace(it.Title) == "" {
				skipped++
				continue
			}
			item := newItem(name, it)
			x.addVocabulary(s.vocabulary, item)
			s.items = append(s.items, item)
			kept++
		}
		if kept > 0 {
			s.categories = append(s.categories, name)
		}
	}
	if skipped > 0 {
		logx.Warn().Int("skipped", skipped).Msg("catalog items without title or category skipped")
	}
	if len(s.items) == 0 {
		return nil, ErrEmptyCatalog
	}

	// default order: in-stock first, document order otherwise
	sort.SliceStable(s.items, func(i, j int) bool {
		return s.items[i].Available && !s.items[j].Available
	})
	return s, nil
}

func newItem(category string, it itemDoc) model.CatalogItem {
	item := model.CatalogItem{
		Title:       strings.TrimSpace(it.Title),
		Description: strings.TrimSpace(it.Description),
		Category:    category,
		Brand:       strings.TrimSpace(it.Brand),
		Model:       strings.TrimSpace(it.Model),
		Prices:      it.Prices,
		Available:   it.Available == nil || *it.Available,
		URL:         strings.TrimSpace(it.URL),
		Keywords:    it.Keywords,
		Tags:        it.Tags,
	}
	if len(item.Prices) == 0 && it.Price != nil {
		item.Prices = []model.PriceTier{{Label: "precio", Amount: *it.Price}}
	}

	item.TitleLower = lexicon.Simplify(item.Title)
	item.DescriptionLower = lexicon.Simplify(item.Description)
	item.CategoryLower = lexicon.Simplify(item.Category)
	item.BrandLower = lexicon.Simplify(item.Brand)
	item.ModelLower = lexicon.Simplify(item.Model)
	item.KeywordsLower = simplifyAll(item.Keywords)
	item.TagsLower = simplifyAll(item.Tags)

	parts := []string{item.TitleLower, item.DescriptionLower, item.CategoryLower, item.BrandLower, item.ModelLower}
	parts = append(parts, item.KeywordsLower...)
	parts = append(parts, item.TagsLower...)
	item.SearchBlob = strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
	return item
}

func (x *Index) addVocabulary(vocab map[string]struct{}, item model.CatalogItem) {
	fields := []string{item.Title, item.Category, item.Brand, item.Model}
	fields = append(fields, item.Keywords...)
	for _, f := range fields {
		for _, tok := range strings.Fields(lexicon.Fold(f)) {
			if utf8.RuneCountInString(tok) < 3 {
				continue
			}
			if x.norm != nil && x.norm.IsStopWord(tok) {
				continue
			}
			vocab[tok] = struct{}{}
		}
	}
}

func simplifyAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, lexicon.Simplify(s))
		}
	}
	return out
}

func sourceName(s Source) string {
	if s == nil {
		return ""
	}
	return s.Name()
}
