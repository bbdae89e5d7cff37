package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/chative-salesdesk/server/internal/agent/admin"
	"github.com/chative-salesdesk/server/internal/agent/catalog"
	"github.com/chative-salesdesk/server/internal/agent/graph"
	"github.com/chative-salesdesk/server/internal/agent/intent"
	"github.com/chative-salesdesk/server/internal/agent/lexicon"
	"github.com/chative-salesdesk/server/internal/agent/llm"
	"github.com/chative-salesdesk/server/internal/agent/model"
	"github.com/chative-salesdesk/server/internal/agent/repo"
	"github.com/chative-salesdesk/server/internal/agent/retrieval"
	"github.com/chative-salesdesk/server/internal/agent/routing"
	logx "github.com/chative-salesdesk/server/pkg/logger"
)

// app is the wired set of components shared by every command.
type app struct {
	cfg        *AppConfig
	norm       *lexicon.Normalizer
	catalog    *catalog.Index
	classifier *intent.Classifier
	ranker     *retrieval.Ranker
	formatter  *retrieval.Formatter

	// set by openStore
	store  model.Store
	router *routing.Router
	admin  *admin.Commands
}

// newApp builds the in-process components and loads the catalog. A catalog that fails
// to load leaves an empty index in place; callers that need it check Stats.
func newApp(ctx context.Context, cfg *AppConfig) (*app, error) {
	lex := lexicon.Default()
	if cfg.Catalog.LexiconPath != "" {
		loaded, err := lexicon.LoadFile(cfg.Catalog.LexiconPath)
		if err != nil {
			return nil, err
		}
		lex = loaded
	}
	norm := lexicon.NewNormalizer(lex)

	index := catalog.NewIndex(catalog.FileSource{Path: cfg.Catalog.Path}, norm)
	if err := index.Reload(ctx); err != nil {
		logx.Warn().Err(err).Str("path", cfg.Catalog.Path).Msg("starting with an empty catalog")
	}

	classifier, err := intent.NewClassifier(lex, index, cfg.Classifier, cfg.Conversation)
	if err != nil {
		return nil, fmt.Errorf("build classifier: %w", err)
	}

	return &app{
		cfg:        cfg,
		norm:       norm,
		catalog:    index,
		classifier: classifier,
		ranker:     retrieval.NewRanker(index, norm, cfg.Search),
		formatter:  retrieval.NewFormatter(cfg.Prompt.Locale, cfg.Prompt.Currency),
	}, nil
}

// openStore connects the configured store, seeds the roster and recovers the
// rotation cursor.
func (a *app) openStore(ctx context.Context) error {
	store, err := repo.Open(ctx, a.cfg.Store, a.cfg.Redis)
	if err != nil {
		return err
	}
	if err := seedAgents(ctx, store, a.cfg.Agents); err != nil {
		_ = store.Close()
		return err
	}
	router := routing.NewRouter(store)
	if err := router.Recover(ctx); err != nil {
		_ = store.Close()
		return fmt.Errorf("recover rotation: %w", err)
	}

	a.store = store
	a.router = router
	a.admin = admin.New(store, router, a.catalog, a.classifier)
	return nil
}

// runner builds the message pipeline over the Gemini generator.
func (a *app) runner(ctx context.Context) (graph.Runner, error) {
	if a.store == nil {
		return nil, errors.New("store is not open")
	}
	if a.cfg.APIKey == "" {
		return nil, errors.New("GEMINI_API_KEY is required")
	}
	gen, err := llm.NewGeminiGenerator(ctx, llm.GeminiConfig{
		APIKey:   a.cfg.APIKey,
		BaseURL:  a.cfg.BaseURL,
		Response: a.cfg.Response,
	}, a.cfg.Retry)
	if err != nil {
		return nil, err
	}
	return graph.BuildResponseGraph(ctx, graph.GraphConfig{
		Store:          a.store,
		Classifier:     a.classifier,
		Searcher:       a.ranker,
		Formatter:      a.formatter,
		Router:         a.router,
		Notifier:       routing.LogNotifier{},
		Generator:      gen,
		ResponsePrompt: a.cfg.Prompt,
		Conversation:   a.cfg.Conversation,
		MaxResults:     a.cfg.Search.MaxResults,
	})
}

func (a *app) Close() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		logx.Warn().Err(err).Msg("close store")
	}
}

// seedAgents upserts the configured roster. Lifetime counts already in the store are
// kept; agents missing from the roster are left as they are.
func seedAgents(ctx context.Context, store model.Store, roster model.Roster) error {
	for _, agent := range roster {
		if err := store.UpsertAgent(ctx, agent); err != nil {
			return fmt.Errorf("seed agent %s: %w", agent.ID, err)
		}
	}
	if len(roster) > 0 {
		logx.Info().Int("agents", len(roster)).Msg("agent roster seeded")
	}
	return nil
}
