package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/chative-salesdesk/server/internal/agent/admin"
	"github.com/chative-salesdesk/server/internal/agent/model"
	logx "github.com/chative-salesdesk/server/pkg/logger"
)

// Pipeline answers one inbound chat message.
type Pipeline interface {
	Invoke(ctx context.Context, in model.InboundMessage) (*model.Reply, error)
}

// Searcher ranks the catalog against a raw query.
type Searcher interface {
	Search(rawQuery string, maxResults int) model.SearchResult
}

type Deps struct {
	Pipeline Pipeline
	Searcher Searcher
	Admin    *admin.Commands
	// AdminToken guards catalog reload and the admin routes. Empty disables them.
	AdminToken string
}

// NewHandler builds the HTTP surface: the inbound message webhook, catalog search and
// the token-protected operator routes.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/messages", handleMessage(deps))
		r.Get("/catalog/search", handleSearch(deps))

		if deps.AdminToken == "" {
			logx.Warn().Msg("SERVER_ADMIN_TOKEN is empty - admin routes disabled")
			return
		}
		r.Group(func(r chi.Router) {
			r.Use(BearerAuth(deps.AdminToken))

			r.Post("/catalog/reload", handleReload(deps))
			r.Route("/admin", func(r chi.Router) {
				r.Get("/stats", handleStats(deps))
				r.Get("/clients/{id}", handleGetClient(deps))
				r.Delete("/clients/{id}", handleResetClient(deps))
				r.Post("/clients/{id}/close", handleCloseAssignment(deps))
				r.Post("/commands", handleCommand(deps))
			})
		})
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			logx.Debug().
				Str("request_id", chimiddleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("took", time.Since(start)).
				Msg("http request")
		}()
		next.ServeHTTP(ww, r)
	})
}
