package api

import (
	"net/http"
	"strconv"
	"strings"

	errx "github.com/chative-salesdesk/server/internal/core/error"
)

const maxSearchLimit = 50

func handleSearch(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := strings.TrimSpace(r.URL.Query().Get("q"))
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > maxSearchLimit {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "limit must be between 1 and %d", maxSearchLimit)
				return
			}
			limit = n
		}
		writeJSON(w, http.StatusOK, deps.Searcher.Search(q, limit))
	}
}

func handleReload(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := deps.Admin.Execute(r.Context(), "reload")
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		report, err := deps.Admin.Report(r.Context())
		if err != nil {
			writeAppError(w, r, errx.New(err, http.StatusInternalServerError, errx.SystemErrorMessage))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": out, "catalog": report.Catalog})
	}
}
