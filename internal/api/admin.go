package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

const defaultClientMessages = 20

type CommandRequest struct {
	Command string `json:"command"`
}

func handleStats(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := deps.Admin.Report(r.Context())
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

func handleGetClient(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultClientMessages
		if raw := r.URL.Query().Get("messages"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "messages must be a non-negative integer")
				return
			}
			limit = n
		}
		view, err := deps.Admin.Client(r.Context(), chi.URLParam(r, "id"), limit)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func handleResetClient(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Admin.Reset(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeAppError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleCloseAssignment(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		closed, err := deps.Admin.CloseAssignment(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"closed": closed})
	}
}

func handleCommand(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req CommandRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(req.Command) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "command is required")
			return
		}
		out, err := deps.Admin.Execute(r.Context(), req.Command)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"output": out})
	}
}
