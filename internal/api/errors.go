package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	errx "github.com/chative-salesdesk/server/internal/core/error"
	logx "github.com/chative-salesdesk/server/pkg/logger"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logx.Warn().Err(err).Msg("encode response failed")
	}
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": fmt.Sprintf(format, args...),
			"type":    errType,
		},
	})
}

// writeAppError maps err to its AppError status. Only the safe message leaves the process.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	code := errx.StatusOf(err)
	errType := "api_error"
	switch {
	case code == http.StatusNotFound:
		errType = "not_found_error"
	case code >= 400 && code < 500:
		errType = "invalid_request_error"
	default:
		logx.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	httpError(w, code, errType, "%s", errx.MessageOf(err))
}
