package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/chative-salesdesk/server/internal/agent/model"
)

const maxRequestBodySize = 1 << 20 // 1MB

type MessageRequest struct {
	SenderID    string `json:"sender_id"`
	DisplayName string `json:"display_name"`
	Text        string `json:"text"`
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// handleMessage runs the pipeline for one inbound message. A suppressed message still
// answers 200 with an empty text so the transport knows not to send anything.
func handleMessage(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req MessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(req.SenderID) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "sender_id is required")
			return
		}

		reply, err := deps.Pipeline.Invoke(r.Context(), model.InboundMessage{
			SenderID:    req.SenderID,
			DisplayName: req.DisplayName,
			Text:        req.Text,
		})
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, reply)
	}
}
