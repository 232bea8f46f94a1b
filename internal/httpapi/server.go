// Package httpapi exposes the voice handler and the audit trail over HTTP.
// It is a thin transport: request decoding, response encoding, nothing
// else.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/bcharris9/th-26/internal/audit"
	"github.com/bcharris9/th-26/internal/voice"
)

// TraceReader is the audit surface the API needs.
type TraceReader interface {
	ListBySession(ctx context.Context, sessionID string) ([]audit.Entry, error)
}

// Server routes API requests to the voice handler and the audit store.
// Traces may be nil, in which case the audit endpoint returns 404.
type Server struct {
	Turns  *voice.Handler
	Traces TraceReader
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/voice", s.handleVoice)
	mux.HandleFunc("GET /api/audit/{sessionID}", s.handleAudit)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

type voiceRequest struct {
	SessionID  string `json:"sessionId"`
	Transcript string `json:"transcript"`
}

func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	var req voiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	result := s.Turns.HandleTurn(r.Context(), req.SessionID, req.Transcript)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if s.Traces == nil {
		writeError(w, http.StatusNotFound, "audit trail not enabled")
		return
	}

	sessionID := r.PathValue("sessionID")
	entries, err := s.Traces.ListBySession(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "reading audit trail failed")
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessionId": sessionID,
		"turns":     entries,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
