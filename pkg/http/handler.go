package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"chatlytics-server/pkg/conversation"
	"chatlytics-server/pkg/database"
	"chatlytics-server/pkg/errors"
)

// AnalyzeRequest is the body for POST /api/analyze. Exactly one of
// ConversationID or the inline snapshot fields must be set: an ID triggers a
// stored (and memoized) run, an inline snapshot is analyzed once and never
// cached.
type AnalyzeRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`

	ID           string                     `json:"id,omitempty"`
	Messages     []conversation.Message     `json:"messages,omitempty"`
	Participants []conversation.Participant `json:"participants,omitempty"`
}

// AnalyzeHandler handles POST /api/analyze
func (s *Server) AnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		s.ErrorResponse(w, errors.Wrap(errors.ErrInvalidInput, "analyze requires POST"))
		return
	}

	var req AnalyzeRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		s.ErrorResponse(w, errors.Wrap(errors.ErrInvalidInput, "decoding analyze request"))
		return
	}

	switch {
	case req.ConversationID != "" && len(req.Messages) > 0:
		s.ErrorResponse(w, errors.Wrap(errors.ErrInvalidInput, "conversation_id and inline messages are mutually exclusive"))
		return

	case req.ConversationID != "":
		s.logger.WithField("conversation_id", req.ConversationID).Info("Analysis requested")

		doc, err := s.engine.Analyze(r.Context(), req.ConversationID)
		if err != nil {
			s.ErrorResponse(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, doc)

	case len(req.Messages) > 0:
		s.logger.WithFields(map[string]interface{}{
			"messages":     len(req.Messages),
			"participants": len(req.Participants),
		}).Info("Inline snapshot analysis requested")

		snap := conversation.NewSnapshot(req.ID, req.Messages, req.Participants)
		doc := s.engine.AnalyzeSnapshot(r.Context(), snap)
		s.writeJSON(w, http.StatusOK, doc)

	default:
		s.ErrorResponse(w, errors.Wrap(errors.ErrInvalidInput, "analyze request needs a conversation_id or inline messages"))
	}
}

// ResultHandler handles GET /api/results/{conversation_id}, serving a stored
// result document without triggering a run.
func (s *Server) ResultHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		s.ErrorResponse(w, errors.Wrap(errors.ErrInvalidInput, "results requires GET"))
		return
	}

	conversationID := strings.TrimPrefix(r.URL.Path, "/api/results/")
	if conversationID == "" || strings.Contains(conversationID, "/") {
		s.ErrorResponse(w, errors.Wrap(errors.ErrInvalidInput, "results path needs a single conversation id"))
		return
	}

	if s.store == nil {
		s.ErrorResponse(w, errors.Wrap(errors.ErrUnavailable, "no result store configured"))
		return
	}

	doc, err := s.store.Get(r.Context(), conversationID)
	if err != nil {
		s.ErrorResponse(w, errors.Wrap(errors.ErrStoreUnavailable, "reading stored result"))
		return
	}
	if doc == nil {
		s.ErrorResponse(w, errors.NewConversationNotFound(conversationID))
		return
	}

	s.writeJSON(w, http.StatusOK, doc)
}

// RunLister is the optional store extension behind the run-history endpoint.
// Only the database-backed repository implements it; the in-memory store
// keeps no history.
type RunLister interface {
	ListRuns(ctx context.Context, conversationID string, limit int) ([]*database.Run, error)
}

// RunsHandler handles GET /api/runs/{conversation_id}, serving the run
// history newest first.
func (s *Server) RunsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		s.ErrorResponse(w, errors.Wrap(errors.ErrInvalidInput, "runs requires GET"))
		return
	}

	conversationID := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	if conversationID == "" || strings.Contains(conversationID, "/") {
		s.ErrorResponse(w, errors.Wrap(errors.ErrInvalidInput, "runs path needs a single conversation id"))
		return
	}

	lister, ok := s.store.(RunLister)
	if !ok {
		s.ErrorResponse(w, errors.Wrap(errors.ErrUnavailable, "run history requires the database-backed store"))
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.ErrorResponse(w, errors.Wrap(errors.ErrInvalidInput, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	runs, err := lister.ListRuns(r.Context(), conversationID, limit)
	if err != nil {
		s.ErrorResponse(w, errors.Wrap(errors.ErrStoreUnavailable, "reading run history"))
		return
	}
	if runs == nil {
		runs = []*database.Run{}
	}

	s.writeJSON(w, http.StatusOK, runs)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Error("Failed to encode HTTP response")
	}
}
