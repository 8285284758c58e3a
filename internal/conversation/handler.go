package conversation

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/carebridge/clinic-scheduling-ai/internal/schedule"
	"github.com/carebridge/clinic-scheduling-ai/pkg/logging"
)

// Handler wires HTTP chat requests to the orchestrator.
type Handler struct {
	orchestrator *Orchestrator
	logger       *logging.Logger
}

// NewHandler creates a chat handler.
func NewHandler(orchestrator *Orchestrator, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{orchestrator: orchestrator, logger: logger}
}

// Chat handles POST /api/chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	reply, err := h.orchestrator.ProcessMessage(r.Context(), req)
	if err != nil {
		if errors.Is(err, schedule.ErrStoreUnavailable) {
			h.logger.Error("chat turn failed: store unavailable", "error", err)
			http.Error(w, "schedule store unavailable, please try again", http.StatusServiceUnavailable)
			return
		}
		h.logger.Error("chat turn failed", "error", err)
		http.Error(w, "failed to process message", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, reply)
}

// History handles GET /api/chat/{conversationID}/history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")
	if conversationID == "" {
		http.Error(w, "conversation id is required", http.StatusBadRequest)
		return
	}
	if h.orchestrator.transcript == nil {
		h.writeJSON(w, http.StatusOK, []TranscriptMessage{})
		return
	}

	msgs, err := h.orchestrator.transcript.List(r.Context(), conversationID, 50)
	if err != nil {
		h.logger.Error("transcript read failed", "conversation_id", conversationID, "error", err)
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}
	if msgs == nil {
		msgs = []TranscriptMessage{}
	}
	h.writeJSON(w, http.StatusOK, msgs)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
