package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	middleware "github.com/nileshsolidarity/Processes/internal/api/middlewares"
	"github.com/nileshsolidarity/Processes/internal/core/rag"
	"github.com/nileshsolidarity/Processes/internal/models"
)

const sessionListLimit = 20

// ChatRunner streams one chat turn as ordered events.
type ChatRunner interface {
	Run(ctx context.Context, branchID, sessionID int64, message string) <-chan rag.Event
}

// SessionStore reads stored conversations.
type SessionStore interface {
	ListChatSessions(ctx context.Context, branchID int64, limit int) ([]models.ChatSessionSummary, error)
	ListMessagesBySession(ctx context.Context, sessionID int64) ([]models.ChatMessage, error)
}

type ChatHandler struct {
	runner ChatRunner
	store  SessionStore
}

func NewChatHandler(runner ChatRunner, store SessionStore) *ChatHandler {
	return &ChatHandler{runner: runner, store: store}
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID int64  `json:"sessionId"`
}

// Chat answers one message over server-sent events. Each event is one
// "data: <json>\n\n" frame; the stream closes after done or error.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	branch, ok := middleware.BranchFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeError(w, http.StatusBadRequest, "Message is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range h.runner.Run(r.Context(), branch.BranchID, req.SessionID, req.Message) {
		payload, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	}
}

// Sessions lists the branch's recent conversations, newest first.
func (h *ChatHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	branch, ok := middleware.BranchFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	sessions, err := h.store.ListChatSessions(r.Context(), branch.BranchID, sessionListLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load sessions")
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

// Messages returns a session's full transcript in order.
func (h *ChatHandler) Messages(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	messages, err := h.store.ListMessagesBySession(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load messages")
		return
	}
	writeJSON(w, http.StatusOK, messages)
}
