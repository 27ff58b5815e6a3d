package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nileshsolidarity/Processes/internal/core"
	"github.com/nileshsolidarity/Processes/internal/models"
)

// Event types emitted over a chat stream, in order: session, zero or more
// chunks, sources, done. An error event is terminal and replaces the rest.
const (
	EventSession = "session"
	EventChunk   = "chunk"
	EventSources = "sources"
	EventError   = "error"
	EventDone    = "done"
)

// Event is one unit of a chat stream. Only the fields relevant to its type
// are populated.
type Event struct {
	Type      string          `json:"type"`
	SessionID int64           `json:"sessionId,omitempty"`
	Content   string          `json:"content,omitempty"`
	Sources   []models.Source `json:"sources,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// MarshalJSON keeps sources as an explicit array on sources events, even when
// empty, so stream consumers always see a list.
func (e Event) MarshalJSON() ([]byte, error) {
	if e.Type == EventSources {
		sources := e.Sources
		if sources == nil {
			sources = []models.Source{}
		}
		return json.Marshal(struct {
			Type    string          `json:"type"`
			Sources []models.Source `json:"sources"`
		}{e.Type, sources})
	}
	type alias Event
	return json.Marshal(alias(e))
}

// historyWindow is how many trailing messages are replayed to the model.
const historyWindow = 6

const systemPromptTemplate = `You are a helpful Process Repository AI Assistant. You help branch employees find and understand Standard Operating Procedures (SOPs) and company policies.

RULES:
- Answer questions based ONLY on the provided context from company documents.
- If the context doesn't contain relevant information, say so clearly.
- Always cite which document(s) your answer is based on using the source names provided.
- Be concise but thorough. Use bullet points for lists.
- If asked to do something unrelated to company processes, politely redirect to process-related queries.
- Format your response in Markdown for readability.

CONTEXT FROM COMPANY DOCUMENTS:
%s`

const emptyContext = "No relevant documents were found for this query."

// ChatStore persists sessions and their messages.
type ChatStore interface {
	CreateChatSession(ctx context.Context, branchID int64) (int64, error)
	AddChatMessage(ctx context.Context, msg *models.ChatMessage) (int64, error)
	ListMessagesBySession(ctx context.Context, sessionID int64) ([]models.ChatMessage, error)
}

// Searcher ranks chunks for a query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]models.RetrievedChunk, error)
}

// Orchestrator runs one chat turn end to end: session resolution, retrieval,
// grounded streaming generation, and persistence of both sides of the turn.
type Orchestrator struct {
	store     ChatStore
	retriever Searcher
	llm       core.LLMProvider
	log       *zap.Logger
}

func NewOrchestrator(store ChatStore, retriever Searcher, llm core.LLMProvider, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{store: store, retriever: retriever, llm: llm, log: log}
}

// Run executes one chat turn and streams events on the returned channel. The
// channel is closed when the turn finishes, errors out, or ctx is cancelled.
// A sessionID of 0 creates a new session under branchID.
func (o *Orchestrator) Run(ctx context.Context, branchID, sessionID int64, message string) <-chan Event {
	events := make(chan Event)
	go func() {
		defer close(events)
		o.run(ctx, branchID, sessionID, message, events)
	}()
	return events
}

func (o *Orchestrator) run(ctx context.Context, branchID, sessionID int64, message string, events chan<- Event) {
	sid := sessionID
	if sid == 0 {
		var err error
		sid, err = o.store.CreateChatSession(ctx, branchID)
		if err != nil {
			o.fail(ctx, events, "create session", err)
			return
		}
	}
	if !o.emit(ctx, events, Event{Type: EventSession, SessionID: sid}) {
		return
	}

	if _, err := o.store.AddChatMessage(ctx, &models.ChatMessage{
		SessionID: sid,
		Role:      "user",
		Content:   message,
	}); err != nil {
		o.fail(ctx, events, "persist user message", err)
		return
	}

	history, err := o.store.ListMessagesBySession(ctx, sid)
	if err != nil {
		o.fail(ctx, events, "load history", err)
		return
	}
	// The turn being answered is already persisted; it goes to the model as
	// the live message, not as history.
	if n := len(history); n > 0 {
		history = history[:n-1]
	}

	hits, err := o.retriever.Search(ctx, message)
	if err != nil {
		o.fail(ctx, events, "retrieve context", err)
		return
	}
	system := fmt.Sprintf(systemPromptTemplate, buildContext(hits))

	tokens, errc := o.llm.StreamGenerate(ctx, system, buildWindow(history), message)

	var answer strings.Builder
	sources := dedupSources(hits)
	for text := range tokens {
		answer.WriteString(text)
		if !o.emit(ctx, events, Event{Type: EventChunk, Content: text}) {
			o.persistPartial(sid, answer.String(), sources)
			return
		}
	}
	if err := <-errc; err != nil {
		if ctx.Err() != nil {
			o.persistPartial(sid, answer.String(), sources)
			return
		}
		o.fail(ctx, events, "generate response", err)
		return
	}

	if !o.emit(ctx, events, Event{Type: EventSources, Sources: sources}) {
		o.persistPartial(sid, answer.String(), sources)
		return
	}

	if _, err := o.store.AddChatMessage(ctx, &models.ChatMessage{
		SessionID: sid,
		Role:      "assistant",
		Content:   answer.String(),
		Sources:   sources,
	}); err != nil {
		o.fail(ctx, events, "persist assistant message", err)
		return
	}

	o.emit(ctx, events, Event{Type: EventDone})
}

// buildContext renders ranked chunks as numbered source blocks for the
// system prompt.
func buildContext(hits []models.RetrievedChunk) string {
	if len(hits) == 0 {
		return emptyContext
	}
	parts := make([]string, len(hits))
	for i, h := range hits {
		parts[i] = fmt.Sprintf("[Source %d: %q]\n%s", i+1, h.DocTitle, h.Content)
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// buildWindow maps the trailing stored messages into model turns. The model
// rejects histories that do not alternate starting with a user turn, so
// leading assistant turns and repeated roles are dropped.
func buildWindow(history []models.ChatMessage) []core.Turn {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	turns := make([]core.Turn, 0, len(history))
	for _, m := range history {
		role := "model"
		if m.Role == "user" {
			role = "user"
		}
		if len(turns) == 0 && role != "user" {
			continue
		}
		if len(turns) > 0 && turns[len(turns)-1].Role == role {
			continue
		}
		turns = append(turns, core.Turn{Role: role, Text: m.Content})
	}
	return turns
}

// dedupSources keeps one attribution per document, in retrieval rank order.
func dedupSources(hits []models.RetrievedChunk) []models.Source {
	seen := make(map[int64]bool, len(hits))
	sources := make([]models.Source, 0, len(hits))
	for _, h := range hits {
		if seen[h.DocumentID] {
			continue
		}
		seen[h.DocumentID] = true
		sources = append(sources, models.Source{
			Title:      h.DocTitle,
			URL:        h.DriveURL,
			DocumentID: h.DocumentID,
		})
	}
	return sources
}

// persistPartial saves whatever was generated before the client went away so
// the transcript stays coherent. Runs detached from the request context.
func (o *Orchestrator) persistPartial(sessionID int64, content string, sources []models.Source) {
	if content == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := o.store.AddChatMessage(ctx, &models.ChatMessage{
		SessionID: sessionID,
		Role:      "assistant",
		Content:   content,
		Sources:   sources,
	}); err != nil {
		o.log.Warn("failed to persist partial response",
			zap.Int64("session_id", sessionID), zap.Error(err))
	}
}

func (o *Orchestrator) fail(ctx context.Context, events chan<- Event, stage string, err error) {
	o.log.Error("chat turn failed", zap.String("stage", stage), zap.Error(err))
	o.emit(ctx, events, Event{Type: EventError, Message: "Failed to generate response."})
}

func (o *Orchestrator) emit(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
