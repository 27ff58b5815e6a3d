package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	middleware "github.com/nileshsolidarity/Processes/internal/api/middlewares"
	"github.com/nileshsolidarity/Processes/internal/core/rag"
	"github.com/nileshsolidarity/Processes/internal/models"
)

type stubRunner struct {
	events []rag.Event

	gotBranchID  int64
	gotSessionID int64
	gotMessage   string
}

func (s *stubRunner) Run(_ context.Context, branchID, sessionID int64, message string) <-chan rag.Event {
	s.gotBranchID, s.gotSessionID, s.gotMessage = branchID, sessionID, message
	out := make(chan rag.Event)
	go func() {
		defer close(out)
		for _, ev := range s.events {
			out <- ev
		}
	}()
	return out
}

var _ ChatRunner = (*stubRunner)(nil)

type stubSessionStore struct {
	sessions []models.ChatSessionSummary
	messages []models.ChatMessage
}

func (s *stubSessionStore) ListChatSessions(_ context.Context, branchID int64, limit int) ([]models.ChatSessionSummary, error) {
	return s.sessions, nil
}

func (s *stubSessionStore) ListMessagesBySession(_ context.Context, sessionID int64) ([]models.ChatMessage, error) {
	return s.messages, nil
}

var _ SessionStore = (*stubSessionStore)(nil)

func authedChatServer(runner ChatRunner, store SessionStore) *httptest.Server {
	h := NewChatHandler(runner, store)
	r := chi.NewRouter()
	r.Use(middleware.JWTMiddleware(testSecret))
	r.Post("/api/chat", h.Chat)
	r.Get("/api/chat/sessions", h.Sessions)
	r.Get("/api/chat/sessions/{id}/messages", h.Messages)
	return httptest.NewServer(r)
}

func branchToken(t *testing.T, branchID int64) string {
	t.Helper()
	claims := jwt.MapClaims{
		"branchId": branchID,
		"name":     "Head Office",
		"code":     "HO001",
		"exp":      time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestChatStreamsEvents(t *testing.T) {
	runner := &stubRunner{events: []rag.Event{
		{Type: rag.EventSession, SessionID: 7},
		{Type: rag.EventChunk, Content: "Hel"},
		{Type: rag.EventChunk, Content: "lo"},
		{Type: rag.EventSources, Sources: []models.Source{{Title: "Doc", URL: "u", DocumentID: 1}}},
		{Type: rag.EventDone},
	}}
	srv := authedChatServer(runner, &stubSessionStore{})
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/chat", strings.NewReader(`{"message":"hi","sessionId":7}`))
	req.Header.Set("Authorization", "Bearer "+branchToken(t, 3))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}

	var got []rag.Event
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev rag.Event
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			t.Fatalf("bad frame %q: %v", line, err)
		}
		got = append(got, ev)
	}

	if len(got) != 5 {
		t.Fatalf("got %d events, want 5: %+v", len(got), got)
	}
	if got[0].Type != rag.EventSession || got[0].SessionID != 7 {
		t.Errorf("first event = %+v", got[0])
	}
	if got[1].Content+got[2].Content != "Hello" {
		t.Errorf("chunks = %q %q", got[1].Content, got[2].Content)
	}
	if got[4].Type != rag.EventDone {
		t.Errorf("last event = %+v", got[4])
	}

	if runner.gotBranchID != 3 || runner.gotSessionID != 7 || runner.gotMessage != "hi" {
		t.Errorf("runner called with branch=%d session=%d message=%q",
			runner.gotBranchID, runner.gotSessionID, runner.gotMessage)
	}
}

func TestChatRequiresMessage(t *testing.T) {
	srv := authedChatServer(&stubRunner{}, &stubSessionStore{})
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/chat", strings.NewReader(`{"sessionId":1}`))
	req.Header.Set("Authorization", "Bearer "+branchToken(t, 1))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestChatRequiresAuth(t *testing.T) {
	srv := authedChatServer(&stubRunner{}, &stubSessionStore{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/chat", "application/json", strings.NewReader(`{"message":"hi"}`))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestSessionsList(t *testing.T) {
	store := &stubSessionStore{sessions: []models.ChatSessionSummary{
		{ID: 2, FirstMessage: "latest question"},
		{ID: 1, FirstMessage: "older question"},
	}}
	srv := authedChatServer(&stubRunner{}, store)
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/chat/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+branchToken(t, 1))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	var sessions []models.ChatSessionSummary
	if err := json.NewDecoder(resp.Body).Decode(&sessions); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(sessions) != 2 || sessions[0].ID != 2 {
		t.Errorf("sessions = %+v", sessions)
	}
}

func TestSessionMessages(t *testing.T) {
	store := &stubSessionStore{messages: []models.ChatMessage{
		{ID: 1, SessionID: 5, Role: "user", Content: "q"},
		{ID: 2, SessionID: 5, Role: "assistant", Content: "a", Sources: []models.Source{{Title: "Doc", DocumentID: 1}}},
	}}
	srv := authedChatServer(&stubRunner{}, store)
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/chat/sessions/5/messages", nil)
	req.Header.Set("Authorization", "Bearer "+branchToken(t, 1))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	var msgs []models.ChatMessage
	if err := json.NewDecoder(resp.Body).Decode(&msgs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(msgs) != 2 || msgs[1].Sources[0].DocumentID != 1 {
		t.Errorf("messages = %+v", msgs)
	}
}
