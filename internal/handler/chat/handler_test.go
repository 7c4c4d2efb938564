package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	model "github.com/personachat/backend/internal/model/chat"
	"github.com/personachat/backend/internal/model/persona"
	"github.com/personachat/backend/internal/service/ai"
	chatservice "github.com/personachat/backend/internal/service/chat"
)

type stubCompleter struct {
	reply model.Reply
	err   error
}

func (s stubCompleter) Complete(context.Context, string, string) (model.Reply, error) {
	return s.reply, s.err
}

type nopHistory struct{}

func (nopHistory) Load() []model.Message      { return nil }
func (nopHistory) Save([]model.Message) error { return nil }

func setupRouter(complete chatservice.Completer) (*chi.Mux, *chatservice.Service) {
	store := persona.NewMemoryStore(persona.Seed())
	chatSvc := chatservice.NewService(nopHistory{}, complete, store, zap.NewNop())
	handler := New(chatSvc, store)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, chatSvc
}

func postJSON(t *testing.T, r http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestSubmitFlowCreatesSession(t *testing.T) {
	r, _ := setupRouter(stubCompleter{reply: model.Reply{Role: "assistant", Content: "Hi there"}})

	if resp := postJSON(t, r, "/chat/persona", map[string]string{"persona": "Calm"}); resp.Code != http.StatusOK {
		t.Fatalf("choose persona: expected 200, got %d", resp.Code)
	}
	if resp := postJSON(t, r, "/chat/messages", map[string]string{"text": "Hello"}); resp.Code != http.StatusOK {
		t.Fatalf("submit: expected 200, got %d", resp.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/chat/sessions", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("list sessions: expected 200, got %d", resp.Code)
	}

	var sessions []sessionView
	if err := json.Unmarshal(resp.Body.Bytes(), &sessions); err != nil {
		t.Fatalf("decode sessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	if sessions[0].Title != "Hello" {
		t.Fatalf("unexpected title %q", sessions[0].Title)
	}
	if !sessions[0].Active || !sessions[0].Deletable {
		t.Fatalf("focused session should be active and deletable: %+v", sessions[0])
	}
}

func TestTranscriptCarriesPersonaEmoji(t *testing.T) {
	r, _ := setupRouter(stubCompleter{reply: model.Reply{Role: "assistant", Content: "Sure"}})

	postJSON(t, r, "/chat/persona", map[string]string{"persona": "Smart"})
	postJSON(t, r, "/chat/messages", map[string]string{"text": "Hello"})

	req := httptest.NewRequest(http.MethodGet, "/chat/sessions/Hello/messages", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var feed []messageView
	if err := json.Unmarshal(resp.Body.Bytes(), &feed); err != nil {
		t.Fatalf("decode transcript: %v", err)
	}
	if len(feed) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(feed))
	}
	if feed[0].Emoji != "👤" {
		t.Fatalf("user row emoji: got %q", feed[0].Emoji)
	}
	if feed[1].Emoji != "🤓" {
		t.Fatalf("assistant row emoji: got %q", feed[1].Emoji)
	}
}

func TestSubmitUpstreamErrorMapsTo502(t *testing.T) {
	r, svc := setupRouter(stubCompleter{err: &ai.UpstreamError{
		StatusCode: http.StatusUnauthorized,
		Message:    "Incorrect API key provided",
	}})

	postJSON(t, r, "/chat/persona", map[string]string{"persona": "Calm"})
	resp := postJSON(t, r, "/chat/messages", map[string]string{"text": "Hello"})
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body["error"] == "" {
		t.Fatal("expected remote error message in response")
	}
	if len(svc.Sessions()) != 0 {
		t.Fatal("failed submission must not create a session")
	}
}

func TestSubmitWithoutPersona(t *testing.T) {
	r, _ := setupRouter(stubCompleter{reply: model.Reply{Role: "assistant", Content: "Hi"}})

	resp := postJSON(t, r, "/chat/messages", map[string]string{"text": "Hello"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestSelectUnknownSession(t *testing.T) {
	r, _ := setupRouter(stubCompleter{})

	resp := postJSON(t, r, "/chat/select", map[string]string{"title": "missing"})
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestChoosePersonaConflict(t *testing.T) {
	r, _ := setupRouter(stubCompleter{})

	postJSON(t, r, "/chat/persona", map[string]string{"persona": "Calm"})
	resp := postJSON(t, r, "/chat/persona", map[string]string{"persona": "Smart"})
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
}

func TestDeleteSession(t *testing.T) {
	r, _ := setupRouter(stubCompleter{reply: model.Reply{Role: "assistant", Content: "Hi"}})

	postJSON(t, r, "/chat/persona", map[string]string{"persona": "Calm"})
	postJSON(t, r, "/chat/messages", map[string]string{"text": "Hello"})

	req := httptest.NewRequest(http.MethodDelete, "/chat/sessions/Hello", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/chat/sessions/Hello", nil)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", resp.Code)
	}
}

func TestDeleteEscapedTitle(t *testing.T) {
	r, svc := setupRouter(stubCompleter{reply: model.Reply{Role: "assistant", Content: "Hi"}})

	postJSON(t, r, "/chat/persona", map[string]string{"persona": "Calm"})
	postJSON(t, r, "/chat/messages", map[string]string{"text": "what is Go"})

	path := "/chat/sessions/" + url.PathEscape("what is Go")
	req := httptest.NewRequest(http.MethodDelete, path, nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if len(svc.Sessions()) != 0 {
		t.Fatal("session should be gone")
	}
}

func TestStateVisibilityFlags(t *testing.T) {
	r, _ := setupRouter(stubCompleter{reply: model.Reply{Role: "assistant", Content: "Hi"}})

	getState := func() stateView {
		req := httptest.NewRequest(http.MethodGet, "/chat/state", nil)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		var state stateView
		if err := json.Unmarshal(resp.Body.Bytes(), &state); err != nil {
			t.Fatalf("decode state: %v", err)
		}
		return state
	}

	if state := getState(); !state.ShowPersonaPicker || state.ShowInput {
		t.Fatalf("fresh chat should show picker only: %+v", state)
	}

	postJSON(t, r, "/chat/persona", map[string]string{"persona": "Casual"})
	if state := getState(); state.ShowPersonaPicker || !state.ShowInput {
		t.Fatalf("after persona pick, input should show: %+v", state)
	}

	postJSON(t, r, "/chat/messages", map[string]string{"text": "Hello"})
	if state := getState(); state.CurrentTitle != "Hello" || !state.ShowInput {
		t.Fatalf("active session state wrong: %+v", state)
	}
}

func TestMalformedBodyRejected(t *testing.T) {
	r, _ := setupRouter(stubCompleter{})

	req := httptest.NewRequest(http.MethodPost, "/chat/messages", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestDisplayTitleTruncation(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"short", "short"},
		{"exactly eighteen c", "exactly eighteen c"},
		{"a title far too long for the sidebar", "a title far too lo.."},
	}
	for _, tc := range cases {
		if got := displayTitle(tc.in); got != tc.want {
			t.Fatalf("displayTitle(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
