package assistant

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"todo/internal/apiclient"
	"todo/internal/apitest"
)

func newTestPanel(t *testing.T, srv *apitest.Server, opts ...Option) *Panel {
	t.Helper()
	token := srv.AddUser("ada@example.com", "correct-horse")
	client := apiclient.New(srv.URL, apiclient.WithMiddleware(
		apiclient.AttachAuth(staticToken(token)),
	))
	return NewPanel(NewGateway(client), opts...)
}

type staticToken string

func (s staticToken) Token() string { return string(s) }

func TestSendAppendsUserThenAssistant(t *testing.T) {
	srv := apitest.New(t)
	srv.SetChat(func(message string) (apitest.ChatReply, int) {
		return apitest.ChatReply{
			Response: "Added it.",
			Action:   map[string]any{"type": "create_todo"},
			ActionResult: map[string]any{
				"success": true,
				"message": "Todo created",
				"todo":    map[string]any{"id": "t1", "title": "Call the dentist", "is_completed": false},
			},
		}, http.StatusOK
	})
	p := newTestPanel(t, srv)

	msg, err := p.Send(context.Background(), "  Add a new todo: Call the dentist ")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if msg.Sender != SenderAssistant || msg.Text != "Added it." {
		t.Fatalf("msg=%+v", msg)
	}
	if msg.ActionResult == nil || msg.ActionResult.Todo == nil || msg.ActionResult.Todo.Title != "Call the dentist" {
		t.Fatalf("action=%+v", msg.ActionResult)
	}

	history := p.Messages()
	if len(history) != 2 || history[0].Sender != SenderUser || history[0].Text != "Add a new todo: Call the dentist" {
		t.Fatalf("history=%+v", history)
	}
	if history[0].ID == "" || history[0].ID == history[1].ID {
		t.Fatal("messages need distinct ids")
	}
	if p.Composing() {
		t.Fatal("composing must clear after completion")
	}
}

func TestFailureBecomesAssistantBubble(t *testing.T) {
	srv := apitest.New(t)
	p := newTestPanel(t, srv)

	srv.FailNext(http.MethodPost, "/chatbot/chat", http.StatusInternalServerError, `{}`)
	if _, err := p.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	srv.FailNext(http.MethodPost, "/chatbot/chat", http.StatusServiceUnavailable, `{"detail":"Gemini quota exceeded"}`)
	if _, err := p.Send(context.Background(), "again"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	history := p.Messages()
	if len(history) != 4 {
		t.Fatalf("history=%+v", history)
	}
	if history[0].Text != "hello" || history[2].Text != "again" {
		t.Fatal("user messages must never be rolled back")
	}
	if !history[1].Failed || history[1].Text != "Sorry, something went wrong. Please try again." {
		t.Fatalf("fallback bubble=%+v", history[1])
	}
	if history[3].Text != "Gemini quota exceeded" {
		t.Fatalf("detail bubble=%+v", history[3])
	}
}

func TestOnlyOneOutstandingRequest(t *testing.T) {
	p := NewPanel(nil)
	ticket, err := p.Begin("first")
	if err != nil {
		t.Fatal(err)
	}
	if !p.Composing() {
		t.Fatal("expected composing")
	}
	if _, err := p.Begin("second"); !errors.Is(err, ErrBusy) {
		t.Fatalf("err=%v, want ErrBusy", err)
	}
	if _, ok := p.Complete(ticket, Reply{Response: "ok"}, nil); !ok {
		t.Fatal("completion dropped")
	}
	if _, err := p.Begin("second"); err != nil {
		t.Fatalf("Begin after completion: %v", err)
	}
}

func TestCloseDropsLateCompletion(t *testing.T) {
	p := NewPanel(nil)
	ticket, _ := p.Begin("question")
	p.Close()

	if _, ok := p.Complete(ticket, Reply{Response: "late"}, nil); ok {
		t.Fatal("late completion should be dropped")
	}
	if len(p.Messages()) != 0 || p.Composing() {
		t.Fatalf("panel not reset: %+v", p.Messages())
	}
}

func TestBeginValidation(t *testing.T) {
	p := NewPanel(nil, WithTokenBudget(HeuristicTokenizer(), 5))

	if _, err := p.Begin("   "); apiclient.KindOf(err) != apiclient.KindValidation {
		t.Fatalf("empty err=%v", err)
	}
	if _, err := p.Begin(strings.Repeat("word ", 20)); apiclient.KindOf(err) != apiclient.KindValidation {
		t.Fatalf("long err=%v", err)
	}
	if len(p.Messages()) != 0 {
		t.Fatal("rejected messages must not be appended")
	}
	if _, err := p.Begin("short"); err != nil {
		t.Fatalf("short err=%v", err)
	}
}

func TestMountWarnsWhenUnconfigured(t *testing.T) {
	srv := apitest.New(t)
	srv.SetConfigured(false)
	p := newTestPanel(t, srv)

	p.Mount(context.Background())
	if !strings.Contains(p.Warning(), "GEMINI_API_KEY") {
		t.Fatalf("warning=%q", p.Warning())
	}
	// The warning never blocks messaging.
	if _, err := p.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	srv.SetConfigured(true)
	p.Mount(context.Background())
	if p.Warning() != "" {
		t.Fatalf("warning=%q", p.Warning())
	}
}

func TestMountIgnoresStatusFailure(t *testing.T) {
	srv := apitest.New(t)
	srv.FailNext(http.MethodGet, "/chatbot/status", http.StatusInternalServerError, `{}`)
	p := newTestPanel(t, srv)

	p.Mount(context.Background())
	if p.Warning() != "" {
		t.Fatalf("warning=%q", p.Warning())
	}
}

func TestReplyActionName(t *testing.T) {
	if got := (Reply{Action: map[string]any{"type": "complete_todo"}}).ActionName(); got != "complete_todo" {
		t.Fatalf("ActionName=%q", got)
	}
	if got := (Reply{}).ActionName(); got != "" {
		t.Fatalf("ActionName=%q", got)
	}
}

func TestSuggestionsAreCopies(t *testing.T) {
	p := NewPanel(nil)
	s := p.Suggestions()
	s[0] = "mutated"
	if p.Suggestions()[0] != "What are my pending tasks?" {
		t.Fatal("Suggestions must return a copy")
	}
}

func TestHeuristicTokenizer(t *testing.T) {
	tok := HeuristicTokenizer()
	if tok.IsPrecise() {
		t.Fatal("heuristic tokenizer should not be precise")
	}
	if tok.CountText("") != 0 {
		t.Fatal("empty text should count 0")
	}
	if tok.CountText("Hello world") <= 0 || tok.CountText("你好世界") <= tok.CountText("abcd") {
		t.Fatal("unexpected heuristic counts")
	}
}
