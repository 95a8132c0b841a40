package tui

import (
	"strings"
	"testing"
	"time"

	"todo/internal/assistant"
	"todo/internal/i18n"
	"todo/internal/todos"

	"github.com/mattn/go-runewidth"
)

func TestRenderMarkdownEmpty(t *testing.T) {
	if got := RenderMarkdown("   ", 80); got != "" {
		t.Fatalf("RenderMarkdown(blank)=%q, want empty", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("Truncate(short)=%q", got)
	}
	got := Truncate("整理季度报告和会议纪要", 9)
	if w := runewidth.StringWidth(got); w > 9 {
		t.Fatalf("width=%d > 9 for %q", w, got)
	}
	if !strings.HasSuffix(got, "…") {
		t.Fatalf("Truncate should end with an ellipsis: %q", got)
	}
	if got := Truncate("line one\nline two", 40); strings.Contains(got, "\n") {
		t.Fatalf("newlines should be flattened: %q", got)
	}
	if got := Truncate("anything", 0); got != "" {
		t.Fatalf("Truncate(width 0)=%q", got)
	}
}

func TestRenderTodoRow(t *testing.T) {
	theme := DarkTheme()
	loc := i18n.New("en")

	open := RenderTodoRow(todos.Todo{ID: "1", Title: "buy milk"}, false, 60, theme, loc)
	if !strings.Contains(open, "[ ]") || !strings.Contains(open, "buy milk") {
		t.Fatalf("open row=%q", open)
	}

	done := RenderTodoRow(todos.Todo{ID: "2", Title: "file taxes", Description: "before april", IsCompleted: true}, true, 60, theme, loc)
	if !strings.Contains(done, "[x]") || !strings.Contains(done, "before april") {
		t.Fatalf("done row=%q", done)
	}
	if !strings.Contains(done, ">") {
		t.Fatalf("selected row should carry the cursor: %q", done)
	}
	if n := strings.Count(done, "\n"); n != 1 {
		t.Fatalf("row with description should span 2 lines, got %d newlines", n)
	}
}

func TestRenderMessage(t *testing.T) {
	theme := DarkTheme()
	loc := i18n.New("en")
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	user := RenderMessage(assistant.Message{Text: "add milk", Sender: assistant.SenderUser, At: at}, 60, theme, loc)
	if !strings.Contains(user, "You") || !strings.Contains(user, "add milk") || !strings.Contains(user, "09:30") {
		t.Fatalf("user message=%q", user)
	}

	failed := RenderMessage(assistant.Message{Text: "Unable to connect", Sender: assistant.SenderAssistant, At: at, Failed: true}, 60, theme, loc)
	if !strings.Contains(failed, "Unable to connect") {
		t.Fatalf("failed message=%q", failed)
	}

	withAction := RenderMessage(assistant.Message{
		Text:         "Done",
		Sender:       assistant.SenderAssistant,
		At:           at,
		ActionResult: &assistant.ActionResult{Success: false, Message: "Todo not found"},
	}, 60, theme, loc)
	if !strings.Contains(withAction, "✗ Todo not found") {
		t.Fatalf("action result not rendered: %q", withAction)
	}
}

func TestFormatCount(t *testing.T) {
	loc := i18n.New("en")
	items := []todos.Todo{{IsCompleted: true}, {}, {IsCompleted: true}}
	if got := formatCount(loc, items); got != "3 todos · 2 done" {
		t.Fatalf("formatCount=%q", got)
	}
}
