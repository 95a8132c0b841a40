package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-runewidth"

	"todo/internal/assistant"
	"todo/internal/i18n"
	"todo/internal/todos"
)

// RenderMarkdown 使用 Glamour 渲染 markdown 文本
// RenderMarkdown renders markdown text using Glamour
func RenderMarkdown(content string, width int) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content
	}

	return strings.TrimRight(rendered, "\n")
}

// Truncate 按显示宽度截断（CJK 字符占两列）
// Truncate cuts s to width display columns; wide runes count as two
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = strings.ReplaceAll(s, "\n", " ")
	return runewidth.Truncate(s, width, "…")
}

// RenderTodoRow 渲染列表中的一行
// RenderTodoRow renders one list row
func RenderTodoRow(todo todos.Todo, selected bool, width int, theme Theme, loc *i18n.I18n) string {
	mark := loc.T("todo.open_mark")
	if todo.IsCompleted {
		mark = loc.T("todo.done_mark")
	}
	prefix := "  "
	if selected {
		prefix = "> "
	}

	avail := width - runewidth.StringWidth(prefix+mark+" ")
	title := Truncate(todo.Title, avail)
	line := prefix
	if selected {
		line = theme.CursorStyle.Render(prefix)
	}
	line += mark + " "

	switch {
	case todo.IsCompleted:
		line += theme.DoneStyle.Render(title)
	case selected:
		line += theme.CursorStyle.Render(title)
	default:
		line += title
	}

	if d := strings.TrimSpace(todo.Description); d != "" {
		indent := strings.Repeat(" ", runewidth.StringWidth(prefix+mark+" "))
		line += "\n" + indent + theme.MutedStyle.Render(Truncate(d, avail))
	}
	return line
}

// RenderMessage 渲染一条聊天消息；助手回复走 markdown
// RenderMessage renders one transcript entry; assistant replies go through markdown
func RenderMessage(m assistant.Message, width int, theme Theme, loc *i18n.I18n) string {
	var b strings.Builder
	stamp := m.At.Format("15:04")
	if m.Sender == assistant.SenderUser {
		b.WriteString(theme.UserStyle.Render(loc.T("assistant.you")))
		b.WriteString(theme.MutedStyle.Render(" " + stamp))
		b.WriteString("\n")
		b.WriteString(m.Text)
		return b.String()
	}

	b.WriteString(theme.AssistantStyle.Render(loc.T("assistant.bot")))
	b.WriteString(theme.MutedStyle.Render(" " + stamp))
	b.WriteString("\n")
	if m.Failed {
		b.WriteString(theme.ErrorStyle.Render(m.Text))
	} else {
		b.WriteString(RenderMarkdown(m.Text, width))
	}
	if r := m.ActionResult; r != nil {
		b.WriteString("\n")
		if r.Success {
			b.WriteString(theme.SuccessStyle.Render(loc.T("action.success", r.Message)))
		} else {
			b.WriteString(theme.ErrorStyle.Render(loc.T("action.failed", r.Message)))
		}
	}
	return b.String()
}

// countDone returns how many todos are completed.
func countDone(items []todos.Todo) int {
	n := 0
	for _, t := range items {
		if t.IsCompleted {
			n++
		}
	}
	return n
}

func formatCount(loc *i18n.I18n, items []todos.Todo) string {
	return loc.T("todo.count", len(items), countDone(items))
}

func formatEvent(kind, email string, at string) string {
	if email == "" {
		return fmt.Sprintf("%s  %s", at, kind)
	}
	return fmt.Sprintf("%s  %-13s %s", at, kind, email)
}
