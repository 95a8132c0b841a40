package tui

import (
	"fmt"
	"strings"

	"todo/internal/views"

	"github.com/charmbracelet/lipgloss"
)

func (a App) View() string {
	if a.width == 0 || a.height == 0 {
		return "Initializing..."
	}

	switch a.screen {
	case screenLogin, screenRegister:
		return a.renderAuth()
	case screenMain:
	default:
		return a.theme.MutedStyle.Render("  " + a.locale.T("status.loading"))
	}

	width, height := a.panelSize()
	tabs := a.renderTabs(width)
	panel := a.renderActivePanel(width, height)
	hint := a.theme.MutedStyle.Render(" " + a.hint())
	statusBar := a.renderStatusBar(a.width)

	return lipgloss.JoinVertical(lipgloss.Left, tabs, panel, hint, statusBar)
}

// --- 渲染方法 / Render methods ---

func (a App) renderAuth() string {
	title := a.locale.T("screen.login")
	labels := []string{a.locale.T("field.email"), a.locale.T("field.password")}
	inputs := a.loginInputs
	hint := a.locale.T("hint.login")
	if a.screen == screenRegister {
		title = a.locale.T("screen.register")
		labels = []string{
			a.locale.T("field.email"),
			a.locale.T("field.password"),
			a.locale.T("field.password_confirm"),
			a.locale.T("field.first_name"),
			a.locale.T("field.last_name"),
		}
		inputs = a.registerInputs
		hint = a.locale.T("hint.register")
	}

	labelWidth := 0
	for _, l := range labels {
		labelWidth = max(labelWidth, lipgloss.Width(l))
	}

	var parts []string
	parts = append(parts, a.theme.TitleStyle.Render(" "+title), "")
	for i, in := range inputs {
		label := fmt.Sprintf(" %-*s  ", labelWidth, labels[i])
		if i == a.authFocus {
			label = a.theme.CursorStyle.Render(label)
		} else {
			label = a.theme.MutedStyle.Render(label)
		}
		parts = append(parts, label+in.View())
	}
	parts = append(parts, "")
	if a.lastError != "" {
		parts = append(parts, " "+a.theme.ErrorStyle.Render(a.lastError))
	} else if a.status != "" {
		parts = append(parts, " "+a.theme.SuccessStyle.Render(a.status))
	}
	parts = append(parts, " "+a.theme.MutedStyle.Render(hint))

	body := lipgloss.NewStyle().Width(a.width).Height(a.height - 1).Render(strings.Join(parts, "\n"))
	return lipgloss.JoinVertical(lipgloss.Left, body, a.renderStatusBar(a.width))
}

func (a App) renderTabs(width int) string {
	tabs := []struct {
		id   PanelID
		name string
	}{
		{PanelTodos, a.locale.T("panel.todos")},
		{PanelAssistant, a.locale.T("panel.assistant")},
		{PanelLogs, a.locale.T("panel.logs")},
	}

	var parts []string
	for _, tab := range tabs {
		style := a.theme.InactiveTabStyle
		if tab.id == a.activePanel {
			style = a.theme.ActiveTabStyle
		}
		parts = append(parts, style.Render(tab.name))
	}

	return lipgloss.NewStyle().MaxWidth(width).Render(lipgloss.JoinHorizontal(lipgloss.Top, parts...))
}

func (a App) renderActivePanel(width, height int) string {
	style := lipgloss.NewStyle().
		Width(width).
		Height(height)

	var content string
	switch a.activePanel {
	case PanelTodos:
		content = a.renderTodos(width, height)
	case PanelAssistant:
		content = a.renderAssistant(width)
	case PanelLogs:
		content = a.logsView.View()
		if strings.TrimSpace(content) == "" {
			content = a.theme.MutedStyle.Render("  No logs yet")
		}
	}

	return style.Render(content)
}

func (a App) renderTodos(width, height int) string {
	var top []string
	if a.formOpen {
		top = append(top, a.theme.TitleStyle.Render(" "+a.locale.T("todo.new")))
		top = append(top, a.formField(a.locale.T("field.title"), a.titleInput.View(), a.formFocus == 0))
		top = append(top, a.formField(a.locale.T("field.description"), a.descInput.View(), a.formFocus == 1))
		if a.form.Disabled() {
			top = append(top, " "+a.theme.MutedStyle.Render(a.locale.T("status.submitting")))
		}
		top = append(top, "")
	}
	if a.lastError != "" {
		top = append(top, " "+a.theme.ErrorStyle.Render(a.lastError), "")
	}

	var body []string
	switch a.list.State() {
	case views.ListLoading:
		body = append(body, a.theme.MutedStyle.Render("  "+a.locale.T("status.loading")))
	case views.ListError, views.ListEmpty:
		banner := "  " + a.list.Banner()
		if a.list.State() == views.ListError {
			body = append(body, a.theme.ErrorStyle.Render(banner), a.theme.MutedStyle.Render("  "+a.locale.T("todo.retry")))
		} else {
			body = append(body, a.theme.MutedStyle.Render(banner))
		}
	default:
		items := a.list.Items()
		body = append(body, a.theme.MutedStyle.Render(" "+formatCount(a.locale, items)))
		for i, todo := range items {
			body = append(body, RenderTodoRow(todo, i == a.cursor, width-1, a.theme, a.locale))
		}
	}

	if a.confirmID != "" {
		body = append(body, "", " "+a.theme.DangerStyle.Render(a.locale.T("todo.confirm", views.MsgConfirmDelete)))
	}

	// 光标所在行保持可见 / Keep the cursor row visible
	rows := strings.Split(strings.Join(body, "\n"), "\n")
	avail := height - len(top)
	if avail < 1 {
		avail = 1
	}
	if len(rows) > avail {
		start := a.cursor + 1 - avail/2
		if start < 0 {
			start = 0
		}
		if start > len(rows)-avail {
			start = len(rows) - avail
		}
		rows = rows[start : start+avail]
	}
	return strings.Join(append(top, rows...), "\n")
}

func (a App) formField(label, view string, focused bool) string {
	l := fmt.Sprintf(" %-14s ", label)
	if focused {
		return a.theme.CursorStyle.Render(l) + view
	}
	return a.theme.MutedStyle.Render(l) + view
}

func (a App) renderAssistant(width int) string {
	var header []string
	if w := a.deps.Panel.Warning(); w != "" {
		header = append(header, " "+a.theme.WarningStyle.Render(a.locale.T("assistant.warning", w)))
	}

	var transcript string
	if len(a.deps.Panel.Messages()) == 0 && !a.deps.Panel.Composing() {
		lines := []string{
			" " + a.theme.TitleStyle.Render(a.locale.T("assistant.welcome")),
			" " + a.theme.MutedStyle.Render(a.locale.T("assistant.try")),
		}
		for i, s := range a.deps.Panel.Suggestions() {
			lines = append(lines, fmt.Sprintf("   %d. %s", i+1, s))
		}
		transcript = strings.Join(lines, "\n")
	} else {
		transcript = a.chatView.View()
	}

	if a.lastError != "" {
		header = append(header, " "+a.theme.ErrorStyle.Render(a.lastError))
	}
	input := a.theme.InputStyle.Width(width).Render(a.chatInput.View())

	parts := append(header, transcript, input)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (a App) hint() string {
	switch {
	case a.formOpen:
		return a.locale.T("hint.form")
	case a.activePanel == PanelAssistant:
		return a.locale.T("hint.assistant")
	case a.activePanel == PanelLogs:
		return a.locale.T("hint.logs")
	}
	return a.locale.T("hint.todos")
}

func (a App) renderStatusBar(width int) string {
	status := a.status
	switch {
	case a.screen == screenMain && a.list.State() == views.ListLoading:
		status = a.locale.T("status.loading")
	case a.screen == screenMain && a.deps.Panel.Composing():
		status = a.locale.T("status.composing")
	}

	left := " todo"
	if u := a.deps.Session.CachedUser(); a.screen == screenMain && u.Email != "" {
		left += " · " + u.DisplayName()
	}
	if status != "" {
		left += " · " + status
	}
	right := a.locale.T("status.api", a.deps.APIBase) + "  "

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	return a.theme.StatusBarStyle.Width(width).MaxWidth(width).Render(bar)
}
