package tui

import (
	"context"

	"todo/internal/assistant"
	"todo/internal/session"
	"todo/internal/todos"
	"todo/internal/views"

	tea "github.com/charmbracelet/bubbletea"
)

// --- Tea Messages ---

// sessionCheckedMsg 会话存储已可读
// sessionCheckedMsg reports the session once the store is readable
type sessionCheckedMsg struct{ authenticated bool }

// sessionChangedMsg token 变化通知
// sessionChangedMsg carries a token change from the session store
type sessionChangedMsg struct{ token string }

// authDoneMsg 登录或注册请求完成
// authDoneMsg is the outcome of a login or register request
type authDoneMsg struct {
	register bool
	err      error
}

// todosLoadedMsg 列表请求完成；list 和 ticket 用于丢弃过期结果
// todosLoadedMsg is a list fetch result; list and ticket drop stale results
type todosLoadedMsg struct {
	list   *views.List
	ticket views.LoadTicket
	items  []todos.Todo
	err    error
}

type todoCreatedMsg struct {
	form *views.Form
	todo todos.Todo
	err  error
}

type todoToggledMsg struct {
	list *views.List
	todo todos.Todo
	err  error
}

type todoDeletedMsg struct {
	list *views.List
	todo todos.Todo
	err  error
}

type assistantStatusMsg struct {
	status assistant.Status
	err    error
}

type chatDoneMsg struct {
	ticket assistant.Ticket
	reply  assistant.Reply
	err    error
}

// --- Commands ---

func checkSession(s *session.Store) tea.Cmd {
	return func() tea.Msg {
		return sessionCheckedMsg{authenticated: s.IsAuthenticated()}
	}
}

func loginCmd(s *session.Store, email, password string) tea.Cmd {
	return func() tea.Msg {
		_, err := s.Login(context.Background(), email, password)
		return authDoneMsg{err: err}
	}
}

func registerCmd(s *session.Store, p session.Profile) tea.Cmd {
	return func() tea.Msg {
		_, err := s.Register(context.Background(), p)
		return authDoneMsg{register: true, err: err}
	}
}

func loadCmd(gw *todos.Gateway, list *views.List, ticket views.LoadTicket) tea.Cmd {
	return func() tea.Msg {
		items, err := gw.List(context.Background())
		return todosLoadedMsg{list: list, ticket: ticket, items: items, err: err}
	}
}

func createCmd(gw *todos.Gateway, form *views.Form, in todos.CreateInput) tea.Cmd {
	return func() tea.Msg {
		todo, err := gw.Create(context.Background(), in)
		return todoCreatedMsg{form: form, todo: todo, err: err}
	}
}

// toggleCmd 在命令里用独立的 Item，界面只应用服务端返回值
// toggleCmd works on its own Item; the UI only applies the server's copy
func toggleCmd(gw *todos.Gateway, list *views.List, todo todos.Todo) tea.Cmd {
	return func() tea.Msg {
		item := views.NewItem(gw, todo)
		err := item.Toggle(context.Background())
		return todoToggledMsg{list: list, todo: item.Todo, err: err}
	}
}

// deleteCmd runs after the y/n prompt was answered yes.
func deleteCmd(gw *todos.Gateway, list *views.List, todo todos.Todo) tea.Cmd {
	return func() tea.Msg {
		item := views.NewItem(gw, todo)
		_, err := item.Delete(context.Background(), views.ConfirmFunc(func(string) bool { return true }))
		return todoDeletedMsg{list: list, todo: todo, err: err}
	}
}

func assistantStatusCmd(gw *assistant.Gateway) tea.Cmd {
	return func() tea.Msg {
		st, err := gw.Status(context.Background())
		return assistantStatusMsg{status: st, err: err}
	}
}

func chatCmd(gw *assistant.Gateway, ticket assistant.Ticket) tea.Cmd {
	return func() tea.Msg {
		reply, err := gw.Chat(context.Background(), ticket.Text)
		return chatDoneMsg{ticket: ticket, reply: reply, err: err}
	}
}
