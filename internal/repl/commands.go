package repl

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"todo/internal/apiclient"
	"todo/internal/assistant"
	"todo/internal/config"
	"todo/internal/session"
	"todo/internal/todos"
	"todo/internal/views"
)

type command struct {
	protected bool
	exit      bool
	run       func(s *Shell, ctx context.Context, args string) error
}

var commands = map[string]command{
	"/login":    {run: (*Shell).cmdLogin},
	"/register": {run: (*Shell).cmdRegister},
	"/logout":   {run: (*Shell).cmdLogout},
	"/whoami":   {run: (*Shell).cmdWhoami},
	"/list":     {protected: true, run: (*Shell).cmdList},
	"/add":      {protected: true, run: (*Shell).cmdAdd},
	"/show":     {protected: true, run: (*Shell).cmdShow},
	"/edit":     {protected: true, run: (*Shell).cmdEdit},
	"/done":     {protected: true, run: (*Shell).cmdDone},
	"/rm":       {protected: true, run: (*Shell).cmdRemove},
	"/chat":     {protected: true, run: (*Shell).cmdChat},
	"/status":   {run: (*Shell).cmdStatus},
	"/server":   {run: (*Shell).cmdServer},
	"/help":     {run: (*Shell).cmdHelp},
	"/exit":     {exit: true},
	"/quit":     {exit: true},
}

// commandNames feeds readline completion.
var commandNames = []string{
	"/login", "/register", "/logout", "/whoami", "/list", "/add", "/show",
	"/edit", "/done", "/rm", "/chat", "/status", "/server", "/help", "/exit",
}

func (s *Shell) usage(form string) error {
	return apiclient.Validation(s.t("repl.usage", form))
}

// --- 会话 / Session ---

func (s *Shell) cmdLogin(ctx context.Context, args string) error {
	email := strings.TrimSpace(args)
	if email == "" {
		return s.usage("/login <email>")
	}
	password, err := s.in.ReadPassword(s.t("repl.password_prompt"))
	if err != nil {
		s.warn(s.t("repl.cancelled"))
		return nil
	}

	form := views.NewLoginForm(s.deps.Session)
	form.Email = email
	form.Password = password
	if _, err := form.Submit(ctx); err != nil {
		return err
	}
	s.endSession()
	if !s.deps.Session.IsAuthenticated() {
		// 存储不可用时没有会话 / No session when the store is unavailable
		return nil
	}
	s.ok(s.t("status.signed_in", s.deps.Session.CachedUser().DisplayName()))
	return nil
}

func (s *Shell) cmdRegister(ctx context.Context, args string) error {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return s.usage("/register <email> [first last]")
	}
	p := session.Profile{Email: fields[0]}
	if len(fields) > 1 {
		p.FirstName = fields[1]
	}
	if len(fields) > 2 {
		p.LastName = strings.Join(fields[2:], " ")
	}
	var err error
	if p.Password, err = s.in.ReadPassword(s.t("repl.password_prompt")); err != nil {
		s.warn(s.t("repl.cancelled"))
		return nil
	}
	if p.PasswordConfirm, err = s.in.ReadPassword(s.t("repl.confirm_prompt")); err != nil {
		s.warn(s.t("repl.cancelled"))
		return nil
	}

	form := views.NewRegisterForm(s.deps.Session)
	form.Profile = p
	if _, err := form.Submit(ctx); err != nil {
		return err
	}
	s.endSession()
	if s.deps.Session.IsAuthenticated() {
		s.ok(s.t("status.registered_in", s.deps.Session.CachedUser().DisplayName()))
		return nil
	}
	s.ok(s.t("status.registered"))
	return nil
}

func (s *Shell) cmdLogout(context.Context, string) error {
	s.deps.Session.Logout()
	s.endSession()
	s.ok(s.t("status.signed_out"))
	return nil
}

func (s *Shell) cmdWhoami(context.Context, string) error {
	if !s.deps.Session.IsAuthenticated() {
		s.println(s.t("repl.not_signed_in"))
		return nil
	}
	u := s.deps.Session.CachedUser()
	s.println(s.t("repl.whoami", u.DisplayName(), u.Email))
	if claims, err := s.deps.Session.Claims(); err != nil {
		s.dim(s.t("repl.token_opaque"))
	} else if !claims.ExpiresAt.IsZero() {
		s.dim(s.t("repl.token_expires", claims.ExpiresAt.Local().Format(time.RFC1123)))
	}
	if events := s.deps.Session.Events(5); len(events) > 0 {
		s.println(s.t("repl.events"))
		for _, e := range events {
			s.dim(fmt.Sprintf("  %s  %-13s %s", e.At.Local().Format("2006-01-02 15:04"), e.Kind, e.Email))
		}
	}
	return nil
}

// --- 待办 / Todos ---

func (s *Shell) cmdList(ctx context.Context, _ string) error {
	if err := s.list.Load(ctx); err != nil {
		if apiclient.IsUnauthorized(err) {
			return err
		}
		s.fail(s.list.Banner())
		return nil
	}
	s.loaded = true
	s.printList()
	return nil
}

func (s *Shell) printList() {
	if s.list.State() == views.ListEmpty {
		s.dim(s.list.Banner())
		return
	}
	done := 0
	for i, todo := range s.list.Items() {
		if todo.IsCompleted {
			done++
		}
		s.println(s.formatRow(i+1, todo))
	}
	s.dim(s.t("todo.count", s.list.Len(), done))
}

func (s *Shell) formatRow(n int, todo todos.Todo) string {
	mark := s.t("todo.open_mark")
	if todo.IsCompleted {
		mark = s.t("todo.done_mark")
	}
	row := fmt.Sprintf("%3d. %s %s", n, mark, todo.Title)
	if d := strings.TrimSpace(todo.Description); d != "" {
		row += " · " + d
	}
	return row
}

// splitTitle 解析 "标题 | 描述"
// splitTitle parses "title | description"
func splitTitle(args string) (string, string) {
	title, desc, _ := strings.Cut(args, "|")
	return strings.TrimSpace(title), strings.TrimSpace(desc)
}

func (s *Shell) cmdAdd(ctx context.Context, args string) error {
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	var created todos.Todo
	form := views.NewForm(s.deps.Todos, nil)
	form.Title, form.Description = splitTitle(args)
	form.OnCreated = func(todo todos.Todo) {
		created = todo
		s.list.Prepend(todo)
	}
	if err := form.Submit(ctx); err != nil {
		return err
	}
	s.ok(s.t("todo.created", created.Title))
	return nil
}

func (s *Shell) cmdShow(ctx context.Context, args string) error {
	ref := strings.TrimSpace(args)
	if ref == "" {
		return s.usage("/show <n|id>")
	}
	target, err := s.resolve(ctx, ref)
	if err != nil {
		return err
	}
	todo, err := s.deps.Todos.Get(ctx, target.ID)
	if err != nil {
		return err
	}
	s.list.Replace(todo)
	status := s.t("todo.open_mark")
	if todo.IsCompleted {
		status = s.t("todo.done_mark")
	}
	s.println(status + " " + todo.Title)
	if todo.Description != "" {
		s.println("    " + todo.Description)
	}
	s.dim(fmt.Sprintf("    id=%s created=%s updated=%s", todo.ID, todo.CreatedAt, todo.UpdatedAt))
	return nil
}

func (s *Shell) cmdEdit(ctx context.Context, args string) error {
	ref, rest, _ := strings.Cut(strings.TrimSpace(args), " ")
	title, desc := splitTitle(rest)
	if ref == "" || title == "" {
		return s.usage("/edit <n|id> <title> [| description]")
	}
	target, err := s.resolve(ctx, ref)
	if err != nil {
		return err
	}
	in := todos.UpdateInput{Title: &title}
	if strings.Contains(rest, "|") {
		in.Description = &desc
	}
	todo, err := s.deps.Todos.Update(ctx, target.ID, in)
	if err != nil {
		return err
	}
	s.list.Replace(todo)
	s.ok(s.formatRow(s.position(todo.ID), todo))
	return nil
}

func (s *Shell) cmdDone(ctx context.Context, args string) error {
	ref := strings.TrimSpace(args)
	if ref == "" {
		return s.usage("/done <n|id>")
	}
	target, err := s.resolve(ctx, ref)
	if err != nil {
		return err
	}
	item := views.NewItem(s.deps.Todos, target)
	item.OnChanged = func(todo todos.Todo) { s.list.Replace(todo) }
	if err := item.Toggle(ctx); err != nil {
		return err
	}
	if item.Todo.IsCompleted {
		s.ok(s.t("todo.toggled_on", item.Todo.Title))
	} else {
		s.ok(s.t("todo.toggled_off", item.Todo.Title))
	}
	return nil
}

func (s *Shell) cmdRemove(ctx context.Context, args string) error {
	ref := strings.TrimSpace(args)
	if ref == "" {
		return s.usage("/rm <n|id>")
	}
	target, err := s.resolve(ctx, ref)
	if err != nil {
		return err
	}
	item := views.NewItem(s.deps.Todos, target)
	item.OnDeleted = func(id string) { s.list.Remove(id) }
	deleted, err := item.Delete(ctx, views.ConfirmFunc(func(prompt string) bool {
		return s.confirm(fmt.Sprintf("%s %q", prompt, target.Title))
	}))
	if err != nil {
		return err
	}
	if !deleted {
		s.dim(s.t("repl.cancelled"))
		return nil
	}
	s.ok(s.t("todo.deleted", target.Title))
	return nil
}

// resolve 将 "3" 解析为列表第 3 项，其余视为 id
// resolve maps "3" to the third listed todo; anything else is taken as an id
func (s *Shell) resolve(ctx context.Context, ref string) (todos.Todo, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return todos.Todo{}, err
	}
	if n, err := strconv.Atoi(ref); err == nil {
		if todo, ok := s.list.At(n - 1); ok {
			return todo, nil
		}
		return todos.Todo{}, apiclient.Validation(s.t("repl.no_match", ref))
	}
	if todo, ok := s.list.Find(ref); ok {
		return todo, nil
	}
	return todos.Todo{ID: ref}, nil
}

func (s *Shell) ensureLoaded(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	if err := s.list.Load(ctx); err != nil {
		return err
	}
	s.loaded = true
	return nil
}

func (s *Shell) position(id string) int {
	for i, todo := range s.list.Items() {
		if todo.ID == id {
			return i + 1
		}
	}
	return 0
}

// --- 助手 / Assistant ---

func (s *Shell) cmdChat(ctx context.Context, args string) error {
	switch strings.ToLower(strings.TrimSpace(args)) {
	case "":
		s.chatMode = !s.chatMode
	case "on":
		s.chatMode = true
	case "off":
		s.chatMode = false
	default:
		s.mountChat(ctx)
		s.chat(ctx, args)
		return nil
	}
	if s.chatMode {
		s.dim(s.t("repl.chat_mode_on"))
		s.mountChat(ctx)
	} else {
		s.dim(s.t("repl.chat_mode_off"))
	}
	return nil
}

// mountChat 首次进入聊天时检查助手状态，未配置时给出提示
// mountChat runs the assistant status check once per session, the first time
// chat is used, and shows the warning when the assistant is not configured.
func (s *Shell) mountChat(ctx context.Context) {
	if s.chatMounted || !s.deps.Session.IsAuthenticated() {
		return
	}
	s.chatMounted = true
	s.deps.Panel.Mount(ctx)
	if w := s.deps.Panel.Warning(); w != "" {
		s.warn(s.t("assistant.warning", w))
	}
}

// chat 发送一条消息；失败会作为助手消息写入对话记录
// chat sends one message; failures come back as assistant messages
func (s *Shell) chat(ctx context.Context, text string) {
	if !s.requireSession() {
		s.chatMode = false
		return
	}
	msg, err := s.deps.Panel.Send(ctx, text)
	if err != nil {
		s.report(err)
		return
	}
	if msg.Failed {
		if s.deps.Session.IsAuthenticated() {
			s.fail(msg.Text)
			return
		}
		s.endSession()
		s.warn(s.t("status.expired"))
		return
	}
	s.paint(ansiCyan, s.t("assistant.bot")+":")
	s.println(msg.Text)
	if r := msg.ActionResult; r != nil {
		if r.Success {
			s.ok(s.t("action.success", r.Message))
			// 助手改动了待办，下次使用前重新加载 / Reload before the next use
			s.loaded = false
		} else {
			s.fail(s.t("action.failed", r.Message))
		}
	}
}

func (s *Shell) cmdStatus(ctx context.Context, _ string) error {
	st, err := s.deps.Assistant.Status(ctx)
	s.deps.Panel.ApplyStatus(st, err)
	if err != nil {
		return err
	}
	if w := s.deps.Panel.Warning(); w != "" {
		s.warn(s.t("assistant.warning", w))
		return nil
	}
	s.ok(st.Message)
	return nil
}

// --- 其它 / Misc ---

func (s *Shell) cmdServer(_ context.Context, args string) error {
	url := strings.TrimSpace(args)
	if url == "" {
		s.println(s.t("status.api", s.deps.APIBase))
		return nil
	}
	if err := config.WriteAPIBaseURL(s.deps.ProjectDir, url); err != nil {
		return err
	}
	s.ok(s.t("repl.server_saved", config.ProjectConfigPath(s.deps.ProjectDir)))
	return nil
}

func (s *Shell) cmdHelp(context.Context, string) error {
	s.println(s.t("repl.help"))
	for _, q := range assistant.Suggestions {
		s.dim("  /chat " + q)
	}
	return nil
}
