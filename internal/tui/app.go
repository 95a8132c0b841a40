package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"todo/internal/apiclient"
	"todo/internal/assistant"
	"todo/internal/i18n"
	"todo/internal/session"
	"todo/internal/todos"
	"todo/internal/views"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// PanelID 面板标识
// PanelID identifies a panel on the main screen
type PanelID int

const (
	PanelTodos PanelID = iota
	PanelAssistant
	PanelLogs
)

const panelCount = 3

type screen int

const (
	screenBoot screen = iota
	screenLogin
	screenRegister
	screenMain
)

// 登录/注册表单字段下标 / Field indexes of the auth forms
const (
	fieldEmail = iota
	fieldPassword
	fieldConfirm
	fieldFirstName
	fieldLastName
)

// maxLogLines caps the activity panel.
const maxLogLines = 500

// Deps 运行 TUI 所需的服务
// Deps are the services the TUI drives
type Deps struct {
	Session   *session.Store
	Todos     *todos.Gateway
	Assistant *assistant.Gateway
	Panel     *assistant.Panel
	Logger    *zap.Logger
	Locale    *i18n.I18n
	APIBase   string
}

// App Bubble Tea 主 Model
// App is the main Bubble Tea model
type App struct {
	// 布局 / Layout
	width  int
	height int

	deps Deps

	// 页面 / Screens
	screen      screen
	activePanel PanelID

	// 视图状态 / View state
	list     *views.List
	form     *views.Form
	login    *views.LoginForm
	register *views.RegisterForm

	// 输入 / Inputs
	loginInputs    []textinput.Model
	registerInputs []textinput.Model
	authFocus      int
	titleInput     textinput.Model
	descInput      textinput.Model
	formOpen       bool
	formFocus      int
	chatInput      textarea.Model

	// 面板 / Panels
	chatView viewport.Model
	logsView viewport.Model
	logLines []string

	// 状态 / State
	cursor    int
	confirmID string
	status    string
	lastError string

	theme  Theme
	keys   KeyMap
	locale *i18n.I18n
}

// NewApp 创建 TUI 应用
// NewApp creates the TUI application
func NewApp(deps Deps) App {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Locale == nil {
		deps.Locale = i18n.New("")
	}
	loc := deps.Locale

	ta := textarea.New()
	ta.Placeholder = loc.T("assistant.placeholder")
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	ta.CharLimit = 4000

	a := App{
		deps:     deps,
		screen:   screenBoot,
		login:    views.NewLoginForm(deps.Session),
		register: views.NewRegisterForm(deps.Session),
		loginInputs: []textinput.Model{
			newInput(loc.T("field.email"), false),
			newInput(loc.T("field.password"), true),
		},
		registerInputs: []textinput.Model{
			newInput(loc.T("field.email"), false),
			newInput(loc.T("field.password"), true),
			newInput(loc.T("field.password_confirm"), true),
			newInput(loc.T("field.first_name"), false),
			newInput(loc.T("field.last_name"), false),
		},
		titleInput: newInput(loc.T("field.title"), false),
		descInput:  newInput(loc.T("field.description"), false),
		chatInput:  ta,
		chatView:   viewport.New(80, 20),
		logsView:   viewport.New(80, 20),
		theme:      DarkTheme(),
		keys:       DefaultKeyMap(),
		locale:     loc,
	}
	a.newViews()
	return a
}

func newInput(placeholder string, secret bool) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.Prompt = ""
	in.CharLimit = 256
	if secret {
		in.EchoMode = textinput.EchoPassword
		in.EchoCharacter = '•'
	}
	return in
}

// newViews 为新会话创建列表与表单；旧列表卸载后其结果被丢弃
// newViews creates a fresh list and form; results bound to the old list are dropped
func (a *App) newViews() {
	if a.list != nil {
		a.list.Unmount()
	}
	a.list = views.NewList(a.deps.Todos)
	a.form = views.NewForm(a.deps.Todos, a.list.Prepend)
	a.cursor = 0
}

func (a App) Init() tea.Cmd {
	// 会话存储可读后再做路由守卫 / Guard resolution waits for the session store
	return tea.Batch(textinput.Blink, checkSession(a.deps.Session))
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.relayout()
		return a, nil

	case tea.KeyMsg:
		if key.Matches(msg, a.keys.Quit) {
			return a, tea.Quit
		}
		switch a.screen {
		case screenLogin, screenRegister:
			return a.updateAuth(msg)
		case screenMain:
			return a.updateMain(msg)
		}
		return a, nil

	case sessionCheckedMsg:
		if views.Resolve(views.RouteTodos, msg.authenticated) == views.RouteTodos {
			return a.enterMain("")
		}
		a.showLogin("")
		return a, nil

	case sessionChangedMsg:
		// 其它地方清除了 token（例如 401）/ Token cleared elsewhere, e.g. by a 401
		if msg.token == "" && a.screen == screenMain {
			a.leaveMain(a.locale.T("status.expired"))
		}
		return a, nil

	case authDoneMsg:
		return a.finishAuth(msg)

	case todosLoadedMsg:
		if !msg.list.ApplyLoad(msg.ticket, msg.items, msg.err) {
			return a, nil
		}
		if a.expired(msg.err) {
			return a, nil
		}
		if msg.err != nil {
			a.appendLog("✗ " + msg.err.Error())
		} else {
			a.appendLog(fmt.Sprintf("✓ loaded %d todos", len(msg.items)))
		}
		a.clampCursor()
		return a, nil

	case todoCreatedMsg:
		msg.form.Finish(msg.todo, msg.err)
		if msg.form != a.form || a.expired(msg.err) {
			return a, nil
		}
		if msg.err != nil {
			a.lastError = msg.err.Error()
			return a, nil
		}
		a.closeForm()
		a.cursor = 0
		a.setStatus(a.locale.T("todo.created", msg.todo.Title))
		return a, nil

	case todoToggledMsg:
		if msg.list != a.list || a.expired(msg.err) {
			return a, nil
		}
		if msg.err != nil {
			a.lastError = msg.err.Error()
			return a, nil
		}
		msg.list.Replace(msg.todo)
		if msg.todo.IsCompleted {
			a.setStatus(a.locale.T("todo.toggled_on", msg.todo.Title))
		} else {
			a.setStatus(a.locale.T("todo.toggled_off", msg.todo.Title))
		}
		return a, nil

	case todoDeletedMsg:
		if msg.list != a.list || a.expired(msg.err) {
			return a, nil
		}
		if msg.err != nil {
			a.lastError = msg.err.Error()
			return a, nil
		}
		msg.list.Remove(msg.todo.ID)
		a.clampCursor()
		a.setStatus(a.locale.T("todo.deleted", msg.todo.Title))
		return a, nil

	case assistantStatusMsg:
		a.deps.Panel.ApplyStatus(msg.status, msg.err)
		a.refreshChat()
		return a, nil

	case chatDoneMsg:
		m, ok := a.deps.Panel.Complete(msg.ticket, msg.reply, msg.err)
		if !ok || a.expired(msg.err) {
			return a, nil
		}
		a.refreshChat()
		if m.Failed {
			a.appendLog("✗ assistant: " + m.Text)
			return a, nil
		}
		if name := msg.reply.ActionName(); name != "" {
			a.appendLog("assistant action: " + name)
		}
		// 助手改动了待办时刷新列表 / Reload when the assistant changed todos
		if r := msg.reply.ActionResult; r != nil && r.Success {
			return a, a.startLoad()
		}
		return a, nil
	}

	// 其余消息（光标闪烁等）交给当前焦点输入框
	// Anything else, e.g. cursor blinks, goes to the focused input
	return a.updateFocused(msg)
}

func (a App) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case a.screen == screenLogin || a.screen == screenRegister:
		inputs := a.authInputs()
		inputs[a.authFocus], cmd = inputs[a.authFocus].Update(msg)
	case a.screen != screenMain:
	case a.formOpen && a.formFocus == 0:
		a.titleInput, cmd = a.titleInput.Update(msg)
	case a.formOpen:
		a.descInput, cmd = a.descInput.Update(msg)
	case a.activePanel == PanelAssistant:
		a.chatInput, cmd = a.chatInput.Update(msg)
	}
	return a, cmd
}

// --- 登录/注册 / Auth screens ---

func (a App) updateAuth(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	inputs := a.authInputs()
	switch {
	case key.Matches(msg, a.keys.SwitchAuth):
		if a.screen == screenLogin {
			a.showRegister()
		} else {
			a.showLogin("")
		}
		return a, nil
	case key.Matches(msg, a.keys.SwitchPanel), msg.String() == "down":
		a.focusAuth((a.authFocus + 1) % len(inputs))
		return a, nil
	case key.Matches(msg, a.keys.PrevField):
		a.focusAuth((a.authFocus + len(inputs) - 1) % len(inputs))
		return a, nil
	case key.Matches(msg, a.keys.Submit):
		if a.screen == screenLogin {
			return a, a.submitLogin()
		}
		return a, a.submitRegister()
	}

	var cmd tea.Cmd
	inputs[a.authFocus], cmd = inputs[a.authFocus].Update(msg)
	return a, cmd
}

func (a *App) authInputs() []textinput.Model {
	if a.screen == screenRegister {
		return a.registerInputs
	}
	return a.loginInputs
}

func (a *App) focusAuth(i int) {
	inputs := a.authInputs()
	for j := range inputs {
		if j == i {
			inputs[j].Focus()
		} else {
			inputs[j].Blur()
		}
	}
	a.authFocus = i
}

func (a *App) submitLogin() tea.Cmd {
	if a.login.Submitting() {
		return nil
	}
	a.login.Email = strings.TrimSpace(a.loginInputs[fieldEmail].Value())
	a.login.Password = a.loginInputs[fieldPassword].Value()
	email, password, err := a.login.Begin()
	if err != nil {
		return nil
	}
	a.lastError = ""
	a.status = a.locale.T("status.signing_in")
	return loginCmd(a.deps.Session, email, password)
}

func (a *App) submitRegister() tea.Cmd {
	in := a.registerInputs
	a.register.Profile = session.Profile{
		Email:           strings.TrimSpace(in[fieldEmail].Value()),
		Password:        in[fieldPassword].Value(),
		PasswordConfirm: in[fieldConfirm].Value(),
		FirstName:       strings.TrimSpace(in[fieldFirstName].Value()),
		LastName:        strings.TrimSpace(in[fieldLastName].Value()),
	}
	p, err := a.register.Begin()
	if err != nil {
		// 本地校验失败，不发请求 / Local validation failed, nothing is sent
		if !errors.Is(err, views.ErrSubmitting) {
			a.lastError = err.Error()
		}
		return nil
	}
	a.lastError = ""
	a.status = a.locale.T("status.submitting")
	return registerCmd(a.deps.Session, p)
}

func (a App) finishAuth(msg authDoneMsg) (tea.Model, tea.Cmd) {
	if msg.register {
		email := a.register.Profile.Email
		route := a.register.Finish(msg.err)
		if route == views.RouteRegister {
			a.status = ""
			a.lastError = a.register.Err().Error()
			return a, nil
		}
		// 注册返回了 token 即视为已登录 / A returned token means we are signed in
		if views.Resolve(route, a.deps.Session.IsAuthenticated()) == views.RouteTodos {
			return a.enterMain(a.locale.T("status.registered_in", a.deps.Session.CachedUser().DisplayName()))
		}
		a.showLogin(a.locale.T("status.registered"))
		a.loginInputs[fieldEmail].SetValue(email)
		a.focusAuth(fieldPassword)
		return a, nil
	}

	if a.login.Finish(msg.err) != views.RouteTodos {
		a.status = ""
		a.lastError = a.login.Err().Error()
		a.loginInputs[fieldPassword].SetValue("")
		return a, nil
	}
	// 存储不可用时登录成功但会话未建立 / An unavailable store leaves no session
	if !a.deps.Session.IsAuthenticated() {
		a.status = ""
		return a, nil
	}
	a.loginInputs[fieldPassword].SetValue("")
	return a.enterMain(a.locale.T("status.signed_in", a.deps.Session.CachedUser().DisplayName()))
}

func (a *App) showLogin(status string) {
	a.screen = screenLogin
	a.status = status
	a.lastError = ""
	for i := range a.loginInputs {
		a.loginInputs[i].SetValue("")
	}
	a.focusAuth(fieldEmail)
}

func (a *App) showRegister() {
	a.screen = screenRegister
	a.status = ""
	a.lastError = ""
	a.focusAuth(fieldEmail)
}

// --- 主界面 / Main screen ---

func (a App) enterMain(status string) (tea.Model, tea.Cmd) {
	a.screen = screenMain
	a.activePanel = PanelTodos
	a.status = status
	a.lastError = ""
	a.newViews()
	a.deps.Logger.Info("session active", zap.String("user", a.deps.Session.CachedUser().Email))
	return a, tea.Batch(a.startLoad(), assistantStatusCmd(a.deps.Assistant))
}

// leaveMain 卸载视图并回到登录页 / leaveMain unmounts the views and returns to login
func (a *App) leaveMain(status string) {
	a.list.Unmount()
	a.deps.Panel.Close()
	a.closeForm()
	a.confirmID = ""
	a.chatInput.Reset()
	a.chatInput.Blur()
	a.refreshChat()
	a.showLogin(status)
}

// expired 处理 401：会话已被中间件清除 / expired handles a 401; the middleware already cleared the session
func (a *App) expired(err error) bool {
	if !apiclient.IsUnauthorized(err) || a.screen != screenMain {
		return false
	}
	a.appendLog("✗ " + err.Error())
	a.leaveMain(a.locale.T("status.expired"))
	return true
}

func (a App) updateMain(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// 删除确认 / Delete confirmation
	if a.confirmID != "" {
		id := a.confirmID
		a.confirmID = ""
		if key.Matches(msg, a.keys.Confirm) {
			if todo, ok := a.list.Find(id); ok {
				return a, deleteCmd(a.deps.Todos, a.list, todo)
			}
		}
		return a, nil
	}

	if key.Matches(msg, a.keys.Logout) {
		a.deps.Session.Logout()
		a.leaveMain(a.locale.T("status.signed_out"))
		return a, nil
	}

	if a.formOpen {
		return a.updateForm(msg)
	}

	if key.Matches(msg, a.keys.SwitchPanel) {
		a.switchPanel(PanelID((int(a.activePanel) + 1) % panelCount))
		return a, nil
	}

	switch a.activePanel {
	case PanelTodos:
		return a.updateTodos(msg)
	case PanelAssistant:
		return a.updateAssistant(msg)
	case PanelLogs:
		var cmd tea.Cmd
		a.logsView, cmd = a.logsView.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) switchPanel(p PanelID) {
	a.activePanel = p
	a.lastError = ""
	if p == PanelAssistant {
		a.chatInput.Focus()
	} else {
		a.chatInput.Blur()
	}
	if p == PanelLogs {
		a.refreshLogs()
	}
}

func (a App) updateTodos(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.NewTodo):
		// 列表加载成功前不允许新建 / No create until the list has loaded
		if !a.list.Ready() {
			a.lastError = a.locale.T("todo.not_ready")
			return a, nil
		}
		a.formOpen = true
		a.formFocus = 0
		a.titleInput.Focus()
		a.descInput.Blur()
		a.lastError = ""
		return a, nil
	case key.Matches(msg, a.keys.Up):
		if a.cursor > 0 {
			a.cursor--
		}
		return a, nil
	case key.Matches(msg, a.keys.Down):
		if a.cursor < a.list.Len()-1 {
			a.cursor++
		}
		return a, nil
	case key.Matches(msg, a.keys.Reload):
		return a, a.startLoad()
	case key.Matches(msg, a.keys.Toggle):
		if todo, ok := a.selected(); ok {
			a.lastError = ""
			return a, toggleCmd(a.deps.Todos, a.list, todo)
		}
		return a, nil
	case key.Matches(msg, a.keys.Delete):
		if todo, ok := a.selected(); ok {
			a.lastError = ""
			a.confirmID = todo.ID
		}
		return a, nil
	}
	return a, nil
}

func (a App) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Cancel):
		a.closeForm()
		return a, nil
	case key.Matches(msg, a.keys.SwitchPanel), key.Matches(msg, a.keys.PrevField):
		a.formFocus = 1 - a.formFocus
		if a.formFocus == 0 {
			a.titleInput.Focus()
			a.descInput.Blur()
		} else {
			a.descInput.Focus()
			a.titleInput.Blur()
		}
		return a, nil
	case key.Matches(msg, a.keys.Submit):
		return a, a.submitForm()
	}

	if a.form.Disabled() {
		return a, nil
	}
	var cmd tea.Cmd
	if a.formFocus == 0 {
		a.titleInput, cmd = a.titleInput.Update(msg)
	} else {
		a.descInput, cmd = a.descInput.Update(msg)
	}
	return a, cmd
}

func (a *App) submitForm() tea.Cmd {
	a.form.Title = a.titleInput.Value()
	a.form.Description = a.descInput.Value()
	in, err := a.form.Begin()
	if err != nil {
		if !errors.Is(err, views.ErrSubmitting) {
			a.lastError = err.Error()
		}
		return nil
	}
	a.lastError = ""
	return createCmd(a.deps.Todos, a.form, in)
}

func (a *App) closeForm() {
	a.formOpen = false
	a.titleInput.SetValue("")
	a.descInput.SetValue("")
	a.titleInput.Blur()
	a.descInput.Blur()
	a.form.ClearErr()
}

func (a App) updateAssistant(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Submit):
		return a, a.sendChat(a.chatInput.Value())
	case key.Matches(msg, a.keys.Cancel):
		a.deps.Panel.Close()
		a.chatInput.Reset()
		a.lastError = ""
		a.refreshChat()
		return a, nil
	case key.Matches(msg, a.keys.Suggestion):
		s := a.deps.Panel.Suggestions()
		i := int(msg.String()[len(msg.String())-1] - '1')
		if i >= 0 && i < len(s) {
			return a, a.sendChat(s[i])
		}
		return a, nil
	}

	var cmd tea.Cmd
	a.chatInput, cmd = a.chatInput.Update(msg)
	return a, cmd
}

func (a *App) sendChat(text string) tea.Cmd {
	ticket, err := a.deps.Panel.Begin(text)
	if err != nil {
		if !errors.Is(err, assistant.ErrBusy) {
			a.lastError = err.Error()
		}
		return nil
	}
	a.lastError = ""
	a.chatInput.Reset()
	a.refreshChat()
	return chatCmd(a.deps.Assistant, ticket)
}

// --- 内部方法 / Internal methods ---

func (a *App) startLoad() tea.Cmd {
	return loadCmd(a.deps.Todos, a.list, a.list.StartLoad())
}

func (a *App) selected() (todos.Todo, bool) {
	return a.list.At(a.cursor)
}

func (a *App) clampCursor() {
	if n := a.list.Len(); a.cursor >= n {
		a.cursor = n - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
}

func (a *App) setStatus(s string) {
	a.status = s
	a.lastError = ""
	a.appendLog(s)
}

func (a *App) relayout() {
	width, height := a.panelSize()
	a.chatView = viewport.New(width, height-a.chatInputHeight())
	a.logsView = viewport.New(width, height)
	a.chatInput.SetWidth(width - 2)
	a.refreshChat()
	a.refreshLogs()
	for i := range a.loginInputs {
		a.loginInputs[i].Width = min(width-4, 48)
	}
	for i := range a.registerInputs {
		a.registerInputs[i].Width = min(width-4, 48)
	}
	a.titleInput.Width = width - 16
	a.descInput.Width = width - 16
}

// panelSize 主面板可用区域（去掉标签、提示、状态栏）
// panelSize is the area left for the active panel
func (a *App) panelSize() (int, int) {
	w := a.width
	h := a.height - 3
	if w < 20 {
		w = 20
	}
	if h < 5 {
		h = 5
	}
	return w, h
}

func (a *App) chatInputHeight() int { return 4 }

func (a *App) appendLog(text string) {
	line := time.Now().Format("15:04:05") + "  " + text
	a.logLines = append(a.logLines, line)
	if len(a.logLines) > maxLogLines {
		a.logLines = a.logLines[len(a.logLines)-maxLogLines:]
	}
	a.refreshLogs()
}

func (a *App) refreshLogs() {
	var b strings.Builder
	if events := a.deps.Session.Events(10); len(events) > 0 {
		b.WriteString(a.theme.TitleStyle.Render(a.locale.T("repl.events")))
		b.WriteString("\n")
		for _, e := range events {
			b.WriteString("  " + formatEvent(e.Kind, e.Email, e.At.Local().Format("01-02 15:04")) + "\n")
		}
		b.WriteString("\n")
	}
	b.WriteString(strings.Join(a.logLines, "\n"))
	a.logsView.SetContent(b.String())
	a.logsView.GotoBottom()
}

func (a *App) refreshChat() {
	width := a.chatView.Width
	var parts []string
	for _, m := range a.deps.Panel.Messages() {
		parts = append(parts, RenderMessage(m, width, a.theme, a.locale))
	}
	if a.deps.Panel.Composing() {
		parts = append(parts, a.theme.MutedStyle.Render(a.locale.T("status.composing")))
	}
	a.chatView.SetContent(strings.Join(parts, "\n\n"))
	a.chatView.GotoBottom()
}

// Run 启动 Bubble Tea TUI
// Run starts the Bubble Tea TUI application
func Run(deps Deps) error {
	app := NewApp(deps)
	p := tea.NewProgram(app, tea.WithAltScreen())

	// 回调可能在 Update 内触发，异步投递避免死锁
	// The callback may fire inside Update, so delivery is asynchronous
	cancel := deps.Session.Subscribe(func(token string) {
		go p.Send(sessionChangedMsg{token: token})
	})
	defer cancel()

	_, err := p.Run()
	return err
}
