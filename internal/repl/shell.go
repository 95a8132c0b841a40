package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"todo/internal/apiclient"
	"todo/internal/assistant"
	"todo/internal/i18n"
	"todo/internal/session"
	"todo/internal/todos"
	"todo/internal/views"

	"go.uber.org/zap"
)

// ANSI colors for prompt and results
const (
	ansiReset  = "\x1b[0m"
	ansiDim    = "\x1b[90m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
)

// Deps 命令行 shell 需要的服务
// Deps are the services the shell drives
type Deps struct {
	Session    *session.Store
	Todos      *todos.Gateway
	Assistant  *assistant.Gateway
	Panel      *assistant.Panel
	Logger     *zap.Logger
	Locale     *i18n.I18n
	APIBase    string
	ProjectDir string
	Version    string
}

// Shell 行模式界面：斜杠命令 + 可选的对话模式
// Shell is the line-oriented interface: slash commands plus an optional chat mode
type Shell struct {
	deps Deps
	in   LineInput
	out  io.Writer

	list        *views.List
	loaded      bool
	chatMode    bool
	chatMounted bool // assistant status checked this session
	color       bool
}

func New(deps Deps, in LineInput, out io.Writer) *Shell {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Locale == nil {
		deps.Locale = i18n.New("")
	}
	s := &Shell{
		deps:  deps,
		in:    in,
		out:   out,
		color: useColor(),
	}
	s.resetViews()
	return s
}

// Run 读取并执行命令直到 /exit 或 EOF
// Run reads and executes commands until /exit or EOF
func (s *Shell) Run(ctx context.Context) error {
	s.println(s.t("repl.welcome", s.deps.Version))
	for {
		line, err := s.in.ReadLine(s.prompt())
		if err != nil {
			switch {
			case errors.Is(err, ErrInterrupt):
				continue
			case errors.Is(err, io.EOF):
				s.println(s.t("repl.bye"))
				return nil
			default:
				return fmt.Errorf("read input: %w", err)
			}
		}
		if s.Exec(ctx, line) {
			s.println(s.t("repl.bye"))
			return nil
		}
	}
}

// Exec 执行一行输入，返回 true 表示退出
// Exec runs one input line and reports whether the shell should exit
func (s *Shell) Exec(ctx context.Context, line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return false
	}
	if !strings.HasPrefix(input, "/") {
		if s.chatMode {
			s.chat(ctx, input)
		} else {
			s.warn(s.t("repl.unknown", input))
		}
		return false
	}

	name, rest, _ := strings.Cut(input, " ")
	rest = strings.TrimSpace(rest)
	cmd, ok := commands[name]
	if !ok {
		s.warn(s.t("repl.unknown", name))
		return false
	}
	if cmd.exit {
		return true
	}
	if cmd.protected && !s.requireSession() {
		return false
	}
	if err := cmd.run(s, ctx, rest); err != nil {
		s.report(err)
	}
	return false
}

func (s *Shell) prompt() string {
	label := "todo"
	if s.deps.Session.IsAuthenticated() {
		if u := s.deps.Session.CachedUser(); u.Email != "" {
			label = "todo(" + u.Email + ")"
		}
	}
	if s.chatMode {
		label += " chat"
	}
	if s.color {
		return ansiGreen + label + "> " + ansiReset
	}
	return label + "> "
}

// requireSession 路由守卫：未登录时拒绝受保护的命令
// requireSession is the route guard for protected commands
func (s *Shell) requireSession() bool {
	if views.Resolve(views.RouteTodos, s.deps.Session.IsAuthenticated()) == views.RouteTodos {
		return true
	}
	s.warn(s.t("repl.login_required"))
	return false
}

// report 打印错误；401 时会话已被中间件清除
// report prints err. On a 401 the middleware has already cleared the session.
func (s *Shell) report(err error) {
	if apiclient.IsUnauthorized(err) {
		s.deps.Logger.Info("session expired during command")
		s.endSession()
		s.warn(s.t("status.expired"))
		return
	}
	s.fail(err.Error())
}

// endSession 丢弃本会话的列表与对话
// endSession drops the list and transcript of the current session
func (s *Shell) endSession() {
	s.chatMode = false
	s.chatMounted = false
	s.deps.Panel.Close()
	s.resetViews()
}

func (s *Shell) resetViews() {
	if s.list != nil {
		s.list.Unmount()
	}
	s.list = views.NewList(s.deps.Todos)
	s.loaded = false
}

// confirm 读取 y/N 回答，默认否
// confirm reads a y/N answer; anything but yes declines
func (s *Shell) confirm(prompt string) bool {
	line, err := s.in.ReadLine(prompt + " [y/N]: ")
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func (s *Shell) t(key string, args ...any) string {
	return s.deps.Locale.T(key, args...)
}

func (s *Shell) println(text string) {
	fmt.Fprintln(s.out, text)
}

func (s *Shell) paint(color, text string) {
	if s.color {
		fmt.Fprintf(s.out, "%s%s%s\n", color, text, ansiReset)
		return
	}
	fmt.Fprintln(s.out, text)
}

func (s *Shell) ok(text string)   { s.paint(ansiGreen, text) }
func (s *Shell) warn(text string) { s.paint(ansiYellow, text) }
func (s *Shell) fail(text string) { s.paint(ansiRed, text) }
func (s *Shell) dim(text string)  { s.paint(ansiDim, text) }

func useColor() bool {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		return false
	}
	if strings.TrimSpace(os.Getenv("TODO_NO_COLOR")) != "" {
		return false
	}
	return strings.ToLower(strings.TrimSpace(os.Getenv("TERM"))) != "dumb"
}

// Run 使用 readline 启动交互式 shell
// Run starts the interactive shell on top of readline
func Run(ctx context.Context, deps Deps, historyPath string) error {
	in, err := NewLineInput(historyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "line editor unavailable, fallback to basic input: %v\n", err)
	}
	defer in.Close()
	return New(deps, in, os.Stdout).Run(ctx)
}
