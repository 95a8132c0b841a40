package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"todo/internal/apiclient"
)

// ErrBusy is returned while a previous message is still outstanding.
var ErrBusy = errors.New("assistant is still replying")

const msgEmpty = "Please enter a message"

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message 面板中的一条聊天记录，仅存在于内存
// Message is one transcript entry; it lives in memory only
type Message struct {
	ID           string
	Text         string
	Sender       Sender
	At           time.Time
	ActionResult *ActionResult
	Failed       bool
}

// Suggestions are the quick actions offered on an empty transcript.
var Suggestions = []string{
	"What are my pending tasks?",
	"Help me prioritize my todos",
	"Add a new todo: Call the dentist",
	"Show me completed tasks",
}

type Chatter interface {
	Status(ctx context.Context) (Status, error)
	Chat(ctx context.Context, text string) (Reply, error)
}

// Ticket identifies an outstanding send. A ticket issued before Close is
// stale and its completion is dropped.
type Ticket struct {
	generation int
	Text       string
}

// Panel 助手面板：一次只允许一个进行中的请求
// Panel is the ephemeral chat transcript. Only one request may be outstanding.
type Panel struct {
	chat      Chatter
	counter   Counter
	maxTokens int
	logger    *zap.Logger
	now       func() time.Time

	mu         sync.Mutex
	messages   []Message
	composing  bool
	warning    string
	generation int
}

type Option func(*Panel)

func WithLogger(logger *zap.Logger) Option {
	return func(p *Panel) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithTokenBudget rejects messages longer than max tokens as counted by c.
func WithTokenBudget(c Counter, max int) Option {
	return func(p *Panel) {
		p.counter = c
		p.maxTokens = max
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Panel) { p.now = now }
}

func NewPanel(chat Chatter, opts ...Option) *Panel {
	p := &Panel{
		chat:   chat,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Mount 独立查询助手状态；失败只记录日志，不阻塞发送
// Mount checks assistant availability. Failures are logged and never block sending.
func (p *Panel) Mount(ctx context.Context) {
	st, err := p.chat.Status(ctx)
	p.ApplyStatus(st, err)
}

// ApplyStatus records the outcome of a status check.
func (p *Panel) ApplyStatus(st Status, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.logger.Warn("assistant status check failed", zap.Error(err))
		return
	}
	if !st.Configured {
		p.warning = strings.TrimSpace(st.Message)
		if p.warning == "" {
			p.warning = "Assistant is not configured"
		}
		return
	}
	p.warning = ""
}

// Begin 校验并立即追加用户消息，进入 composing 状态
// Begin validates text, appends the user message immediately and marks the
// panel as composing.
func (p *Panel) Begin(text string) (Ticket, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Ticket{}, apiclient.Validation(msgEmpty)
	}
	if p.counter != nil && p.maxTokens > 0 {
		if n := p.counter.CountText(text); n > p.maxTokens {
			return Ticket{}, apiclient.Validation(fmt.Sprintf("Message is too long (%d tokens, limit %d)", n, p.maxTokens))
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.composing {
		return Ticket{}, ErrBusy
	}
	p.messages = append(p.messages, Message{
		ID:     uuid.NewString(),
		Text:   text,
		Sender: SenderUser,
		At:     p.now(),
	})
	p.composing = true
	return Ticket{generation: p.generation, Text: text}, nil
}

// Complete 结束请求：成功追加回复，失败追加携带错误文本的助手消息
// Complete ends the outstanding request. A failure becomes an assistant
// message carrying the error text; the user message is never rolled back.
// It reports false when the ticket predates a Close.
func (p *Panel) Complete(t Ticket, reply Reply, err error) (Message, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t.generation != p.generation {
		return Message{}, false
	}
	p.composing = false

	msg := Message{
		ID:     uuid.NewString(),
		Sender: SenderAssistant,
		At:     p.now(),
	}
	if err != nil {
		p.logger.Info("assistant chat failed", zap.String("kind", string(apiclient.KindOf(err))))
		msg.Text = err.Error()
		msg.Failed = true
	} else {
		msg.Text = reply.Response
		msg.ActionResult = reply.ActionResult
	}
	p.messages = append(p.messages, msg)
	return msg, true
}

// Send runs Begin, the chat call and Complete. Only validation and ErrBusy
// are returned; call failures end up in the transcript.
func (p *Panel) Send(ctx context.Context, text string) (Message, error) {
	ticket, err := p.Begin(text)
	if err != nil {
		return Message{}, err
	}
	reply, err := p.chat.Chat(ctx, ticket.Text)
	msg, _ := p.Complete(ticket, reply, err)
	return msg, nil
}

// Close discards the transcript. Completions still in flight are dropped.
func (p *Panel) Close() {
	p.mu.Lock()
	p.generation++
	p.messages = nil
	p.composing = false
	p.mu.Unlock()
}

func (p *Panel) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.messages...)
}

func (p *Panel) Composing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.composing
}

// Warning is the non-blocking configuration notice, "" when configured.
func (p *Panel) Warning() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.warning
}

func (p *Panel) Suggestions() []string {
	return append([]string(nil), Suggestions...)
}
