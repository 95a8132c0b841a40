package session

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"todo/internal/apiclient"
	"todo/internal/storage"
)

const (
	TokenKey = "auth_token"
	UserKey  = "auth_user"
)

// Context 注入到各组件的会话上下文
// Context is the session handle injected into every component that needs the token
type Context interface {
	Token() string
	SetToken(token string) error
	ClearToken() error
	Subscribe(fn func(token string)) (unsubscribe func())
}

var _ Context = (*Store)(nil)

type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// DisplayName prefers the first/last name and falls back to the email.
func (u User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	return u.Email
}

// AuthResult is returned by Login and Register.
type AuthResult struct {
	Token string
	User  User
}

// Store 会话存储：持久化 bearer token 并提供登录、注册、登出
// Store persists the bearer token through a storage.KV and runs the auth flows.
// It is safe for concurrent use.
type Store struct {
	kv     storage.KV
	events storage.EventLog
	api    *apiclient.Client
	logger *zap.Logger

	mu      sync.Mutex
	subs    map[int]func(string)
	nextSub int
}

type Option func(*Store)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore builds a store over kv. api is used for the auth endpoints and
// should not carry the 401 handler. A nil kv behaves as unavailable storage.
func NewStore(kv storage.KV, api *apiclient.Client, opts ...Option) *Store {
	if kv == nil {
		kv = storage.UnavailableStore{}
	}
	s := &Store{
		kv:     kv,
		api:    api,
		logger: zap.NewNop(),
		subs:   map[int]func(string){},
	}
	if events, ok := kv.(storage.EventLog); ok {
		s.events = events
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Token 返回当前持久化的 token；不存在或存储不可用时返回 ""
// Token returns the persisted token, or "" when absent or storage is unavailable
func (s *Store) Token() string {
	token, err := s.kv.Get(TokenKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) && !errors.Is(err, storage.ErrUnavailable) {
			s.logger.Warn("read session token", zap.Error(err))
		}
		return ""
	}
	return strings.TrimSpace(token)
}

func (s *Store) CurrentToken() string {
	return s.Token()
}

func (s *Store) IsAuthenticated() bool {
	return s.Token() != ""
}

// SetToken persists token and notifies subscribers. Unavailable storage is
// not an error; the session simply stays unauthenticated.
func (s *Store) SetToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return s.ClearToken()
	}
	s.mu.Lock()
	err := s.kv.Set(TokenKey, token)
	s.mu.Unlock()
	if err != nil && !errors.Is(err, storage.ErrUnavailable) {
		return err
	}
	if err != nil {
		s.logger.Debug("session storage unavailable; token not persisted")
	}
	s.notify(s.Token())
	return nil
}

// ClearToken removes the token and the cached user.
func (s *Store) ClearToken() error {
	s.mu.Lock()
	err := s.kv.Remove(TokenKey)
	if userErr := s.kv.Remove(UserKey); err == nil {
		err = userErr
	}
	s.mu.Unlock()
	s.notify("")
	if err != nil && !errors.Is(err, storage.ErrUnavailable) {
		return err
	}
	return nil
}

// Subscribe 注册 token 变更回调，返回取消函数
// Subscribe registers fn for every token change and returns its cancel func
func (s *Store) Subscribe(fn func(token string)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify(token string) {
	s.mu.Lock()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	fns := make([]func(string), 0, len(ids))
	sort.Ints(ids)
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(token)
	}
}

// Logout 无条件清除会话；幂等，从不向上返回错误
// Logout clears the session unconditionally. It is idempotent and never fails.
func (s *Store) Logout() {
	email := s.CachedUser().Email
	if err := s.ClearToken(); err != nil {
		s.logger.Warn("clear session", zap.Error(err))
	}
	s.record(storage.EventLogout, email)
}

// Expire is Logout triggered by an authorization failure.
func (s *Store) Expire() {
	email := s.CachedUser().Email
	if err := s.ClearToken(); err != nil {
		s.logger.Warn("clear expired session", zap.Error(err))
	}
	s.logger.Info("session expired by server")
	s.record(storage.EventUnauthorized, email)
}

// CachedUser returns the user from the last successful login, if any.
func (s *Store) CachedUser() User {
	raw, err := s.kv.Get(UserKey)
	if err != nil {
		return User{}
	}
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return User{}
	}
	return u
}

func (s *Store) cacheUser(u User) {
	data, err := json.Marshal(u)
	if err != nil {
		return
	}
	if err := s.kv.Set(UserKey, string(data)); err != nil && !errors.Is(err, storage.ErrUnavailable) {
		s.logger.Warn("cache user", zap.Error(err))
	}
}

// Events returns recent auth events when the backend keeps them.
func (s *Store) Events(limit int) []storage.AuthEvent {
	if s.events == nil {
		return nil
	}
	events, err := s.events.ListEvents(limit)
	if err != nil {
		s.logger.Warn("list auth events", zap.Error(err))
		return nil
	}
	return events
}

func (s *Store) record(kind, email string) {
	if s.events == nil {
		return
	}
	if err := s.events.LogEvent(storage.AuthEvent{Kind: kind, Email: email, At: time.Now()}); err != nil {
		s.logger.Warn("record auth event", zap.String("kind", kind), zap.Error(err))
	}
}
