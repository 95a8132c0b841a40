package storage

import (
	"errors"
	"time"
)

var (
	// ErrNotFound 键不存在
	// ErrNotFound is returned by Get when the key is absent
	ErrNotFound = errors.New("storage: key not found")
	// ErrUnavailable 当前执行环境没有可用的持久化存储
	// ErrUnavailable means the execution environment has no usable durable store
	ErrUnavailable = errors.New("storage: unavailable")
)

// KV 持久化键值存储端口，会话 token 通过它读写
// KV is the durable key-value port the session token is persisted through
type KV interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
	Close() error
}

// EventLog 由支持审计的后端实现（SQLite）
// EventLog is implemented by backends that keep an auth event history (SQLite)
type EventLog interface {
	LogEvent(event AuthEvent) error
	ListEvents(limit int) ([]AuthEvent, error)
}

// AuthEvent 认证事件条目
// AuthEvent records a single session lifecycle transition
type AuthEvent struct {
	Kind  string
	Email string
	At    time.Time
}

const (
	EventLogin        = "login"
	EventRegister     = "register"
	EventLogout       = "logout"
	EventUnauthorized = "unauthorized"
)
