package apiclient

import (
	"encoding/json"
	"errors"
	"strings"
)

// Kind 错误分类
// Kind classifies a failed call so views can pick the right recovery
type Kind string

const (
	KindValidation   Kind = "validation"
	KindServer       Kind = "server"
	KindNetwork      Kind = "network"
	KindUnauthorized Kind = "unauthorized"
)

// NetworkMessage is shown whenever the server could not be reached.
const NetworkMessage = "Network error: Unable to reach the server. Please check your connection."

// Error 统一的调用失败形态，Message 可直接展示给用户
// Error is the single failure shape every gateway returns; Message is user-facing
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind) + " error"
}

func (e *Error) Unwrap() error { return e.Err }

// Validation builds a client-side validation failure.
func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

func IsUnauthorized(err error) bool {
	return KindOf(err) == KindUnauthorized
}

// Fallback 用给定文案填补没有 detail 的服务端错误
// Fallback fills in msg when the server gave no detail. Network and
// validation errors keep their own message.
func Fallback(err error, msg string) error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return &Error{Kind: KindServer, Message: msg, Err: err}
	}
	switch apiErr.Kind {
	case KindNetwork, KindValidation:
		return apiErr
	}
	if strings.TrimSpace(apiErr.Message) != "" {
		return apiErr
	}
	out := *apiErr
	out.Message = msg
	return &out
}

// Detail 从 {"detail": ...} 错误体中提取可读消息
// Detail extracts a readable message from a {"detail": ...} error body.
// A string detail is returned verbatim; a list of validation items is joined
// from their msg fields. Anything else yields "".
func Detail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil {
		return strings.TrimSpace(text)
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err == nil {
		parts := make([]string, 0, len(items))
		for _, item := range items {
			if msg := strings.TrimSpace(item.Msg); msg != "" {
				parts = append(parts, msg)
			}
		}
		return strings.Join(parts, "; ")
	}

	var single struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &single); err == nil {
		return strings.TrimSpace(single.Msg)
	}
	return ""
}
