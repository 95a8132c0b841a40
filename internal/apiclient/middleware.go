package apiclient

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Doer sends a single HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DoerFunc adapts a function to Doer.
type DoerFunc func(req *http.Request) (*http.Response, error)

func (f DoerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

// Middleware 包装 Doer 的装饰器
// Middleware decorates a Doer
type Middleware func(next Doer) Doer

// Chain 按列表顺序组装装饰器，第一个位于最外层
// Chain wraps base so that the first middleware listed runs outermost
func Chain(base Doer, mws ...Middleware) Doer {
	d := base
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			d = mws[i](d)
		}
	}
	return d
}

// TokenSource yields the current bearer token, "" when absent.
type TokenSource interface {
	Token() string
}

// Invalidator tears the session down after an authorization failure.
type Invalidator interface {
	Logout()
}

// InvalidatorFunc adapts a function to Invalidator.
type InvalidatorFunc func()

func (f InvalidatorFunc) Logout() { f() }

// AttachAuth 在发送时读取 token，非空则附加 Bearer 头
// AttachAuth reads the token at send time and sets the bearer header when present
func AttachAuth(tokens TokenSource) Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			token := strings.TrimSpace(tokens.Token())
			if token == "" {
				return next.Do(req)
			}
			out := req.Clone(req.Context())
			out.Header.Set("Authorization", "Bearer "+token)
			return next.Do(out)
		})
	}
}

// HandleUnauthorized 收到 401 时先清除会话，再把响应原样交还调用方
// HandleUnauthorized clears the session on a 401 and then hands the response back unchanged
func HandleUnauthorized(session Invalidator) Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			resp, err := next.Do(req)
			if err == nil && resp != nil && resp.StatusCode == http.StatusUnauthorized {
				session.Logout()
			}
			return resp, err
		})
	}
}

// Logging records method, path, status and latency. Headers are never logged.
func Logging(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.Do(req)
			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.Duration("latency", time.Since(start)),
			}
			switch {
			case err != nil:
				logger.Warn("request failed", append(fields, zap.Error(err))...)
			case resp.StatusCode >= 400:
				logger.Warn("request rejected", append(fields, zap.Int("status", resp.StatusCode))...)
			default:
				logger.Debug("request", append(fields, zap.Int("status", resp.StatusCode))...)
			}
			return resp, err
		})
	}
}
