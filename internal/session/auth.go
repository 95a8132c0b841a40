package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"todo/internal/apiclient"
	"todo/internal/storage"
)

const MinPasswordLength = 8

const (
	msgPasswordMismatch = "Passwords do not match"
	msgPasswordTooShort = "Password must be at least 8 characters long"
	msgEmailRequired    = "Email is required"
	msgCredentials      = "Email and password are required"
	msgLoginFailed      = "Login failed"
	msgRegisterFailed   = "Registration failed"
)

// ErrNoSession is returned by Claims when no token is persisted.
var ErrNoSession = errors.New("no active session")

// Profile 注册表单字段
// Profile holds the registration fields
type Profile struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
}

// Validate runs the client-side checks that must pass before any request.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.Email) == "" {
		return apiclient.Validation(msgEmailRequired)
	}
	if p.Password != p.PasswordConfirm {
		return apiclient.Validation(msgPasswordMismatch)
	}
	if len([]rune(p.Password)) < MinPasswordLength {
		return apiclient.Validation(msgPasswordTooShort)
	}
	return nil
}

type authResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}

// Register 校验并提交注册信息，成功后持久化返回的 token
// Register validates the profile, submits it and persists the returned token
func (s *Store) Register(ctx context.Context, p Profile) (AuthResult, error) {
	p.Email = strings.TrimSpace(p.Email)
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	if err := p.Validate(); err != nil {
		return AuthResult{}, err
	}

	result, err := s.authenticate(ctx, "/auth/register", p)
	if err != nil {
		s.logger.Info("registration failed", zap.String("kind", string(apiclient.KindOf(err))))
		return AuthResult{}, authFailure(err, msgRegisterFailed)
	}
	s.record(storage.EventRegister, result.User.Email)
	return result, nil
}

// Login 使用 JSON 请求体登录
// Login authenticates with a JSON body and persists the returned token
func (s *Store) Login(ctx context.Context, email, password string) (AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return AuthResult{}, apiclient.Validation(msgCredentials)
	}

	result, err := s.authenticate(ctx, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		s.logger.Info("login failed", zap.String("kind", string(apiclient.KindOf(err))))
		return AuthResult{}, authFailure(err, msgLoginFailed)
	}
	s.record(storage.EventLogin, result.User.Email)
	return result, nil
}

func (s *Store) authenticate(ctx context.Context, path string, body any) (AuthResult, error) {
	if s.api == nil {
		return AuthResult{}, fmt.Errorf("session store has no api client")
	}
	var raw json.RawMessage
	if err := s.api.Do(ctx, http.MethodPost, path, body, &raw); err != nil {
		return AuthResult{}, err
	}

	var resp authResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return AuthResult{}, fmt.Errorf("decode auth response: %w", err)
	}
	// Some deployments answer register with the bare user and no token.
	if resp.User.Email == "" {
		if err := json.Unmarshal(raw, &resp.User); err != nil {
			s.logger.Debug("auth response carries no user", zap.String("path", path), zap.Error(err))
		}
	}

	if resp.AccessToken != "" {
		if err := s.SetToken(resp.AccessToken); err != nil {
			return AuthResult{}, fmt.Errorf("persist token: %w", err)
		}
		s.cacheUser(resp.User)
	}
	return AuthResult{Token: resp.AccessToken, User: resp.User}, nil
}

// authFailure 按服务端 detail、状态码、网络错误、兜底文案的顺序选择消息
// authFailure picks server detail, then status, then the connectivity message,
// then fallback
func authFailure(err error, fallback string) error {
	var apiErr *apiclient.Error
	if !errors.As(err, &apiErr) {
		return &apiclient.Error{Kind: apiclient.KindServer, Message: fallback, Err: err}
	}
	if apiErr.Kind == apiclient.KindNetwork || apiErr.Message != "" {
		return apiErr
	}
	out := *apiErr
	if apiErr.Status != 0 {
		out.Message = fmt.Sprintf("Server error: %d", apiErr.Status)
	} else {
		out.Message = fallback
	}
	return &out
}

// Claims 是 token 载荷中展示给用户的部分
// Claims is the part of the token payload shown to the user
type Claims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token carries an expiry that has passed.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// Claims decodes the current token without verifying its signature. The
// result is informational; authentication state depends only on presence.
func (s *Store) Claims() (Claims, error) {
	token := s.Token()
	if token == "" {
		return Claims{}, ErrNoSession
	}
	var registered jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &registered); err != nil {
		return Claims{}, fmt.Errorf("decode token: %w", err)
	}
	out := Claims{Subject: registered.Subject}
	if registered.IssuedAt != nil {
		out.IssuedAt = registered.IssuedAt.Time
	}
	if registered.ExpiresAt != nil {
		out.ExpiresAt = registered.ExpiresAt.Time
	}
	return out, nil
}
