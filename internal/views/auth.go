package views

import (
	"context"

	"todo/internal/session"
)

type Route string

const (
	RouteLogin     Route = "login"
	RouteRegister  Route = "register"
	RouteTodos     Route = "todos"
	RouteAssistant Route = "assistant"
)

// Protected reports whether the route needs an authenticated session.
func (r Route) Protected() bool {
	return r == RouteTodos || r == RouteAssistant
}

// Resolve 路由守卫：未登录访问受保护页面跳转登录，已登录访问登录/注册跳转列表
// Resolve is the route guard. It must run after the session store is
// readable; callers defer it until then.
func Resolve(route Route, authenticated bool) Route {
	switch {
	case route.Protected() && !authenticated:
		return RouteLogin
	case (route == RouteLogin || route == RouteRegister) && authenticated:
		return RouteTodos
	}
	return route
}

type Authenticator interface {
	Login(ctx context.Context, email, password string) (session.AuthResult, error)
	Register(ctx context.Context, p session.Profile) (session.AuthResult, error)
}

// LoginForm holds the login fields and the error banner.
type LoginForm struct {
	auth Authenticator

	Email    string
	Password string

	submitting bool
	err        error
}

func NewLoginForm(auth Authenticator) *LoginForm {
	return &LoginForm{auth: auth}
}

// Submit logs in and returns the route to show next: RouteTodos on success,
// RouteLogin with the banner set on failure.
func (f *LoginForm) Submit(ctx context.Context) (Route, error) {
	email, password, err := f.Begin()
	if err != nil {
		return RouteLogin, err
	}
	_, err = f.auth.Login(ctx, email, password)
	return f.Finish(err), err
}

// Begin marks the form busy for callers that run the request elsewhere.
func (f *LoginForm) Begin() (email, password string, err error) {
	if f.submitting {
		return "", "", ErrSubmitting
	}
	f.submitting = true
	f.err = nil
	return f.Email, f.Password, nil
}

// Finish records the outcome of a login attempt and returns the next route.
func (f *LoginForm) Finish(err error) Route {
	f.submitting = false
	if err != nil {
		f.err = err
		return RouteLogin
	}
	f.err = nil
	f.Password = ""
	return RouteTodos
}

func (f *LoginForm) Submitting() bool { return f.submitting }
func (f *LoginForm) Err() error       { return f.err }

// RegisterForm holds the sign-up fields. Finish reports RouteLogin on
// success; callers pass it through Resolve, which moves on to RouteTodos
// when the response carried a token.
type RegisterForm struct {
	auth Authenticator

	Profile session.Profile

	submitting bool
	err        error
}

func NewRegisterForm(auth Authenticator) *RegisterForm {
	return &RegisterForm{auth: auth}
}

// Begin validates locally; a failure never reaches the network.
func (f *RegisterForm) Begin() (session.Profile, error) {
	if f.submitting {
		return session.Profile{}, ErrSubmitting
	}
	if err := f.Profile.Validate(); err != nil {
		f.err = err
		return session.Profile{}, err
	}
	f.submitting = true
	f.err = nil
	return f.Profile, nil
}

func (f *RegisterForm) Finish(err error) Route {
	f.submitting = false
	if err != nil {
		f.err = err
		return RouteRegister
	}
	f.err = nil
	f.Profile = session.Profile{}
	return RouteLogin
}

func (f *RegisterForm) Submit(ctx context.Context) (Route, error) {
	p, err := f.Begin()
	if err != nil {
		return RouteRegister, err
	}
	_, err = f.auth.Register(ctx, p)
	return f.Finish(err), err
}

func (f *RegisterForm) Submitting() bool { return f.submitting }
func (f *RegisterForm) Err() error       { return f.err }
