package views

import (
	"context"
	"errors"
	"strings"

	"todo/internal/apiclient"
	"todo/internal/todos"
)

const MsgTitleRequired = "Please enter a title for the todo"

// ErrSubmitting is returned when a form is submitted twice.
var ErrSubmitting = errors.New("already submitting")

type FormState int

const (
	FormIdle FormState = iota
	FormSubmitting
)

type Creator interface {
	Create(ctx context.Context, in todos.CreateInput) (todos.Todo, error)
}

// Form 新建待办表单：idle → submitting → idle
// Form is the creation form. An empty title is rejected before any request.
type Form struct {
	gw Creator

	Title       string
	Description string
	OnCreated   func(todos.Todo)

	state FormState
	err   error
}

func NewForm(gw Creator, onCreated func(todos.Todo)) *Form {
	return &Form{gw: gw, OnCreated: onCreated}
}

// Begin validates the fields and switches to Submitting. It returns the
// payload to send.
func (f *Form) Begin() (todos.CreateInput, error) {
	if f.state == FormSubmitting {
		return todos.CreateInput{}, ErrSubmitting
	}
	title := strings.TrimSpace(f.Title)
	if title == "" {
		f.err = apiclient.Validation(MsgTitleRequired)
		return todos.CreateInput{}, f.err
	}
	f.err = nil
	f.state = FormSubmitting
	return todos.CreateInput{Title: title, Description: strings.TrimSpace(f.Description)}, nil
}

// Finish returns to Idle. On success the fields are cleared and OnCreated
// fires; on failure the fields are kept and the error is surfaced.
func (f *Form) Finish(todo todos.Todo, err error) {
	f.state = FormIdle
	if err != nil {
		f.err = err
		return
	}
	f.err = nil
	f.Title = ""
	f.Description = ""
	if f.OnCreated != nil {
		f.OnCreated(todo)
	}
}

func (f *Form) Submit(ctx context.Context) error {
	in, err := f.Begin()
	if err != nil {
		return err
	}
	todo, err := f.gw.Create(ctx, in)
	f.Finish(todo, err)
	return err
}

func (f *Form) State() FormState { return f.state }

// Disabled reports whether input is locked while a request is outstanding.
func (f *Form) Disabled() bool { return f.state == FormSubmitting }

func (f *Form) Err() error { return f.err }

func (f *Form) ClearErr() { f.err = nil }
