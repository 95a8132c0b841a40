package views

import (
	"context"

	"todo/internal/todos"
)

const MsgConfirmDelete = "Are you sure you want to delete this todo?"

type ItemGateway interface {
	Toggle(ctx context.Context, id string) (todos.Todo, error)
	Delete(ctx context.Context, id string) error
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(prompt string) bool
}

type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// Item 单个待办视图；完成状态总是服务端确认的值
// Item is a single todo row. Its completion state is always the last value
// the server confirmed.
type Item struct {
	gw ItemGateway

	Todo      todos.Todo
	OnChanged func(todos.Todo)
	OnDeleted func(id string)

	err error
}

func NewItem(gw ItemGateway, todo todos.Todo) *Item {
	return &Item{gw: gw, Todo: todo}
}

// Toggle asks the server to flip completion and shows whatever it returns.
func (it *Item) Toggle(ctx context.Context) error {
	updated, err := it.gw.Toggle(ctx, it.Todo.ID)
	if err != nil {
		it.err = err
		return err
	}
	it.err = nil
	it.Todo = updated
	if it.OnChanged != nil {
		it.OnChanged(updated)
	}
	return nil
}

// Delete asks c first. A negative answer sends nothing and reports false.
func (it *Item) Delete(ctx context.Context, c Confirmer) (bool, error) {
	if c == nil || !c.Confirm(MsgConfirmDelete) {
		return false, nil
	}
	if err := it.gw.Delete(ctx, it.Todo.ID); err != nil {
		it.err = err
		return false, err
	}
	it.err = nil
	if it.OnDeleted != nil {
		it.OnDeleted(it.Todo.ID)
	}
	return true, nil
}

func (it *Item) Err() error { return it.err }
