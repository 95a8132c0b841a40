package views

import (
	"context"

	"todo/internal/todos"
)

const (
	MsgLoadFailed = "Failed to load todos. Please try again."
	MsgEmptyList  = "No todos yet. Add your first todo above!"
)

type ListState int

const (
	ListLoading ListState = iota
	ListPopulated
	ListEmpty
	ListError
)

func (s ListState) String() string {
	switch s {
	case ListLoading:
		return "loading"
	case ListPopulated:
		return "populated"
	case ListEmpty:
		return "empty"
	case ListError:
		return "error"
	default:
		return "unknown"
	}
}

type Lister interface {
	List(ctx context.Context) ([]todos.Todo, error)
}

// LoadTicket ties a list fetch to the view generation that started it.
type LoadTicket struct {
	generation int
}

// List 待办列表视图：loading → populated | empty | error
// List is the todo list view. Local state only changes after the server
// confirms an operation, and unaffected items keep their order.
type List struct {
	gw         Lister
	state      ListState
	items      []todos.Todo
	err        error
	generation int
	mounted    bool
}

func NewList(gw Lister) *List {
	return &List{gw: gw, state: ListLoading, mounted: true}
}

// StartLoad moves to Loading and returns the ticket the result must carry.
func (l *List) StartLoad() LoadTicket {
	l.generation++
	l.mounted = true
	l.state = ListLoading
	l.err = nil
	return LoadTicket{generation: l.generation}
}

// ApplyLoad applies a fetch result. Results for a stale ticket or an
// unmounted view are dropped and ApplyLoad reports false.
func (l *List) ApplyLoad(t LoadTicket, items []todos.Todo, err error) bool {
	if !l.mounted || t.generation != l.generation {
		return false
	}
	if err != nil {
		l.state = ListError
		l.err = err
		return true
	}
	l.items = append([]todos.Todo(nil), items...)
	l.err = nil
	l.resolve()
	return true
}

// Load issues exactly one list call. Calling it again is the retry path.
func (l *List) Load(ctx context.Context) error {
	t := l.StartLoad()
	items, err := l.gw.List(ctx)
	l.ApplyLoad(t, items, err)
	return err
}

// Unmount detaches the view; any result still in flight is ignored.
func (l *List) Unmount() {
	l.mounted = false
	l.generation++
}

func (l *List) Mounted() bool { return l.mounted }

// Prepend adds a server-confirmed new todo at the top.
func (l *List) Prepend(todo todos.Todo) {
	if !l.mounted {
		return
	}
	l.items = append([]todos.Todo{todo}, l.items...)
	l.settle()
}

// Replace swaps in the server's copy of a todo by id, keeping its position.
func (l *List) Replace(todo todos.Todo) bool {
	if !l.mounted {
		return false
	}
	for i := range l.items {
		if l.items[i].ID == todo.ID {
			l.items[i] = todo
			return true
		}
	}
	return false
}

// Remove drops a server-confirmed deleted todo.
func (l *List) Remove(id string) bool {
	if !l.mounted {
		return false
	}
	for i := range l.items {
		if l.items[i].ID == id {
			l.items = append(l.items[:i:i], l.items[i+1:]...)
			l.settle()
			return true
		}
	}
	return false
}

// settle recomputes Populated/Empty after a confirmed change. Loading is left
// alone until the fetch resolves; an Error gives way so the confirmed item is
// never hidden behind the banner.
func (l *List) settle() {
	if l.state == ListLoading {
		return
	}
	l.err = nil
	l.resolve()
}

func (l *List) resolve() {
	if len(l.items) == 0 {
		l.state = ListEmpty
	} else {
		l.state = ListPopulated
	}
}

func (l *List) State() ListState { return l.state }

// Ready reports whether a fetch has succeeded, so new items can be added
// to a list that reflects the server.
func (l *List) Ready() bool {
	return l.state == ListPopulated || l.state == ListEmpty
}

func (l *List) Items() []todos.Todo {
	return append([]todos.Todo(nil), l.items...)
}

// At returns the item at index i.
func (l *List) At(i int) (todos.Todo, bool) {
	if i < 0 || i >= len(l.items) {
		return todos.Todo{}, false
	}
	return l.items[i], true
}

// Find returns the item with the given id.
func (l *List) Find(id string) (todos.Todo, bool) {
	for _, todo := range l.items {
		if todo.ID == id {
			return todo, true
		}
	}
	return todos.Todo{}, false
}

func (l *List) Len() int { return len(l.items) }

// Err is the underlying load error in the Error state.
func (l *List) Err() error { return l.err }

// Banner is the message to render for the Empty and Error states.
func (l *List) Banner() string {
	switch l.state {
	case ListEmpty:
		return MsgEmptyList
	case ListError:
		return MsgLoadFailed
	}
	return ""
}
