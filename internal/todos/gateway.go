package todos

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"todo/internal/apiclient"
)

const basePath = "/todos"

const (
	msgList   = "Failed to fetch todos"
	msgCreate = "Failed to create todo"
	msgGet    = "Failed to fetch todo"
	msgUpdate = "Failed to update todo"
	msgDelete = "Failed to delete todo"
	msgToggle = "Failed to toggle todo completion"
)

type Todo struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	IsCompleted bool   `json:"is_completed"`
	UserID      string `json:"user_id"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type CreateInput struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// UpdateInput 只发送非 nil 字段
// UpdateInput sends only the fields that are set
type UpdateInput struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	IsCompleted *bool   `json:"is_completed,omitempty"`
}

// Requester is the subset of *apiclient.Client the gateway needs.
type Requester interface {
	Do(ctx context.Context, method, path string, in, out any) error
}

// Gateway 待办资源的类型化 CRUD
// Gateway is typed CRUD over the todo resource. Every error it returns is an
// *apiclient.Error with a user-facing message.
type Gateway struct {
	api Requester
}

func NewGateway(api Requester) *Gateway {
	return &Gateway{api: api}
}

func (g *Gateway) List(ctx context.Context) ([]Todo, error) {
	var out []Todo
	if err := g.api.Do(ctx, http.MethodGet, basePath, nil, &out); err != nil {
		return nil, apiclient.Fallback(err, msgList)
	}
	if out == nil {
		out = []Todo{}
	}
	return out, nil
}

func (g *Gateway) Create(ctx context.Context, in CreateInput) (Todo, error) {
	var out Todo
	if err := g.api.Do(ctx, http.MethodPost, basePath, in, &out); err != nil {
		return Todo{}, apiclient.Fallback(err, msgCreate)
	}
	return out, nil
}

func (g *Gateway) Get(ctx context.Context, id string) (Todo, error) {
	var out Todo
	if err := g.api.Do(ctx, http.MethodGet, itemPath(id), nil, &out); err != nil {
		return Todo{}, apiclient.Fallback(err, msgGet)
	}
	return out, nil
}

func (g *Gateway) Update(ctx context.Context, id string, in UpdateInput) (Todo, error) {
	var out Todo
	if err := g.api.Do(ctx, http.MethodPut, itemPath(id), in, &out); err != nil {
		return Todo{}, apiclient.Fallback(err, msgUpdate)
	}
	return out, nil
}

func (g *Gateway) Delete(ctx context.Context, id string) error {
	if err := g.api.Do(ctx, http.MethodDelete, itemPath(id), nil, nil); err != nil {
		return apiclient.Fallback(err, msgDelete)
	}
	return nil
}

// Toggle 由服务端翻转完成状态，客户端只采用返回值
// Toggle asks the server to flip completion and returns the server's record
func (g *Gateway) Toggle(ctx context.Context, id string) (Todo, error) {
	var out Todo
	if err := g.api.Do(ctx, http.MethodPatch, itemPath(id)+"/toggle-complete", nil, &out); err != nil {
		return Todo{}, apiclient.Fallback(err, msgToggle)
	}
	return out, nil
}

func itemPath(id string) string {
	return basePath + "/" + url.PathEscape(strings.TrimSpace(id))
}
