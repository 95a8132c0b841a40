package assistant

import (
	"context"
	"net/http"
	"strings"

	"todo/internal/apiclient"
)

const (
	msgChatFailed   = "Sorry, something went wrong. Please try again."
	msgStatusFailed = "Failed to check assistant status"
)

// Status is the assistant availability reported by the backend.
type Status struct {
	Configured bool   `json:"configured"`
	Message    string `json:"message"`
}

// TodoSummary is the slice of a todo an action result refers to.
type TodoSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	IsCompleted bool   `json:"is_completed"`
}

type ActionResult struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Todo    *TodoSummary `json:"todo,omitempty"`
}

// Reply 助手回复；Action 为服务端解析出的原始动作
// Reply is the assistant's answer; Action is the raw action the server parsed
type Reply struct {
	Response     string         `json:"response"`
	Action       map[string]any `json:"action,omitempty"`
	ActionResult *ActionResult  `json:"action_result,omitempty"`
}

// ActionName returns the action type, e.g. "create_todo", or "".
func (r Reply) ActionName() string {
	if r.Action == nil {
		return ""
	}
	for _, key := range []string{"type", "action", "name"} {
		if v, ok := r.Action[key].(string); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

type Requester interface {
	Do(ctx context.Context, method, path string, in, out any) error
}

// Gateway talks to the /chatbot endpoints through the authorized client.
type Gateway struct {
	api Requester
}

func NewGateway(api Requester) *Gateway {
	return &Gateway{api: api}
}

func (g *Gateway) Status(ctx context.Context) (Status, error) {
	var out Status
	if err := g.api.Do(ctx, http.MethodGet, "/chatbot/status", nil, &out); err != nil {
		return Status{}, apiclient.Fallback(err, msgStatusFailed)
	}
	return out, nil
}

func (g *Gateway) Chat(ctx context.Context, text string) (Reply, error) {
	var out Reply
	in := map[string]string{"message": text}
	if err := g.api.Do(ctx, http.MethodPost, "/chatbot/chat", in, &out); err != nil {
		return Reply{}, apiclient.Fallback(err, msgChatFailed)
	}
	return out, nil
}
