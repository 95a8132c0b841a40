package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

type countingInvalidator struct{ calls atomic.Int32 }

func (c *countingInvalidator) Logout() { c.calls.Add(1) }

func TestChainOrderFirstIsOutermost(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next Doer) Doer {
			return DoerFunc(func(req *http.Request) (*http.Response, error) {
				order = append(order, name)
				return next.Do(req)
			})
		}
	}
	base := DoerFunc(func(*http.Request) (*http.Response, error) {
		order = append(order, "base")
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
	})

	req, _ := http.NewRequest(http.MethodGet, "http://example.invalid/", nil)
	if _, err := Chain(base, mark("a"), nil, mark("b")).Do(req); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(order, ","); got != "a,b,base" {
		t.Fatalf("order=%s", got)
	}
}

func TestAttachAuthReadsTokenAtSendTime(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	var token atomic.Value
	token.Store("")
	source := tokenFunc(func() string { return token.Load().(string) })
	c := New(srv.URL, WithMiddleware(AttachAuth(source)))

	if err := c.Do(context.Background(), http.MethodGet, "/todos", nil, nil); err != nil {
		t.Fatal(err)
	}
	token.Store("abc")
	if err := c.Do(context.Background(), http.MethodGet, "/todos", nil, nil); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 2 || seen[0] != "" || seen[1] != "Bearer abc" {
		t.Fatalf("headers=%q", seen)
	}
}

type tokenFunc func() string

func (f tokenFunc) Token() string { return f() }

func TestHandleUnauthorizedLogsOutAndPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Could not validate credentials"}`))
	}))
	defer srv.Close()

	inv := &countingInvalidator{}
	c := New(srv.URL, WithMiddleware(HandleUnauthorized(inv), AttachAuth(staticToken("stale"))))

	err := c.Do(context.Background(), http.MethodGet, "/todos", nil, nil)
	if !IsUnauthorized(err) {
		t.Fatalf("err=%v, want unauthorized", err)
	}
	if err.Error() != "Could not validate credentials" {
		t.Fatalf("message=%q", err.Error())
	}
	if inv.calls.Load() != 1 {
		t.Fatalf("logout calls=%d", inv.calls.Load())
	}
}

func TestDoDecodesJSONAndServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/ok":
			if r.Header.Get("Content-Type") != "application/json" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			_, _ = w.Write([]byte(`{"id":"1","title":"x"}`))
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"Todo not found"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c := New(srv.URL + "/")
	var out struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	if err := c.Do(context.Background(), http.MethodPost, "/ok", map[string]string{"a": "b"}, &out); err != nil {
		t.Fatal(err)
	}
	if out.ID != "1" || out.Title != "x" {
		t.Fatalf("out=%+v", out)
	}

	err := c.Do(context.Background(), http.MethodGet, "/missing", nil, nil)
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Kind != KindServer || apiErr.Status != 404 || apiErr.Message != "Todo not found" {
		t.Fatalf("err=%#v", err)
	}

	err = Fallback(c.Do(context.Background(), http.MethodGet, "/boom", nil, nil), "Failed to fetch todos")
	if err == nil || err.Error() != "Failed to fetch todos" {
		t.Fatalf("fallback err=%v", err)
	}
}

func TestDoNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := Fallback(New(url).Do(context.Background(), http.MethodGet, "/todos", nil, nil), "Failed to fetch todos")
	if KindOf(err) != KindNetwork {
		t.Fatalf("kind=%q err=%v", KindOf(err), err)
	}
	if err.Error() != NetworkMessage {
		t.Fatalf("message=%q", err.Error())
	}
}

func TestDetail(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "string", body: `{"detail":"Email already registered"}`, want: "Email already registered"},
		{name: "validation list", body: `{"detail":[{"loc":["body","email"],"msg":"field required"},{"msg":"too short"}]}`, want: "field required; too short"},
		{name: "object", body: `{"detail":{"msg":"bad"}}`, want: "bad"},
		{name: "absent", body: `{"error":"x"}`, want: ""},
		{name: "not json", body: `<html>502</html>`, want: ""},
		{name: "empty", body: ``, want: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Detail([]byte(tc.body)); got != tc.want {
				t.Fatalf("Detail=%q want %q", got, tc.want)
			}
		})
	}
}

func TestFallbackKeepsValidationAndPlainErrors(t *testing.T) {
	if err := Fallback(Validation("Please enter a title for the todo"), "x"); err.Error() != "Please enter a title for the todo" {
		t.Fatalf("err=%v", err)
	}
	err := Fallback(errors.New("boom"), "Failed to delete todo")
	if err.Error() != "Failed to delete todo" || KindOf(err) != KindServer {
		t.Fatalf("err=%v kind=%q", err, KindOf(err))
	}
	if Fallback(nil, "x") != nil {
		t.Fatal("nil should stay nil")
	}
}
