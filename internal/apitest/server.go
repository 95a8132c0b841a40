// Package apitest runs an in-process fake of the todo backend for tests.
// Every request is recorded so callers can assert which calls went out.
package apitest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

var signingKey = []byte("apitest-signing-key")

// Request 记录的一次请求
// Request is one recorded call
type Request struct {
	Method        string
	Path          string
	Authorization string
	Body          []byte
}

type Todo struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	IsCompleted bool   `json:"is_completed"`
	UserID      string `json:"user_id"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	CreatedAt string `json:"created_at"`
	password  string
}

// ChatReply is what the fake assistant answers with.
type ChatReply struct {
	Response     string         `json:"response"`
	Action       map[string]any `json:"action,omitempty"`
	ActionResult map[string]any `json:"action_result,omitempty"`
}

type failure struct {
	status int
	body   string
}

type Server struct {
	*httptest.Server

	mu         sync.Mutex
	users      map[string]*User // by email
	revoked    map[string]bool
	todos      map[string][]*Todo // by user id, newest first
	requests   []Request
	failures   map[string]failure // "METHOD /path" -> one-shot failure
	forceFlip  *bool
	configured bool
	chat       func(message string) (ChatReply, int)
}

// New starts a fake backend that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		users:      map[string]*User{},
		revoked:    map[string]bool{},
		todos:      map[string][]*Todo{},
		failures:   map[string]failure{},
		configured: true,
	}
	s.chat = func(message string) (ChatReply, int) {
		return ChatReply{Response: "You said: " + message}, http.StatusOK
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.record, s.inject)

	r.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)

	api := r.NewRoute().Subrouter()
	api.Use(s.authenticate)
	api.HandleFunc("/todos", s.handleList).Methods(http.MethodGet)
	api.HandleFunc("/todos", s.handleCreate).Methods(http.MethodPost)
	api.HandleFunc("/todos/{id}", s.handleGet).Methods(http.MethodGet)
	api.HandleFunc("/todos/{id}", s.handleUpdate).Methods(http.MethodPut)
	api.HandleFunc("/todos/{id}", s.handleDelete).Methods(http.MethodDelete)
	api.HandleFunc("/todos/{id}/toggle-complete", s.handleToggle).Methods(http.MethodPatch)
	api.HandleFunc("/chatbot/chat", s.handleChat).Methods(http.MethodPost)

	r.HandleFunc("/chatbot/status", s.handleStatus).Methods(http.MethodGet)
	return r
}

// --- Test controls ---

// AddUser registers an account directly and returns a valid token for it.
func (s *Server) AddUser(email, password string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.addUserLocked(email, password, "", "")
	return s.issueToken(u)
}

// Revoke makes every later request carrying token fail with 401.
func (s *Server) Revoke(token string) {
	s.mu.Lock()
	s.revoked[token] = true
	s.mu.Unlock()
}

// FailNext makes the next request matching method and path return status
// with body instead of being handled.
func (s *Server) FailNext(method, path string, status int, body string) {
	s.mu.Lock()
	s.failures[method+" "+path] = failure{status: status, body: body}
	s.mu.Unlock()
}

// ForceToggleResult makes toggle-complete store and return v regardless of
// the current value.
func (s *Server) ForceToggleResult(v bool) {
	s.mu.Lock()
	s.forceFlip = &v
	s.mu.Unlock()
}

func (s *Server) SetConfigured(v bool) {
	s.mu.Lock()
	s.configured = v
	s.mu.Unlock()
}

// SetChat replaces the assistant responder.
func (s *Server) SetChat(fn func(message string) (ChatReply, int)) {
	s.mu.Lock()
	s.chat = fn
	s.mu.Unlock()
}

// Seed inserts todos for the owner of token, oldest first.
func (s *Server) Seed(token string, titles ...string) []Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID := s.userIDLocked(token)
	out := make([]Todo, 0, len(titles))
	for _, title := range titles {
		out = append(out, *s.insertLocked(userID, title, ""))
	}
	return out
}

// Todos returns the server-side list for the owner of token.
func (s *Server) Todos(token string) []Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID := s.userIDLocked(token)
	out := make([]Todo, 0, len(s.todos[userID]))
	for _, todo := range s.todos[userID] {
		out = append(out, *todo)
	}
	return out
}

func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count returns how many recorded requests match method and, when path is
// non-empty, start with path.
func (s *Server) Count(method, path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && (path == "" || strings.HasPrefix(r.Path, path)) {
			n++
		}
	}
	return n
}

func (s *Server) ResetRequests() {
	s.mu.Lock()
	s.requests = nil
	s.mu.Unlock()
}

// --- Middleware ---

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		r.Body = io.NopCloser(strings.NewReader(string(body)))
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			Body:          body,
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		s.mu.Lock()
		f, ok := s.failures[key]
		delete(s.failures, key)
		s.mu.Unlock()
		if ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.status)
			_, _ = io.WriteString(w, f.body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		s.mu.Lock()
		userID := s.userIDLocked(raw)
		s.mu.Unlock()
		if userID == "" {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		r.Header.Set("X-User-ID", userID)
		next.ServeHTTP(w, r)
	})
}

// --- Handlers ---

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email           string `json:"email"`
		Password        string `json:"password"`
		PasswordConfirm string `json:"password_confirm"`
		FirstName       string `json:"first_name"`
		LastName        string `json:"last_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeValidation(w, "Invalid JSON body")
		return
	}
	if in.Email == "" || in.Password == "" {
		writeValidation(w, "Field required")
		return
	}
	s.mu.Lock()
	if _, exists := s.users[in.Email]; exists {
		s.mu.Unlock()
		writeDetail(w, http.StatusConflict, "Email already registered")
		return
	}
	u := s.addUserLocked(in.Email, in.Password, in.FirstName, in.LastName)
	token := s.issueToken(u)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, authResponse(token, u))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeValidation(w, "Invalid JSON body")
		return
	}
	s.mu.Lock()
	u, ok := s.users[in.Email]
	if !ok || u.password != in.Password {
		s.mu.Unlock()
		writeDetail(w, http.StatusBadRequest, "Incorrect email or password")
		return
	}
	token := s.issueToken(u)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, authResponse(token, u))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	s.mu.Lock()
	out := make([]Todo, 0, len(s.todos[userID]))
	for _, todo := range s.todos[userID] {
		out = append(out, *todo)
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || strings.TrimSpace(in.Title) == "" {
		writeValidation(w, "Title is required")
		return
	}
	s.mu.Lock()
	todo := *s.insertLocked(r.Header.Get("X-User-ID"), in.Title, in.Description)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, todo)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	todo := s.findLocked(r.Header.Get("X-User-ID"), mux.Vars(r)["id"])
	if todo == nil {
		writeDetail(w, http.StatusNotFound, "Todo not found")
		return
	}
	writeJSON(w, http.StatusOK, *todo)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		IsCompleted *bool   `json:"is_completed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeValidation(w, "Invalid JSON body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	todo := s.findLocked(r.Header.Get("X-User-ID"), mux.Vars(r)["id"])
	if todo == nil {
		writeDetail(w, http.StatusNotFound, "Todo not found")
		return
	}
	if in.Title != nil {
		todo.Title = *in.Title
	}
	if in.Description != nil {
		todo.Description = *in.Description
	}
	if in.IsCompleted != nil {
		todo.IsCompleted = *in.IsCompleted
	}
	todo.UpdatedAt = now()
	writeJSON(w, http.StatusOK, *todo)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.todos[userID]
	for i, todo := range list {
		if todo.ID == id {
			s.todos[userID] = append(list[:i:i], list[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Todo not found")
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	todo := s.findLocked(r.Header.Get("X-User-ID"), mux.Vars(r)["id"])
	if todo == nil {
		writeDetail(w, http.StatusNotFound, "Todo not found")
		return
	}
	if s.forceFlip != nil {
		todo.IsCompleted = *s.forceFlip
	} else {
		todo.IsCompleted = !todo.IsCompleted
	}
	todo.UpdatedAt = now()
	writeJSON(w, http.StatusOK, *todo)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	configured := s.configured
	s.mu.Unlock()
	msg := "Chatbot is ready"
	if !configured {
		msg = "Please set GEMINI_API_KEY environment variable"
	}
	writeJSON(w, http.StatusOK, map[string]any{"configured": configured, "message": msg})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeValidation(w, "Invalid JSON body")
		return
	}
	s.mu.Lock()
	fn := s.chat
	s.mu.Unlock()
	reply, status := fn(in.Message)
	if status >= 400 {
		writeDetail(w, status, reply.Response)
		return
	}
	writeJSON(w, status, reply)
}

// --- Helpers ---

func (s *Server) addUserLocked(email, password, first, last string) *User {
	u := &User{
		ID:        uuid.NewString(),
		Email:     email,
		FirstName: first,
		LastName:  last,
		CreatedAt: now(),
		password:  password,
	}
	s.users[email] = u
	return u
}

func (s *Server) issueToken(u *User) string {
	claims := jwt.RegisteredClaims{
		Subject:   u.ID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(30 * time.Minute)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		panic(err)
	}
	return signed
}

// userIDLocked validates token and returns its subject, "" when invalid.
func (s *Server) userIDLocked(token string) string {
	if token == "" || s.revoked[token] {
		return ""
	}
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return ""
	}
	for _, u := range s.users {
		if u.ID == claims.Subject {
			return u.ID
		}
	}
	return ""
}

func (s *Server) insertLocked(userID, title, description string) *Todo {
	ts := now()
	todo := &Todo{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		UserID:      userID,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	s.todos[userID] = append([]*Todo{todo}, s.todos[userID]...)
	return todo
}

func (s *Server) findLocked(userID, id string) *Todo {
	for _, todo := range s.todos[userID] {
		if todo.ID == id {
			return todo
		}
	}
	return nil
}

func authResponse(token string, u *User) map[string]any {
	return map[string]any{"access_token": token, "token_type": "bearer", "user": u}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeValidation(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"detail": []map[string]any{{"loc": []string{"body"}, "msg": msg, "type": "value_error"}},
	})
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// SortedIDs returns the ids of todos in ascending order.
func SortedIDs(todos []Todo) []string {
	ids := make([]string, 0, len(todos))
	for _, todo := range todos {
		ids = append(ids, todo.ID)
	}
	sort.Strings(ids)
	return ids
}
