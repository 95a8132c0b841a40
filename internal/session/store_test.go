package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"todo/internal/apiclient"
	"todo/internal/apitest"
	"todo/internal/storage"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestStore(t *testing.T, srv *apitest.Server, kv storage.KV) *Store {
	t.Helper()
	if kv == nil {
		kv = storage.NewMemoryStore()
	}
	return NewStore(kv, apiclient.New(srv.URL))
}

func TestLoginPersistsTokenAndSendsJSON(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser("ada@example.com", "correct-horse")
	store := newTestStore(t, srv, nil)

	res, err := store.Login(context.Background(), " ada@example.com ", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Token == "" || res.User.Email != "ada@example.com" {
		t.Fatalf("result=%+v", res)
	}
	if !store.IsAuthenticated() || store.CurrentToken() != res.Token {
		t.Fatal("token not persisted")
	}
	if got := store.CachedUser().Email; got != "ada@example.com" {
		t.Fatalf("cached user=%q", got)
	}

	reqs := srv.Requests()
	if len(reqs) != 1 {
		t.Fatalf("requests=%d", len(reqs))
	}
	var body map[string]string
	if err := json.Unmarshal(reqs[0].Body, &body); err != nil {
		t.Fatalf("login body is not JSON: %v", err)
	}
	if body["email"] != "ada@example.com" || body["password"] != "correct-horse" {
		t.Fatalf("body=%v", body)
	}
}

func TestLoginFailureUsesServerDetail(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser("ada@example.com", "correct-horse")
	store := newTestStore(t, srv, nil)

	_, err := store.Login(context.Background(), "ada@example.com", "wrong-password")
	if err == nil || err.Error() != "Incorrect email or password" {
		t.Fatalf("err=%v", err)
	}
	if store.IsAuthenticated() {
		t.Fatal("failed login must not authenticate")
	}
}

func TestLoginFailureWithoutDetailUsesStatus(t *testing.T) {
	srv := apitest.New(t)
	srv.FailNext(http.MethodPost, "/auth/login", http.StatusBadGateway, `<html>bad gateway</html>`)
	store := newTestStore(t, srv, nil)

	_, err := store.Login(context.Background(), "ada@example.com", "whatever1")
	if err == nil || err.Error() != "Server error: 502" {
		t.Fatalf("err=%v", err)
	}
}

func TestLoginNetworkFailure(t *testing.T) {
	srv := apitest.New(t)
	store := newTestStore(t, srv, nil)
	srv.Close()

	_, err := store.Login(context.Background(), "ada@example.com", "whatever1")
	if apiclient.KindOf(err) != apiclient.KindNetwork || err.Error() != apiclient.NetworkMessage {
		t.Fatalf("err=%v", err)
	}
}

func TestLoginRequiresCredentialsWithoutNetwork(t *testing.T) {
	srv := apitest.New(t)
	store := newTestStore(t, srv, nil)

	if _, err := store.Login(context.Background(), "  ", "x"); apiclient.KindOf(err) != apiclient.KindValidation {
		t.Fatalf("err=%v", err)
	}
	if n := len(srv.Requests()); n != 0 {
		t.Fatalf("requests=%d, want 0", n)
	}
}

func TestRegisterValidationNeverHitsNetwork(t *testing.T) {
	srv := apitest.New(t)
	store := newTestStore(t, srv, nil)

	tests := []struct {
		name    string
		profile Profile
		want    string
	}{
		{
			name:    "mismatch",
			profile: Profile{Email: "a@example.com", Password: "longenough1", PasswordConfirm: "longenough2"},
			want:    "Passwords do not match",
		},
		{
			name:    "too short",
			profile: Profile{Email: "a@example.com", Password: "short", PasswordConfirm: "short"},
			want:    "Password must be at least 8 characters long",
		},
		{
			name:    "missing email",
			profile: Profile{Password: "longenough", PasswordConfirm: "longenough"},
			want:    "Email is required",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := store.Register(context.Background(), tc.profile)
			if apiclient.KindOf(err) != apiclient.KindValidation || err.Error() != tc.want {
				t.Fatalf("err=%v", err)
			}
		})
	}
	if n := len(srv.Requests()); n != 0 {
		t.Fatalf("requests=%d, want 0", n)
	}
}

func TestRegisterPersistsTokenAndRejectsDuplicate(t *testing.T) {
	srv := apitest.New(t)
	store := newTestStore(t, srv, nil)
	profile := Profile{
		Email:           "grace@example.com",
		Password:        "compilers",
		PasswordConfirm: "compilers",
		FirstName:       "Grace",
		LastName:        "Hopper",
	}

	res, err := store.Register(context.Background(), profile)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if res.User.DisplayName() != "Grace Hopper" || store.CurrentToken() != res.Token {
		t.Fatalf("result=%+v", res)
	}

	_, err = store.Register(context.Background(), profile)
	if err == nil || err.Error() != "Email already registered" {
		t.Fatalf("duplicate err=%v", err)
	}
}

func TestLogoutIsIdempotentAndNotifies(t *testing.T) {
	store := NewStore(storage.NewMemoryStore(), nil)
	var seen []string
	cancel := store.Subscribe(func(token string) { seen = append(seen, token) })

	if err := store.SetToken("tok"); err != nil {
		t.Fatal(err)
	}
	store.Logout()
	store.Logout()
	cancel()
	_ = store.SetToken("later")

	if store.CurrentToken() != "later" {
		t.Fatalf("token=%q", store.CurrentToken())
	}
	if len(seen) != 3 || seen[0] != "tok" || seen[1] != "" || seen[2] != "" {
		t.Fatalf("notifications=%q", seen)
	}
}

func TestUnavailableStorageDegradesToUnauthenticated(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser("ada@example.com", "correct-horse")
	store := newTestStore(t, srv, storage.UnavailableStore{})

	if store.IsAuthenticated() || store.CurrentToken() != "" {
		t.Fatal("unavailable store must read as unauthenticated")
	}
	if err := store.SetToken("tok"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	if err := store.ClearToken(); err != nil {
		t.Fatalf("ClearToken: %v", err)
	}
	store.Logout()

	res, err := store.Login(context.Background(), "ada@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Token == "" || store.IsAuthenticated() {
		t.Fatal("login should succeed but leave the session unauthenticated")
	}
}

func TestNilStorageBehavesAsUnavailable(t *testing.T) {
	store := NewStore(nil, nil)
	if store.IsAuthenticated() {
		t.Fatal("expected unauthenticated")
	}
	store.Logout()
}

func TestClaimsDecodesJWTWithoutVerifying(t *testing.T) {
	srv := apitest.New(t)
	token := srv.AddUser("ada@example.com", "correct-horse")
	store := NewStore(storage.NewMemoryStore(), nil)

	if _, err := store.Claims(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("err=%v, want ErrNoSession", err)
	}
	_ = store.SetToken(token)
	claims, err := store.Claims()
	if err != nil {
		t.Fatalf("Claims: %v", err)
	}
	if claims.Subject == "" || claims.ExpiresAt.IsZero() || claims.Expired(time.Now()) {
		t.Fatalf("claims=%+v", claims)
	}

	_ = store.SetToken("opaque-token")
	if _, err := store.Claims(); err == nil {
		t.Fatal("expected decode error for opaque token")
	}
	if !store.IsAuthenticated() {
		t.Fatal("opaque token still counts as authenticated")
	}
}

func TestAuthEventsRecordedOnSQLite(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser("ada@example.com", "correct-horse")
	db, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "todo.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	store := newTestStore(t, srv, db)

	if _, err := store.Login(context.Background(), "ada@example.com", "correct-horse"); err != nil {
		t.Fatal(err)
	}
	store.Expire()

	events := store.Events(10)
	if len(events) != 2 {
		t.Fatalf("events=%+v", events)
	}
	if events[0].Kind != storage.EventUnauthorized || events[1].Kind != storage.EventLogin {
		t.Fatalf("events=%+v", events)
	}
	if events[0].Email != "ada@example.com" {
		t.Fatalf("email=%q", events[0].Email)
	}
	if store.IsAuthenticated() {
		t.Fatal("Expire must clear the session")
	}
}

func TestUndecodableUserIsLogged(t *testing.T) {
	srv := apitest.New(t)
	srv.FailNext(http.MethodPost, "/auth/login", http.StatusOK, `{"access_token":"tok","email":42}`)
	core, logs := observer.New(zapcore.DebugLevel)
	store := NewStore(storage.NewMemoryStore(), apiclient.New(srv.URL), WithLogger(zap.New(core)))

	result, err := store.Login(context.Background(), "ada@example.com", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.Token != "tok" || result.User.Email != "" {
		t.Fatalf("result=%+v", result)
	}
	entries := logs.FilterMessage("auth response carries no user").All()
	if len(entries) != 1 {
		t.Fatalf("got %d decode log entries, want 1", len(entries))
	}
	if entries[0].ContextMap()["path"] != "/auth/login" {
		t.Fatalf("fields=%v", entries[0].ContextMap())
	}
}
