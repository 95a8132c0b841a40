package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"todo/internal/apitest"
	"todo/internal/config"
	"todo/internal/i18n"
	"todo/internal/storage"
)

func testConfig(t *testing.T, backend string) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.BaseDir = filepath.Join(t.TempDir(), "data")
	cfg.Storage.Backend = backend
	cfg.UI.Locale = "en"
	return cfg
}

func TestBuildSQLiteCreatesDataFiles(t *testing.T) {
	cfg := testConfig(t, config.BackendSQLite)
	res, err := Build(cfg)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer res.Close()

	if _, ok := res.KV.(*storage.SQLiteStore); !ok {
		t.Fatalf("KV=%T, want *storage.SQLiteStore", res.KV)
	}
	if _, err := os.Stat(filepath.Join(cfg.Storage.BaseDir, "todo.db")); err != nil {
		t.Fatalf("todo.db missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Storage.BaseDir, "logs", "todo.log")); err != nil {
		t.Fatalf("todo.log missing: %v", err)
	}
	if res.Session.IsAuthenticated() {
		t.Fatal("fresh store should be signed out")
	}
	if res.Locale.Locale() != "en" {
		t.Fatalf("locale=%q", res.Locale.Locale())
	}
}

func TestBuildMemoryBackend(t *testing.T) {
	res, err := Build(testConfig(t, config.BackendMemory))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer res.Close()
	if _, ok := res.KV.(*storage.MemoryStore); !ok {
		t.Fatalf("KV=%T, want *storage.MemoryStore", res.KV)
	}
}

func TestBuildUnreachableValkeyDegrades(t *testing.T) {
	cfg := testConfig(t, config.BackendValkey)
	cfg.Storage.ValkeyURI = "redis://127.0.0.1:1"
	res, err := Build(cfg)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer res.Close()
	if _, ok := res.KV.(storage.UnavailableStore); !ok {
		t.Fatalf("KV=%T, want storage.UnavailableStore", res.KV)
	}
	if res.Session.IsAuthenticated() {
		t.Fatal("unavailable store must read as signed out")
	}
}

func TestBuildRejectsBadLogLevel(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	cfg.Log.Level = "chatty"
	if _, err := Build(cfg); err == nil {
		t.Fatal("Build with unknown log level should fail")
	}
}

func TestBuildWiresAuthorizedClient(t *testing.T) {
	srv := apitest.New(t)
	srv.Seed(srv.AddUser("ada@example.com", "correct-horse"), "first")

	cfg := testConfig(t, config.BackendMemory)
	cfg.API.BaseURL = srv.URL
	res, err := Build(cfg)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer res.Close()

	ctx := context.Background()
	if _, err := res.Session.Login(ctx, "ada@example.com", "correct-horse"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	items, err := res.Todos.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 || items[0].Title != "first" {
		t.Fatalf("items=%+v", items)
	}

	// 401 清除会话 / A 401 clears the session
	srv.Revoke(res.Session.Token())
	if _, err := res.Todos.List(ctx); err == nil {
		t.Fatal("revoked token should fail")
	}
	if res.Session.IsAuthenticated() {
		t.Fatal("session should be cleared after 401")
	}
}

func TestBuildInjectsConfiguredLocale(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	cfg.UI.Locale = "zh_CN.UTF-8"
	res, err := Build(cfg)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer res.Close()
	if res.Locale.Locale() != "zh-CN" {
		t.Fatalf("locale=%q, want zh-CN", res.Locale.Locale())
	}
	if other := i18n.New("en"); other.Locale() != "en" {
		t.Fatal("building a client must not change other catalogs")
	}
}
