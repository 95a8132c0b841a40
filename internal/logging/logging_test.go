package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesToFile(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(Options{Level: "debug", Dir: dir})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("hello")
	_ = logger.Sync()

	data, err := os.ReadFile(filepath.Join(dir, "todo.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"hello"`) {
		t.Fatalf("log missing message: %q", string(data))
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(Options{Level: "loud", Dir: t.TempDir()}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNewWithoutSinksIsNop(t *testing.T) {
	logger, err := New(Options{Level: "info"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("dropped")
}
