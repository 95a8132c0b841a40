package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestResolveMode(t *testing.T) {
	cases := []struct {
		mode  string
		isTTY bool
		want  string
	}{
		{"auto", true, "tui"},
		{"auto", false, "repl"},
		{"", true, "tui"},
		{"tui", false, "tui"},
		{"repl", true, "repl"},
	}
	for _, c := range cases {
		got, err := resolveMode(c.mode, c.isTTY)
		if err != nil || got != c.want {
			t.Fatalf("resolveMode(%q,%v)=%q,%v want %q", c.mode, c.isTTY, got, err, c.want)
		}
	}
	if _, err := resolveMode("gui", true); err == nil {
		t.Fatal("unknown mode should fail")
	}
}

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"-api", "http://x:1/", "-ui", "repl", "-config", "c.json"}, io.Discard)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if opts.apiBase != "http://x:1/" || opts.ui != "repl" || opts.configPath != "c.json" || opts.initConfig {
		t.Fatalf("opts=%+v", opts)
	}
	if _, err := parseFlags([]string{"-nope"}, io.Discard); err == nil {
		t.Fatal("unknown flag should fail")
	}
}

func TestRunInitWritesScaffold(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	if err := run(options{initConfig: true}); err != nil {
		t.Fatalf("run -init: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".todo", "config.json")); err != nil {
		t.Fatalf("scaffold missing: %v", err)
	}
}
