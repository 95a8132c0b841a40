package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"todo/internal/bootstrap"
	"todo/internal/config"
	"todo/internal/repl"
	"todo/internal/tui"

	"golang.org/x/term"
)

const version = "0.3.0"

// options 命令行参数
// options are the parsed command-line flags
type options struct {
	configPath string
	apiBase    string
	ui         string
	initConfig bool
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "todo: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("todo", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "Path to config JSON/JSONC")
	fs.StringVar(&opts.apiBase, "api", "", "API base URL override")
	fs.StringVar(&opts.ui, "ui", "", "Front end: tui, repl or auto")
	fs.BoolVar(&opts.initConfig, "init", false, "Write ./.todo/config.json with defaults and exit")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	return opts, nil
}

func run(opts options) error {
	if opts.initConfig {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolve cwd: %w", err)
		}
		path, err := config.InitProjectConfigScaffold(cwd)
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if v := strings.TrimRight(strings.TrimSpace(opts.apiBase), "/"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := strings.TrimSpace(opts.ui); v != "" {
		cfg.UI.Mode = strings.ToLower(v)
	}
	mode, err := resolveMode(cfg.UI.Mode, term.IsTerminal(int(os.Stdin.Fd())))
	if err != nil {
		return err
	}

	app, err := bootstrap.Build(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if mode == "tui" {
		return tui.Run(tui.Deps{
			Session:   app.Session,
			Todos:     app.Todos,
			Assistant: app.Assistant,
			Panel:     app.Panel,
			Logger:    app.Logger,
			Locale:    app.Locale,
			APIBase:   cfg.API.BaseURL,
		})
	}

	cwd, _ := os.Getwd()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return repl.Run(ctx, repl.Deps{
		Session:    app.Session,
		Todos:      app.Todos,
		Assistant:  app.Assistant,
		Panel:      app.Panel,
		Logger:     app.Logger,
		Locale:     app.Locale,
		APIBase:    cfg.API.BaseURL,
		ProjectDir: cwd,
		Version:    version,
	}, filepath.Join(cfg.Storage.BaseDir, "repl.history"))
}

// resolveMode 将 auto 解析为具体前端：终端用 TUI，管道输入用 REPL
// resolveMode turns auto into a concrete front end: TUI on a terminal, REPL otherwise
func resolveMode(mode string, isTTY bool) (string, error) {
	switch mode {
	case "tui", "repl":
		return mode, nil
	case "", "auto":
		if isTTY {
			return "tui", nil
		}
		return "repl", nil
	default:
		return "", fmt.Errorf("unknown ui mode %q (want tui, repl or auto)", mode)
	}
}
