package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options 日志构建参数
// Options controls how the logger is built
type Options struct {
	Level  string
	Dir    string
	Stderr bool
}

// New 构建写入 <dir>/todo.log 的 zap logger；TUI 运行时 stdout/stderr 不可写日志
// New builds a zap logger writing to <dir>/todo.log; the TUI owns the terminal so logs go to a file
func New(opts Options) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.TrimSpace(opts.Level))
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", opts.Level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = nil
	cfg.ErrorOutputPaths = nil

	if dir := strings.TrimSpace(opts.Dir); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		path := filepath.Join(dir, "todo.log")
		cfg.OutputPaths = append(cfg.OutputPaths, path)
		cfg.ErrorOutputPaths = append(cfg.ErrorOutputPaths, path)
	}
	if opts.Stderr {
		cfg.OutputPaths = append(cfg.OutputPaths, "stderr")
		cfg.ErrorOutputPaths = append(cfg.ErrorOutputPaths, "stderr")
	}
	if len(cfg.OutputPaths) == 0 {
		return zap.NewNop(), nil
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
