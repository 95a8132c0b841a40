package bootstrap

import (
	"fmt"
	"path/filepath"
	"time"

	"todo/internal/apiclient"
	"todo/internal/assistant"
	"todo/internal/config"
	"todo/internal/i18n"
	"todo/internal/logging"
	"todo/internal/session"
	"todo/internal/storage"
	"todo/internal/todos"

	"go.uber.org/zap"
)

// valkeyPrefix namespaces the keys this client writes into a shared valkey;
// the store adds the separator, giving todo:auth_token.
const valkeyPrefix = "todo"

// BuildResult 与 UI 无关的构建结果，供 main 选择前端
// BuildResult is UI-agnostic; main hands it to the TUI or the REPL
type BuildResult struct {
	Config    config.Config
	Logger    *zap.Logger
	KV        storage.KV
	Session   *session.Store
	Todos     *todos.Gateway
	Assistant *assistant.Gateway
	Panel     *assistant.Panel
	Locale    *i18n.I18n
}

// Build 按顺序初始化：配置 → 日志 → 存储 → 会话 → 客户端 → 网关；调用方负责 defer result.Close()
// Build initializes config → logger → storage → session → client → gateways; caller must defer result.Close()
func Build(cfg config.Config) (*BuildResult, error) {
	logger, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Dir:    filepath.Join(cfg.Storage.BaseDir, "logs"),
		Stderr: cfg.Log.Stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	kv := openStore(cfg, logger)

	timeout := time.Duration(cfg.API.TimeoutMS) * time.Millisecond
	authClient := apiclient.New(cfg.API.BaseURL,
		apiclient.WithTimeout(timeout),
		apiclient.WithMiddleware(apiclient.Logging(logger)),
	)
	store := session.NewStore(kv, authClient, session.WithLogger(logger))

	// 受保护的请求：带 token，401 时清除会话
	// Protected calls carry the token and clear the session on a 401
	client := apiclient.New(cfg.API.BaseURL,
		apiclient.WithTimeout(timeout),
		apiclient.WithMiddleware(
			apiclient.Logging(logger),
			apiclient.HandleUnauthorized(apiclient.InvalidatorFunc(store.Expire)),
			apiclient.AttachAuth(store),
		),
	)

	chat := assistant.NewGateway(client)
	panel := assistant.NewPanel(chat,
		assistant.WithLogger(logger),
		assistant.WithTokenBudget(newTokenCounter(), cfg.Assistant.MaxMessageTokens),
	)

	logger.Info("client ready",
		zap.String("api", cfg.API.BaseURL),
		zap.String("storage", cfg.Storage.Backend),
	)
	return &BuildResult{
		Config:    cfg,
		Logger:    logger,
		KV:        kv,
		Session:   store,
		Todos:     todos.NewGateway(client),
		Assistant: chat,
		Panel:     panel,
		Locale:    i18n.New(cfg.UI.Locale),
	}, nil
}

// openStore 打开配置的存储后端；失败时退化为不可用存储（始终未登录）
// openStore opens the configured backend. On failure the client runs with an
// unavailable store, which reads as signed out.
func openStore(cfg config.Config, logger *zap.Logger) storage.KV {
	var (
		kv  storage.KV
		err error
	)
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		kv = storage.NewMemoryStore()
	case config.BackendValkey:
		kv, err = storage.NewValkeyStore(cfg.Storage.ValkeyURI, valkeyPrefix)
	default:
		kv, err = storage.NewSQLiteStore(filepath.Join(cfg.Storage.BaseDir, "todo.db"))
	}
	if err != nil {
		logger.Warn("token storage unavailable", zap.String("backend", cfg.Storage.Backend), zap.Error(err))
		return storage.UnavailableStore{}
	}
	return kv
}

// newTokenCounter 后台加载 cl100k_base；加载期间（或离线失败时）按启发式计数
// newTokenCounter loads cl100k_base in the background. Until it is ready, or
// when the ranks cannot be fetched, messages are counted heuristically.
func newTokenCounter() *assistant.BackgroundTokenizer {
	return assistant.NewBackgroundTokenizer(func() assistant.Counter {
		return assistant.DefaultTokenizer()
	})
}

// Close 关闭存储并刷新日志
// Close releases the store and flushes the logger
func (r *BuildResult) Close() error {
	err := r.KV.Close()
	_ = r.Logger.Sync()
	return err
}
