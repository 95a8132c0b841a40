package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type APIConfig struct {
	BaseURL   string `json:"base_url"`
	TimeoutMS int    `json:"timeout_ms"`
}

type StorageConfig struct {
	// Backend 选择 token 持久化后端：sqlite / memory / valkey
	// Backend selects the token persistence backend: sqlite / memory / valkey
	Backend   string `json:"backend"`
	BaseDir   string `json:"base_dir"`
	ValkeyURI string `json:"valkey_uri"`
}

type LogConfig struct {
	Level  string `json:"level"`
	Stderr bool   `json:"stderr"`
}

type UIConfig struct {
	Mode   string `json:"mode"`
	Locale string `json:"locale"`
}

type AssistantConfig struct {
	MaxMessageTokens int `json:"max_message_tokens"`
}

type Config struct {
	API       APIConfig       `json:"api"`
	Storage   StorageConfig   `json:"storage"`
	Log       LogConfig       `json:"log"`
	UI        UIConfig        `json:"ui"`
	Assistant AssistantConfig `json:"assistant"`
}

type fileLogConfig struct {
	Level  *string `json:"level"`
	Stderr *bool   `json:"stderr"`
}

type fileConfig struct {
	API       *APIConfig       `json:"api"`
	Storage   *StorageConfig   `json:"storage"`
	Log       *fileLogConfig   `json:"log"`
	UI        *UIConfig        `json:"ui"`
	Assistant *AssistantConfig `json:"assistant"`
}

func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL:   DefaultAPIBaseURL,
			TimeoutMS: DefaultAPITimeoutMS,
		},
		Storage: StorageConfig{
			Backend: BackendSQLite,
			BaseDir: "~/.todo",
		},
		Log: LogConfig{
			Level: "info",
		},
		UI: UIConfig{
			Mode: "auto",
		},
		Assistant: AssistantConfig{
			MaxMessageTokens: DefaultAssistantMaxMessageTokens,
		},
	}
}

// Load 按顺序合并：默认值 → 全局配置 → 项目配置 → .env → 环境变量
// Load merges in order: defaults → global file → project file → .env → environment
func Load(path string) (Config, error) {
	cfg := Default()

	for _, globalPath := range globalConfigPaths() {
		if err := mergeFromFile(&cfg, globalPath); err != nil {
			return Config{}, err
		}
	}

	resolvedPath := strings.TrimSpace(path)
	if envPath := strings.TrimSpace(os.Getenv("TODO_CONFIG_PATH")); envPath != "" {
		resolvedPath = envPath
	}
	if resolvedPath == "" {
		resolvedPath = findProjectConfigPath()
	}
	if err := mergeFromFile(&cfg, resolvedPath); err != nil {
		return Config{}, err
	}

	if err := loadDotEnv(); err != nil {
		return Config{}, err
	}
	return applyEnv(cfg)
}

func globalConfigPaths() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{filepath.Join(home, ".todo", "config.json")}
}

func findProjectConfigPath() string {
	candidates := []string{
		"todo.config.json",
		".todo/config.json",
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

// loadDotEnv 读取当前目录的 .env；已存在的环境变量不会被覆盖
// loadDotEnv reads ./.env; variables already set in the environment win
func loadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	if err := godotenv.Load(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func mergeFromFile(cfg *Config, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}

	resolved, err := expandPath(path)
	if err != nil {
		return fmt.Errorf("expand config path %q: %w", path, err)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %q: %w", resolved, err)
	}

	cleaned := stripJSONComments(data)
	var fileCfg fileConfig
	if err := json.Unmarshal(cleaned, &fileCfg); err != nil {
		return fmt.Errorf("parse config %q: %w", resolved, err)
	}
	applyFileConfig(cfg, fileCfg)
	return nil
}

func applyFileConfig(cfg *Config, fc fileConfig) {
	if fc.API != nil {
		if strings.TrimSpace(fc.API.BaseURL) != "" {
			cfg.API.BaseURL = fc.API.BaseURL
		}
		if fc.API.TimeoutMS > 0 {
			cfg.API.TimeoutMS = fc.API.TimeoutMS
		}
	}
	if fc.Storage != nil {
		cfg.Storage = mergeStorage(cfg.Storage, *fc.Storage)
	}
	if fc.Log != nil {
		if fc.Log.Level != nil {
			cfg.Log.Level = *fc.Log.Level
		}
		if fc.Log.Stderr != nil {
			cfg.Log.Stderr = *fc.Log.Stderr
		}
	}
	if fc.UI != nil {
		if strings.TrimSpace(fc.UI.Mode) != "" {
			cfg.UI.Mode = fc.UI.Mode
		}
		if strings.TrimSpace(fc.UI.Locale) != "" {
			cfg.UI.Locale = fc.UI.Locale
		}
	}
	if fc.Assistant != nil && fc.Assistant.MaxMessageTokens > 0 {
		cfg.Assistant.MaxMessageTokens = fc.Assistant.MaxMessageTokens
	}
}

func mergeStorage(base StorageConfig, override StorageConfig) StorageConfig {
	if strings.TrimSpace(override.Backend) != "" {
		base.Backend = override.Backend
	}
	if strings.TrimSpace(override.BaseDir) != "" {
		base.BaseDir = override.BaseDir
	}
	if strings.TrimSpace(override.ValkeyURI) != "" {
		base.ValkeyURI = override.ValkeyURI
	}
	return base
}

func normalize(cfg *Config) error {
	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.API.BaseURL), "/")
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = DefaultAPIBaseURL
	}
	if cfg.API.TimeoutMS <= 0 {
		cfg.API.TimeoutMS = DefaultAPITimeoutMS
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	switch backend {
	case "":
		backend = BackendSQLite
	case BackendSQLite, BackendMemory, BackendValkey:
	default:
		return fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	cfg.Storage.Backend = backend
	if backend == BackendValkey && strings.TrimSpace(cfg.Storage.ValkeyURI) == "" {
		return errors.New("storage.valkey_uri is required for the valkey backend")
	}
	if strings.TrimSpace(cfg.Storage.BaseDir) == "" {
		cfg.Storage.BaseDir = Default().Storage.BaseDir
	}
	storageDir, err := expandPath(cfg.Storage.BaseDir)
	if err != nil {
		return err
	}
	cfg.Storage.BaseDir = storageDir

	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	if cfg.Log.Level == "" {
		cfg.Log.Level = Default().Log.Level
	}

	mode := strings.ToLower(strings.TrimSpace(cfg.UI.Mode))
	switch mode {
	case "tui", "repl", "auto":
	default:
		mode = "auto"
	}
	cfg.UI.Mode = mode
	cfg.UI.Locale = strings.TrimSpace(cfg.UI.Locale)

	if cfg.Assistant.MaxMessageTokens <= 0 {
		cfg.Assistant.MaxMessageTokens = DefaultAssistantMaxMessageTokens
	}
	return nil
}

func applyEnv(cfg Config) (Config, error) {
	if v := strings.TrimSpace(os.Getenv("TODO_API_BASE_URL")); v != "" {
		cfg.API.BaseURL = v
	} else if v := strings.TrimSpace(os.Getenv("NEXT_PUBLIC_API_BASE_URL")); v != "" {
		cfg.API.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("TODO_API_TIMEOUT_MS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid TODO_API_TIMEOUT_MS: %q", v)
		}
		cfg.API.TimeoutMS = n
	}
	if v := strings.TrimSpace(os.Getenv("TODO_STORAGE_BACKEND")); v != "" {
		cfg.Storage.Backend = v
	}
	if v := strings.TrimSpace(os.Getenv("TODO_DATA_DIR")); v != "" {
		cfg.Storage.BaseDir = v
	}
	if v := strings.TrimSpace(os.Getenv("TODO_VALKEY_URI")); v != "" {
		cfg.Storage.ValkeyURI = v
	}
	if v := strings.TrimSpace(os.Getenv("TODO_LOG_LEVEL")); v != "" {
		cfg.Log.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("TODO_LANG")); v != "" {
		cfg.UI.Locale = v
	}

	return cfg, normalize(&cfg)
}

func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if strings.HasPrefix(path, "~/") || path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		if path == "~" {
			path = home
		} else {
			path = filepath.Join(home, strings.TrimPrefix(path, "~/"))
		}
	}
	return filepath.Abs(path)
}

func stripJSONComments(data []byte) []byte {
	const (
		stateNormal = iota
		stateString
		stateLineComment
		stateBlockComment
	)

	state := stateNormal
	escaped := false
	out := bytes.Buffer{}

	for i := 0; i < len(data); i++ {
		c := data[i]
		next := byte(0)
		if i+1 < len(data) {
			next = data[i+1]
		}

		switch state {
		case stateNormal:
			if c == '"' {
				state = stateString
				out.WriteByte(c)
				continue
			}
			if c == '/' && next == '/' {
				state = stateLineComment
				i++
				continue
			}
			if c == '/' && next == '*' {
				state = stateBlockComment
				i++
				continue
			}
			out.WriteByte(c)
		case stateString:
			out.WriteByte(c)
			if escaped {
				escaped = false
				continue
			}
			if c == '\\' {
				escaped = true
				continue
			}
			if c == '"' {
				state = stateNormal
			}
		case stateLineComment:
			if c == '\n' {
				state = stateNormal
				out.WriteByte(c)
			}
		case stateBlockComment:
			if c == '*' && next == '/' {
				state = stateNormal
				i++
			}
		}
	}

	return out.Bytes()
}
