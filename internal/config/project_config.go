package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ProjectConfigPath 返回 projectDir 下的项目配置路径（./.todo/config.json）
// ProjectConfigPath returns the project config path under projectDir
func ProjectConfigPath(projectDir string) string {
	return filepath.Join(strings.TrimSpace(projectDir), ".todo", "config.json")
}

// InitProjectConfigScaffold 在 projectDir 下初始化项目级配置模板（./.todo/config.json）。
// InitProjectConfigScaffold writes a project-level config scaffold with the
// defaults. An existing file is left untouched.
func InitProjectConfigScaffold(projectDir string) (string, error) {
	path := ProjectConfigPath(projectDir)

	// 若项目已经有配置，则尊重用户现有配置。
	info, err := os.Stat(path)
	if err == nil {
		if info.IsDir() {
			return "", fmt.Errorf("project config path is a directory: %s", path)
		}
		return path, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("stat project config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("mkdir .todo: %w", err)
	}

	data, err := json.MarshalIndent(Default(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write project config: %w", err)
	}
	return path, nil
}

// WriteAPIBaseURL 将 api.base_url 写入项目配置（./.todo/config.json）；目录不存在则创建
// WriteAPIBaseURL writes api.base_url to the project config, keeping any other keys
func WriteAPIBaseURL(projectDir, baseURL string) error {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return errors.New("base url is empty")
	}
	return writeProjectKey(projectDir, "api", "base_url", baseURL)
}

func writeProjectKey(projectDir, section, key string, value any) error {
	path := ProjectConfigPath(projectDir)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir .todo: %w", err)
	}
	var root map[string]any
	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(stripJSONComments(data), &root); err != nil {
			root = nil
		}
	}
	if root == nil {
		root = make(map[string]any)
	}
	m, _ := root[section].(map[string]any)
	if m == nil {
		m = make(map[string]any)
	}
	m[key] = value
	root[section] = m
	data, err = json.MarshalIndent(root, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
