package upstream

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/huangshi/genealogy-api/config"
)

// fileConfig mirrors the CLI config file at ~/.qwen-code/config.json.
type fileConfig struct {
	APIKey  string `json:"apiKey"`
	BaseURL string `json:"baseURL"`
	Model   string `json:"model"`
}

// loadFileConfig reads the CLI config file if present. A missing or
// unreadable file is not an error, it just yields nothing.
func loadFileConfig() fileConfig {
	home, err := os.UserHomeDir()
	if err != nil {
		return fileConfig{}
	}

	data, err := os.ReadFile(filepath.Join(home, ".qwen-code", "config.json"))
	if err != nil {
		return fileConfig{}
	}

	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return fileConfig{}
	}
	return fc
}

// Resolve merges environment configuration with the CLI config file.
// Environment values win; the file only fills gaps.
func Resolve(cfg config.UpstreamConfig) config.UpstreamConfig {
	fc := loadFileConfig()

	if cfg.APIKey == "" {
		cfg.APIKey = fc.APIKey
	}
	if fc.BaseURL != "" && cfg.BaseURL == "" {
		cfg.BaseURL = fc.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = fc.Model
	}
	return cfg
}
