package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port       int              `json:"port"`
	LogConfig  logger.LogConfig `json:"log_config"`
	AI         AIConfig         `json:"ai"`
	Search     SearchConfig     `json:"search"`
	Catalog    CatalogConfig    `json:"catalog"`
	FileStore  FileStoreConfig  `json:"file_store"`
	Session    SessionConfig    `json:"session"`
	Workspace  WorkspaceConfig  `json:"workspace"`
	Telegram   TelegramConfig   `json:"telegram"`
	RateLimit  int              `json:"rate_limit_seconds"`
	AnswerLang string           `json:"answer_language"`
}

type AIConfig struct {
	Provider       string      `json:"provider"`
	Data           interface{} `json:"data"`
	Model          string      `json:"model"`
	FallbackModels []string    `json:"fallback_models"`
	EmbedModel     string      `json:"embed_model"`
	Timeout        int         `json:"timeout"`
	EmbedCacheSize int         `json:"embed_cache_size"`
	EmbedCacheTTL  int         `json:"embed_cache_ttl_seconds"`
	EmbedCachePath string      `json:"embed_cache_path"`

	// EmbedCacheMaxAgeDays bounds how long persisted embeddings are kept.
	EmbedCacheMaxAgeDays  int    `json:"embed_cache_max_age_days"`
	EmbedCacheCleanupCron string `json:"embed_cache_cleanup_cron"`
}

type SearchConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type CatalogConfig struct {
	RefreshCron string `json:"refresh_cron"`
}

type FileStoreConfig struct {
	Type       string      `json:"type"`
	Data       interface{} `json:"data"`
	Extensions []string    `json:"extensions"`
}

type SessionConfig struct {
	RedisURL  string `json:"redis_url"`
	KeyPrefix string `json:"key_prefix"`
	TTLHours  int    `json:"ttl_hours"`
}

type WorkspaceConfig struct {
	APIKey     string `json:"api_key"`
	DatabaseID string `json:"database_id"`
	Version    string `json:"version"`
	BaseURL    string `json:"base_url"`
}

type TelegramConfig struct {
	Enable bool   `json:"enable"`
	Token  string `json:"token"`
}

// Load reads the JSON config at path. Secrets left empty in the file are
// taken from the environment, optionally populated from a .env next to the
// working directory.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyEnv(&cfg)
	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if cfg.Workspace.APIKey == "" {
		cfg.Workspace.APIKey = strings.TrimSpace(os.Getenv("NOTION_API_KEY"))
	}
	if cfg.Workspace.DatabaseID == "" {
		cfg.Workspace.DatabaseID = strings.TrimSpace(os.Getenv("NOTION_DATABASE_ID"))
	}
	if cfg.Telegram.Token == "" {
		cfg.Telegram.Token = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	}
	if cfg.Session.RedisURL == "" {
		cfg.Session.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	}
	if key := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); key != "" {
		data, ok := cfg.AI.Data.(map[string]interface{})
		if !ok || data == nil {
			data = map[string]interface{}{}
		}
		if v, _ := data["api_key"].(string); v == "" {
			data["api_key"] = key
		}
		cfg.AI.Data = data
	}
}

func applyDefaults(cfg *Config) error {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "gemini"
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "gemini-2.5-flash"
	}
	if cfg.AI.EmbedModel == "" {
		cfg.AI.EmbedModel = "gemini-embedding-001"
	}
	if cfg.AI.Timeout == 0 {
		cfg.AI.Timeout = 120
	}
	if cfg.AI.EmbedCacheSize == 0 {
		cfg.AI.EmbedCacheSize = 5000
	}
	if cfg.AI.EmbedCacheTTL == 0 {
		cfg.AI.EmbedCacheTTL = 6 * 3600
	}
	if cfg.AI.EmbedCacheMaxAgeDays == 0 {
		cfg.AI.EmbedCacheMaxAgeDays = 30
	}
	if cfg.AI.EmbedCacheCleanupCron == "" {
		cfg.AI.EmbedCacheCleanupCron = "30 3 * * *"
	}
	if cfg.Search.Type == "" {
		cfg.Search.Type = "discoveryengine"
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "gcs"
	}
	if cfg.Catalog.RefreshCron == "" {
		cfg.Catalog.RefreshCron = "0 */6 * * *"
	}
	if cfg.Session.RedisURL == "" {
		cfg.Session.RedisURL = "redis://localhost:6379"
	}
	if cfg.Session.KeyPrefix == "" {
		cfg.Session.KeyPrefix = "conv:"
	}
	if cfg.Session.TTLHours == 0 {
		cfg.Session.TTLHours = 7 * 24
	}
	if cfg.Workspace.Version == "" {
		cfg.Workspace.Version = "2025-09-03"
	}
	if cfg.Workspace.BaseURL == "" {
		cfg.Workspace.BaseURL = "https://api.notion.com/v1"
	}
	if cfg.AnswerLang == "" {
		cfg.AnswerLang = "繁體中文"
	}
	if cfg.Telegram.Enable && cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is required when telegram is enabled")
	}
	return nil
}

// ValidateServer checks the settings only the long running server needs.
func (c *Config) ValidateServer() error {
	if c.Workspace.APIKey == "" || c.Workspace.DatabaseID == "" {
		return fmt.Errorf("workspace.api_key and workspace.database_id are required")
	}
	return nil
}
