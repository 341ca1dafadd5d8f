package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{"workspace":{"api_key":"k","database_id":"db"}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, "gemini", cfg.AI.Provider)
	require.Equal(t, "gemini-2.5-flash", cfg.AI.Model)
	require.Equal(t, "discoveryengine", cfg.Search.Type)
	require.Equal(t, "gcs", cfg.FileStore.Type)
	require.Equal(t, 168, cfg.Session.TTLHours)
	require.Equal(t, "conv:", cfg.Session.KeyPrefix)
}

func TestLoad_WorkspaceOnlyRequiredByServer(t *testing.T) {
	t.Setenv("NOTION_API_KEY", "")
	t.Setenv("NOTION_DATABASE_ID", "")
	path := writeConfig(t, `{}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Error(t, cfg.ValidateServer())

	cfg.Workspace.APIKey = "key"
	cfg.Workspace.DatabaseID = "db"
	require.NoError(t, cfg.ValidateServer())
}

func TestLoad_SecretsFromEnv(t *testing.T) {
	t.Setenv("NOTION_API_KEY", "env-key")
	t.Setenv("NOTION_DATABASE_ID", "env-db")
	t.Setenv("GEMINI_API_KEY", "gem")
	path := writeConfig(t, `{"ai":{"data":{"api_key":""}}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "env-key", cfg.Workspace.APIKey)
	require.Equal(t, "env-db", cfg.Workspace.DatabaseID)
	data, ok := cfg.AI.Data.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "gem", data["api_key"])
}

func TestLoad_TelegramTokenRequiredWhenEnabled(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	path := writeConfig(t, `{"workspace":{"api_key":"k","database_id":"db"},"telegram":{"enable":true}}`)
	_, err := Load(path)
	require.Error(t, err)
}
