package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shanehull/annwatch/internal/types"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("CONFIG_FILE", "")
}

func TestLoadDefaults(t *testing.T) {
	isolateEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultSourceURL, cfg.SourceURL)
	assert.Equal(t, "https://www.maltepe.edu.tr", cfg.BaseURL)
	assert.Equal(t, "last_announcements.json", cfg.SnapshotPath)
	assert.Equal(t, []string{"alınacaktır"}, cfg.Keywords)
	assert.Equal(t, types.IdentityTitle, cfg.IdentityKey)
	assert.Equal(t, "static", cfg.Fetch.Strategy)
	assert.Equal(t, 3, cfg.Fetch.Retries)
	assert.Equal(t, 2*time.Second, cfg.Fetch.RetryDelay)
	assert.False(t, cfg.Email.Enabled)
	assert.False(t, cfg.Telegram.Enabled())
	assert.Len(t, cfg.Selectors, 4)
}

func TestLoadEnvOverrides(t *testing.T) {
	isolateEnv(t)
	t.Setenv("SOURCE_URL", "https://example.edu/news")
	t.Setenv("KEYWORDS", " staj , , burs ")
	t.Setenv("IDENTITY_KEY", "link")
	t.Setenv("FETCH_STRATEGY", "FlareSolverr")
	t.Setenv("FETCH_RETRIES", "5")
	t.Setenv("FETCH_RETRY_DELAY", "500ms")
	t.Setenv("EMAIL_ENABLED", "true")
	t.Setenv("SMTP_USER", "bot@example.edu")
	t.Setenv("SMTP_PASS", "secret")
	t.Setenv("TO_EMAIL", "me@example.edu")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "-100200")
	t.Setenv("LOG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://example.edu/news", cfg.SourceURL)
	assert.Equal(t, "https://example.edu", cfg.BaseURL)
	assert.Equal(t, []string{"staj", "burs"}, cfg.Keywords)
	assert.Equal(t, types.IdentityLink, cfg.IdentityKey)
	assert.Equal(t, "flaresolverr", cfg.Fetch.Strategy)
	assert.Equal(t, 5, cfg.Fetch.Retries)
	assert.Equal(t, 500*time.Millisecond, cfg.Fetch.RetryDelay)
	assert.True(t, cfg.Email.Enabled)
	assert.Equal(t, "bot@example.edu", cfg.Email.FromEmail)
	assert.True(t, cfg.Telegram.Enabled())
	assert.Equal(t, int64(-100200), cfg.Telegram.ChatID)
	assert.Empty(t, cfg.LogFile)
}

func TestLoadYAMLThenEnv(t *testing.T) {
	isolateEnv(t)

	path := filepath.Join(t.TempDir(), "annwatch.yaml")
	yml := `
source_url: https://yaml.example.edu/duyurular
keywords: [sınav, mülakat]
selectors:
  - item: ul.news li
    title: span.title
    link: a
fetch:
  retries: 2
  timeout: 5s
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("FETCH_RETRIES", "4")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://yaml.example.edu/duyurular", cfg.SourceURL)
	assert.Equal(t, []string{"sınav", "mülakat"}, cfg.Keywords)
	assert.Equal(t, []types.SelectorRule{{Item: "ul.news li", Title: "span.title", Link: "a"}}, cfg.Selectors)
	assert.Equal(t, 5*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 4, cfg.Fetch.Retries)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad strategy", map[string]string{"FETCH_STRATEGY": "carrier-pigeon"}},
		{"bad identity", map[string]string{"IDENTITY_KEY": "hash"}},
		{"email missing recipient", map[string]string{"EMAIL_ENABLED": "true", "SMTP_USER": "a@b.c", "SMTP_PASS": "x"}},
		{"bad chat id", map[string]string{"TELEGRAM_CHAT_ID": "general"}},
		{"bad url", map[string]string{"SOURCE_URL": "not a url"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}


func TestLoadOverridesWinOverEnv(t *testing.T) {
	isolateEnv(t)
	t.Setenv("KEYWORDS", "staj")

	cfg, err := Load(func(c *Config) {
		c.Keywords = []string{"burs"}
		c.SourceURL = "https://flag.example.edu/list"
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"burs"}, cfg.Keywords)
	assert.Equal(t, "https://flag.example.edu", cfg.BaseURL)
}

func TestLoadFileExplicitPath(t *testing.T) {
	isolateEnv(t)

	path := filepath.Join(t.TempDir(), "annwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("source_url: https://file.example.edu/list\n"), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://file.example.edu/list", cfg.SourceURL)

	_, err = LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
