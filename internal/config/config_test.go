package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "ollama", cfg.Translate.Provider)
	assert.Equal(t, "Chinese", cfg.Translate.TargetLanguage)
	assert.Equal(t, 20*time.Second, cfg.Translate.Timeout)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Translate.APIKeyEnv)

	assert.True(t, cfg.Cache.Enabled)
	assert.NotEmpty(t, cfg.Cache.Path)

	assert.Equal(t, 30, cfg.Balloon.MinWidth)
	assert.Equal(t, 5, cfg.Balloon.MinHeight)
	assert.Equal(t, 60, cfg.Balloon.MaxSize)
	assert.Equal(t, 1, cfg.Balloon.PinMargin)

	assert.Equal(t, 200, cfg.History.Limit)
	assert.Equal(t, "info", cfg.Log.Level)
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadPartialYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
translate:
  provider: openai
  model: gpt-test
  target_language: Japanese
  timeout: 5s
balloon:
  max_size: 80
cache:
  ttl: 1h
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Translate.Provider)
	assert.Equal(t, "gpt-test", cfg.Translate.Model)
	assert.Equal(t, "Japanese", cfg.Translate.TargetLanguage)
	assert.Equal(t, 5*time.Second, cfg.Translate.Timeout)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 80, cfg.Balloon.MaxSize)

	// Untouched keys keep their defaults.
	assert.Equal(t, 30, cfg.Balloon.MinWidth)
	assert.Equal(t, 2.0, cfg.Translate.RatePerSecond)
	assert.True(t, cfg.Cache.Enabled)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("translate:\n  target_language: French\n"), 0o644))

	t.Setenv("PEEK_TARGET_LANG", "German")
	t.Setenv("PEEK_RATE", "0.5")
	t.Setenv("PEEK_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "German", cfg.Translate.TargetLanguage)
	assert.Equal(t, 0.5, cfg.Translate.RatePerSecond)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	bad := map[string]string{
		"syntax":   "translate: [",
		"provider": "translate:\n  provider: babelfish\n",
		"sizes":    "balloon:\n  min_width: 40\n  max_size: 10\n",
	}
	for name, content := range bad {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}

	t.Setenv("PEEK_RATE", "fast")
	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Translate.TargetLanguage = "Korean"
	cfg.Balloon.PinMargin = 2

	require.NoError(t, Save(cfg, path))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestAPIKeyFromEnv(t *testing.T) {
	t.Setenv("MY_KEY", "sk-123")
	tc := TranslateConfig{APIKeyEnv: "MY_KEY"}
	assert.Equal(t, "sk-123", tc.APIKey())
	assert.Empty(t, TranslateConfig{}.APIKey())
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PEEK_PROVIDER", "PEEK_MODEL", "PEEK_TARGET_LANG", "PEEK_RATE", "PEEK_LOG_LEVEL"} {
		t.Setenv(key, "")
	}
}
