// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the config directory at a fresh temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(EnvConfigDir, dir)
	return dir
}

// TestConfig_ConcurrentAccess tests that Global() and SetGlobal()
// can be safely called concurrently without race conditions.
// Run with: go test -race -v ./internal/config/
func TestConfig_ConcurrentAccess(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()

	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)

		go func() {
			defer wg.Done()
			c := Default()
			c.Chat.DefaultModel = "test-model"
			SetGlobal(c)
		}()

		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}

	wg.Wait()
}

// TestConfig_ConcurrentReload tests concurrent ReloadGlobal and Global calls.
func TestConfig_ConcurrentReload(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()
	_ = Global()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = ReloadGlobal()
		}()
	}
	for i := 0; i < 80; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}
	wg.Wait()
}

// TestConfig_GlobalInitialization tests that Global() properly initializes
// the config on first access.
func TestConfig_GlobalInitialization(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()

	cfg := Global()
	if cfg == nil {
		t.Fatal("Global() returned nil")
	}
	if cfg.Server.BaseURL == "" {
		t.Error("Server base URL should not be empty")
	}
	if cfg.Retry.MaxAttempts != 10 {
		t.Errorf("Expected 10 retry attempts, got %d", cfg.Retry.MaxAttempts)
	}
}

// TestConfig_SetGlobalOverwrites tests that SetGlobal properly overwrites
// the existing global config.
func TestConfig_SetGlobalOverwrites(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()
	_ = Global()

	custom := Default()
	custom.Chat.DefaultModel = "custom-model"
	SetGlobal(custom)

	if got := Global().Chat.DefaultModel; got != "custom-model" {
		t.Errorf("Expected model 'custom-model', got '%s'", got)
	}
}

func TestConfig_Default(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "https://fabric-friclu.duckdns.org/api", cfg.Server.BaseURL)
	assert.Equal(t, 30, cfg.Server.RequestTimeoutSecs)
	assert.Equal(t, "openai", cfg.Chat.Vendor)
	assert.Equal(t, "obsidian_author", cfg.Chat.DefaultPattern)
	assert.Equal(t, 0.7, cfg.Chat.Temperature)
	assert.Equal(t, 1.0, cfg.Chat.TemperatureOverrides["o4-mini"])
	assert.Equal(t, 10, cfg.Retry.MaxAttempts)
	assert.Equal(t, 5, cfg.Retry.DelaySecs)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"bad base url", func(c *Config) { c.Server.BaseURL = "fabric.local" }, "server.base_url"},
		{"ftp base url", func(c *Config) { c.Server.BaseURL = "ftp://fabric.local" }, "server.base_url"},
		{"bad language", func(c *Config) { c.Chat.Language = "not a language" }, "chat.language"},
		{"temperature", func(c *Config) { c.Chat.Temperature = 2.5 }, "chat.temperature"},
		{"override", func(c *Config) { c.Chat.TemperatureOverrides["x"] = -1 }, "chat.temperature_overrides"},
		{"top p", func(c *Config) { c.Chat.TopP = 1.5 }, "chat.top_p"},
		{"unlisted model", func(c *Config) { c.Chat.DefaultModel = "gpt-2" }, "chat.default_model"},
		{"zero attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, "retry.max_attempts"},
		{"negative delay", func(c *Config) { c.Retry.DelaySecs = -1 }, "retry.delay_secs"},
		{"theme", func(c *Config) { c.UI.Theme = "neon" }, "ui.theme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)

			err := c.Validate()
			require.Error(t, err)

			var ve ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestConfig_ValidateAggregates(t *testing.T) {
	c := Default()
	c.Chat.TopP = 3
	c.Retry.MaxAttempts = -1
	c.UI.Theme = "neon"

	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat.top_p")
	assert.Contains(t, err.Error(), "retry.max_attempts")
	assert.Contains(t, err.Error(), "ui.theme")
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Server.BaseURL, cfg.Server.BaseURL)
}

func TestLoad_TOMLKeepsDefaultsForMissingKeys(t *testing.T) {
	dir := isolate(t)
	content := `
[server]
base_url = "http://localhost:8080/api/"

[chat]
default_model = "deepseek-reasoner"
fresh_session_per_retry = true

[retry]
delay_secs = 1
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080/api", cfg.Server.BaseURL, "trailing slash trimmed")
	assert.Equal(t, "deepseek-reasoner", cfg.Chat.DefaultModel)
	assert.True(t, cfg.Chat.FreshSessionPerRetry)
	assert.Equal(t, 1, cfg.Retry.DelaySecs)
	assert.Equal(t, 10, cfg.Retry.MaxAttempts)
	assert.Equal(t, "openai", cfg.Chat.Vendor)
}

func TestLoad_JSONFallback(t *testing.T) {
	dir := isolate(t)
	content := `{"chat": {"default_pattern": "summarize"}, "ui": {"theme": "dark"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(content), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "summarize", cfg.Chat.DefaultPattern)
	assert.Equal(t, "dark", cfg.UI.Theme)
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[retry]\nmax_attempts = 0\ndelay_secs = -4\n"), 0600))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retry.delay_secs")
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("FABRIC_UI_BASE_URL", "http://127.0.0.1:9999")
	t.Setenv("FABRIC_UI_MODEL", "deepseek-reasoner")
	t.Setenv("FABRIC_UI_RETRY_MAX_ATTEMPTS", "3")
	t.Setenv("FABRIC_UI_DEBUG", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9999", cfg.Server.BaseURL)
	assert.Equal(t, "deepseek-reasoner", cfg.Chat.DefaultModel)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.True(t, cfg.Log.Debug)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("FABRIC_UI_THEME=light\n"), 0600))
	t.Cleanup(func() { os.Unsetenv("FABRIC_UI_THEME") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "light", cfg.UI.Theme)
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	dir := isolate(t)

	cfg := Default()
	cfg.Chat.DefaultFile = "Work/Plan.md"
	cfg.Chat.TemperatureOverrides["claude-3-7-sonnet-latest"] = 0.2
	require.NoError(t, Save(cfg))

	info, err := os.Stat(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Work/Plan.md", loaded.Chat.DefaultFile)
	assert.Equal(t, 0.2, loaded.Chat.TemperatureOverrides["claude-3-7-sonnet-latest"])

	jsonPath := filepath.Join(dir, "other.json")
	require.NoError(t, SaveJSON(cfg, jsonPath))
	fromJSON, err := LoadFromPath(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, cfg.Chat.DefaultFile, fromJSON.Chat.DefaultFile)
}

func TestConfig_GetSet(t *testing.T) {
	c := Default()

	v, err := c.Get("chat.default_model")
	require.NoError(t, err)
	assert.Equal(t, "o4-mini", v)

	require.NoError(t, c.Set("retry.max_attempts", "4"))
	assert.Equal(t, 4, c.Retry.MaxAttempts)

	require.NoError(t, c.Set("chat.top_p", "0.9"))
	assert.Equal(t, 0.9, c.Chat.TopP)

	require.NoError(t, c.Set("log.debug", "true"))
	assert.True(t, c.Log.Debug)

	require.NoError(t, c.Set("chat.fresh-session-per-retry", true))
	assert.True(t, c.Chat.FreshSessionPerRetry)

	require.NoError(t, c.Set("chat.models", "a, b,,c"))
	assert.Equal(t, []string{"a", "b", "c"}, c.Chat.Models)

	require.NoError(t, c.Set("chat.temperature_overrides", "a=0.1,b=1"))
	assert.Equal(t, map[string]float64{"a": 0.1, "b": 1}, c.Chat.TemperatureOverrides)

	assert.Error(t, c.Set("retry.max_attempts", "many"))
	assert.Error(t, c.Set("chat.temperature_overrides", "novalue"))
	_, err = c.Get("chat.nope")
	assert.EqualError(t, err, "unknown field: chat.nope")
	_, err = c.Get("retry.max_attempts.deeper")
	assert.Error(t, err)
	_, err = c.Get("")
	assert.Error(t, err)
}

func TestGetAllKeys_Resolve(t *testing.T) {
	c := Default()
	for _, key := range GetAllKeys() {
		_, err := c.Get(key)
		assert.NoError(t, err, key)
	}
}

func TestConfig_Clone(t *testing.T) {
	c := Default()
	clone := c.Clone()
	clone.Chat.Models[0] = "changed"
	clone.Chat.TemperatureOverrides["o4-mini"] = 0

	assert.Equal(t, "o4-mini", c.Chat.Models[0])
	assert.Equal(t, 1.0, c.Chat.TemperatureOverrides["o4-mini"])
}

func TestConfig_DerivedSettings(t *testing.T) {
	c := Default()
	c.Retry.DelaySecs = 2
	c.Chat.FreshSessionPerRetry = true

	s := c.ChatSettings()
	assert.Equal(t, c.Chat.DefaultModel, s.DefaultModel)
	assert.True(t, s.FreshSessionPerRetry)
	assert.Equal(t, 1.0, s.TemperatureFor("o4-mini"))

	rc := c.RetryController(nil)
	assert.Equal(t, 10, rc.MaxAttempts)
	assert.Equal(t, 2*time.Second, rc.Delay)

	assert.Equal(t, c.Server.BaseURL, c.Client(nil).BaseURL())
}

func TestWatch_ReloadsOnChange(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, Save(Default()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 8)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, 20*time.Millisecond, func(cfg *Config, err error) {
			if err == nil {
				changes <- cfg
			}
		})
	}()

	updated := Default()
	updated.Chat.DefaultPattern = "summarize"

	// The watcher registers asynchronously; keep writing until it reports.
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-changes:
			assert.Equal(t, "summarize", cfg.Chat.DefaultPattern)
			cancel()
			require.NoError(t, <-done)
			return
		case <-ticker.C:
			require.NoError(t, SaveTOML(updated, path))
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
}
