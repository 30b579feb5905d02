// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v6"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/fritzduchardt/fabric-ui/internal/chat"
	"github.com/fritzduchardt/fabric-ui/internal/fabric"
	"github.com/fritzduchardt/fabric-ui/internal/retry"
	"github.com/fritzduchardt/fabric-ui/internal/util"
)

// EnvConfigDir overrides the configuration directory.
const EnvConfigDir = "FABRIC_UI_CONFIG_DIR"

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete fabric-ui configuration.
type Config struct {
	Server  ServerConfig  `toml:"server" json:"server"`
	Chat    ChatConfig    `toml:"chat" json:"chat"`
	Retry   RetryConfig   `toml:"retry" json:"retry"`
	Log     LogConfig     `toml:"log" json:"log"`
	Metrics MetricsConfig `toml:"metrics" json:"metrics"`
	UI      UIConfig      `toml:"ui" json:"ui"`
}

// ServerConfig locates the fabric backend.
type ServerConfig struct {
	// BaseURL is the API root; /chat, /patterns/names etc. hang below it.
	BaseURL string `toml:"base_url" json:"base_url" env:"FABRIC_UI_BASE_URL"`
	// RequestTimeoutSecs bounds the non-streaming list requests.
	RequestTimeoutSecs int `toml:"request_timeout_secs" json:"request_timeout_secs" env:"FABRIC_UI_REQUEST_TIMEOUT_SECS"`
}

// ChatConfig holds the request parameters and selection defaults.
type ChatConfig struct {
	Vendor          string   `toml:"vendor" json:"vendor" env:"FABRIC_UI_VENDOR"`
	Language        string   `toml:"language" json:"language" env:"FABRIC_UI_LANGUAGE"`
	ContextName     string   `toml:"context_name" json:"context_name" env:"FABRIC_UI_CONTEXT_NAME"`
	DefaultPattern  string   `toml:"default_pattern" json:"default_pattern" env:"FABRIC_UI_PATTERN"`
	FallbackPattern string   `toml:"fallback_pattern" json:"fallback_pattern"`
	DefaultModel    string   `toml:"default_model" json:"default_model" env:"FABRIC_UI_MODEL"`
	Models          []string `toml:"models" json:"models" env:"FABRIC_UI_MODELS" envSeparator:","`
	DefaultFile     string   `toml:"default_file" json:"default_file" env:"FABRIC_UI_FILE"`

	Temperature          float64            `toml:"temperature" json:"temperature" env:"FABRIC_UI_TEMPERATURE"`
	TemperatureOverrides map[string]float64 `toml:"temperature_overrides" json:"temperature_overrides"`
	TopP                 float64            `toml:"top_p" json:"top_p"`
	FrequencyPenalty     float64            `toml:"frequency_penalty" json:"frequency_penalty"`
	PresencePenalty      float64            `toml:"presence_penalty" json:"presence_penalty"`

	EmptyInputPlaceholder string `toml:"empty_input_placeholder" json:"empty_input_placeholder"`
	FreshSessionPerRetry  bool   `toml:"fresh_session_per_retry" json:"fresh_session_per_retry" env:"FABRIC_UI_FRESH_SESSION_PER_RETRY"`
}

// RetryConfig controls how failed attempts are repeated.
type RetryConfig struct {
	MaxAttempts int `toml:"max_attempts" json:"max_attempts" env:"FABRIC_UI_RETRY_MAX_ATTEMPTS"`
	DelaySecs   int `toml:"delay_secs" json:"delay_secs" env:"FABRIC_UI_RETRY_DELAY_SECS"`
}

// LogConfig controls the zap logger and its rotated file.
type LogConfig struct {
	Debug bool `toml:"debug" json:"debug" env:"FABRIC_UI_DEBUG"`
	// File enables file logging; empty logs to stderr only (or nowhere in the TUI).
	File       string `toml:"file" json:"file" env:"FABRIC_UI_LOG_FILE"`
	MaxSizeMB  int    `toml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" json:"max_age_days"`
}

// MetricsConfig enables the Prometheus endpoint.
type MetricsConfig struct {
	// ListenAddr is empty to disable the server.
	ListenAddr string `toml:"listen_addr" json:"listen_addr" env:"FABRIC_UI_METRICS_ADDR"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the glamour style: "auto", "dark", "light", "notty"
	Theme    string `toml:"theme" json:"theme" env:"FABRIC_UI_THEME"`
	WordWrap int    `toml:"word_wrap" json:"word_wrap"`
	// Markdown renders answers through glamour; false prints raw text.
	Markdown bool `toml:"markdown" json:"markdown"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	s := chat.DefaultSettings()
	return &Config{
		Server: ServerConfig{
			BaseURL:            fabric.DefaultBaseURL,
			RequestTimeoutSecs: int(fabric.DefaultTimeout / time.Second),
		},
		Chat: ChatConfig{
			Vendor:                s.Vendor,
			Language:              s.Language,
			ContextName:           s.ContextName,
			DefaultPattern:        s.DefaultPattern,
			FallbackPattern:       s.FallbackPattern,
			DefaultModel:          s.DefaultModel,
			Models:                s.Models,
			DefaultFile:           s.DefaultFile,
			Temperature:           s.Temperature,
			TemperatureOverrides:  s.TemperatureOverrides,
			TopP:                  s.TopP,
			EmptyInputPlaceholder: s.EmptyInputPlaceholder,
		},
		Retry: RetryConfig{
			MaxAttempts: retry.DefaultMaxAttempts,
			DelaySecs:   int(retry.DefaultDelay / time.Second),
		},
		Log: LogConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		UI: UIConfig{
			Theme:    "auto",
			WordWrap: 100,
			Markdown: true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the fabric-ui configuration directory path.
func ConfigDir() (string, error) {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".fabric-ui"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// HistoryPath returns the REPL history file.
func HistoryPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config directory. TOML wins over JSON;
// with neither present the defaults are used. .env files and FABRIC_UI_*
// variables are applied last.
func Load() (*Config, error) {
	for _, pathFn := range []func() (string, error){ConfigPathTOML, ConfigPathJSON} {
		path, err := pathFn()
		if err != nil {
			continue
		}
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}

	cfg := Default()
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file into cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file into cfg.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation. Keys missing from the file keep their defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) finish() error {
	if err := loadDotEnv(); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	if err := c.ApplyEnvOverrides(); err != nil {
		return err
	}
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// loadDotEnv loads .env from the working directory and the config
// directory. Variables already set in the environment win.
func loadDotEnv() error {
	files := []string{".env"}
	if dir, err := ConfigDir(); err == nil {
		files = append(files, filepath.Join(dir, ".env"))
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("%s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnvOverrides applies FABRIC_UI_* environment variables:
//   - FABRIC_UI_BASE_URL, FABRIC_UI_REQUEST_TIMEOUT_SECS
//   - FABRIC_UI_PATTERN, FABRIC_UI_MODEL, FABRIC_UI_MODELS, FABRIC_UI_FILE
//   - FABRIC_UI_RETRY_MAX_ATTEMPTS, FABRIC_UI_RETRY_DELAY_SECS
//   - FABRIC_UI_DEBUG, FABRIC_UI_LOG_FILE, FABRIC_UI_METRICS_ADDR, FABRIC_UI_THEME
func (c *Config) ApplyEnvOverrides() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return nil
}

// SetDefaults fills zero values that would make the client unusable.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Server.BaseURL == "" {
		c.Server.BaseURL = d.Server.BaseURL
	}
	c.Server.BaseURL = strings.TrimRight(c.Server.BaseURL, "/")
	if c.Server.RequestTimeoutSecs == 0 {
		c.Server.RequestTimeoutSecs = d.Server.RequestTimeoutSecs
	}

	if c.Chat.Vendor == "" {
		c.Chat.Vendor = d.Chat.Vendor
	}
	if c.Chat.Language == "" {
		c.Chat.Language = d.Chat.Language
	}
	if c.Chat.ContextName == "" {
		c.Chat.ContextName = d.Chat.ContextName
	}
	if c.Chat.FallbackPattern == "" {
		c.Chat.FallbackPattern = d.Chat.FallbackPattern
	}
	if c.Chat.DefaultModel == "" {
		c.Chat.DefaultModel = d.Chat.DefaultModel
	}
	if len(c.Chat.Models) == 0 {
		c.Chat.Models = d.Chat.Models
	}
	if c.Chat.EmptyInputPlaceholder == "" {
		c.Chat.EmptyInputPlaceholder = d.Chat.EmptyInputPlaceholder
	}

	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = d.Retry.MaxAttempts
	}

	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var sb strings.Builder
	sb.WriteString("# fabric-ui configuration file\n")
	sb.WriteString("# FABRIC_UI_* environment variables override these values.\n\n")

	if err := toml.NewEncoder(&sb).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file with 0600 permissions.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errs *multierror.Error
	fail := func(field, format string, args ...any) {
		errs = multierror.Append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if u, err := url.Parse(c.Server.BaseURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		fail("server.base_url", "invalid URL '%s', must be http(s)://host[/path]", c.Server.BaseURL)
	}
	if c.Server.RequestTimeoutSecs < 0 {
		fail("server.request_timeout_secs", "must not be negative")
	}

	if _, err := language.Parse(c.Chat.Language); err != nil {
		fail("chat.language", "invalid language tag '%s'", c.Chat.Language)
	}
	if !validSampling(c.Chat.Temperature, 0, 2) {
		fail("chat.temperature", "%.2f out of range 0-2", c.Chat.Temperature)
	}
	for model, t := range c.Chat.TemperatureOverrides {
		if !validSampling(t, 0, 2) {
			fail("chat.temperature_overrides", "%s: %.2f out of range 0-2", model, t)
		}
	}
	if !validSampling(c.Chat.TopP, 0, 1) {
		fail("chat.top_p", "%.2f out of range 0-1", c.Chat.TopP)
	}
	if !validSampling(c.Chat.FrequencyPenalty, -2, 2) {
		fail("chat.frequency_penalty", "%.2f out of range -2-2", c.Chat.FrequencyPenalty)
	}
	if !validSampling(c.Chat.PresencePenalty, -2, 2) {
		fail("chat.presence_penalty", "%.2f out of range -2-2", c.Chat.PresencePenalty)
	}
	if len(c.Chat.Models) > 0 && !slices.Contains(c.Chat.Models, c.Chat.DefaultModel) {
		fail("chat.default_model", "'%s' is not listed in chat.models", c.Chat.DefaultModel)
	}

	if c.Retry.MaxAttempts < 1 || c.Retry.MaxAttempts > 100 {
		fail("retry.max_attempts", "%d out of range 1-100", c.Retry.MaxAttempts)
	}
	if c.Retry.DelaySecs < 0 || c.Retry.DelaySecs > 600 {
		fail("retry.delay_secs", "%d out of range 0-600", c.Retry.DelaySecs)
	}

	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		fail("log", "rotation limits must not be negative")
	}

	validThemes := map[string]bool{"auto": true, "dark": true, "light": true, "notty": true, "dracula": true, "pink": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		fail("ui.theme", "invalid theme '%s', must be one of: auto, dark, light, notty, dracula, pink", c.UI.Theme)
	}
	if c.UI.WordWrap < 0 {
		fail("ui.word_wrap", "must not be negative")
	}

	return errs.ErrorOrNil()
}

func validSampling(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}

// =============================================================================
// DERIVED SETTINGS
// =============================================================================

// ChatSettings maps the chat section onto the orchestrator settings.
func (c *Config) ChatSettings() chat.Settings {
	overrides := make(map[string]float64, len(c.Chat.TemperatureOverrides))
	for k, v := range c.Chat.TemperatureOverrides {
		overrides[k] = v
	}
	return chat.Settings{
		Vendor:                c.Chat.Vendor,
		Language:              c.Chat.Language,
		ContextName:           c.Chat.ContextName,
		Temperature:           c.Chat.Temperature,
		TemperatureOverrides:  overrides,
		TopP:                  c.Chat.TopP,
		FrequencyPenalty:      c.Chat.FrequencyPenalty,
		PresencePenalty:       c.Chat.PresencePenalty,
		EmptyInputPlaceholder: c.Chat.EmptyInputPlaceholder,
		FreshSessionPerRetry:  c.Chat.FreshSessionPerRetry,
		DefaultPattern:        c.Chat.DefaultPattern,
		FallbackPattern:       c.Chat.FallbackPattern,
		DefaultModel:          c.Chat.DefaultModel,
		Models:                slices.Clone(c.Chat.Models),
		DefaultFile:           c.Chat.DefaultFile,
	}
}

// RetryController builds the controller for the retry section.
func (c *Config) RetryController(logger *zap.Logger) *retry.Controller {
	rc := retry.New(logger)
	rc.MaxAttempts = c.Retry.MaxAttempts
	rc.Delay = time.Duration(c.Retry.DelaySecs) * time.Second
	return rc
}

// Client builds the backend client for the server section.
func (c *Config) Client(logger *zap.Logger) *fabric.Client {
	return fabric.NewClient(c.Server.BaseURL).
		WithTimeout(time.Duration(c.Server.RequestTimeoutSecs) * time.Second).
		WithLogger(logger)
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "chat.default_model").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g., "retry.max_attempts").
// String values are converted to the field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	if err := setFieldValue(field, value); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue converts value to the field's type and assigns it. Lists
// are comma separated; maps are "key=value" pairs.
func setFieldValue(field reflect.Value, value interface{}) error {
	switch field.Kind() {
	case reflect.String:
		s, err := cast.ToStringE(value)
		if err != nil {
			return err
		}
		field.SetString(s)
	case reflect.Int, reflect.Int64:
		i, err := cast.ToInt64E(value)
		if err != nil {
			return fmt.Errorf("invalid integer value: %w", err)
		}
		field.SetInt(i)
	case reflect.Float64:
		f, err := cast.ToFloat64E(value)
		if err != nil {
			return fmt.Errorf("invalid float value: %w", err)
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := cast.ToBoolE(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value: %w", err)
		}
		field.SetBool(b)
	case reflect.Slice:
		items, err := toStringSlice(value)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(items))
	case reflect.Map:
		m, err := toFloatMap(value)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(m))
	default:
		return fmt.Errorf("cannot assign %T to %s", value, field.Type())
	}
	return nil
}

func toStringSlice(value interface{}) ([]string, error) {
	if s, ok := value.(string); ok {
		var out []string
		for _, item := range strings.Split(s, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		return out, nil
	}
	return cast.ToStringSliceE(value)
}

func toFloatMap(value interface{}) (map[string]float64, error) {
	out := make(map[string]float64)
	if s, ok := value.(string); ok {
		for _, pair := range strings.Split(s, ",") {
			if pair = strings.TrimSpace(pair); pair == "" {
				continue
			}
			k, v, found := strings.Cut(pair, "=")
			if !found {
				return nil, fmt.Errorf("invalid pair '%s', want key=value", pair)
			}
			f, err := cast.ToFloat64E(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("invalid float value for %s: %w", k, err)
			}
			out[strings.TrimSpace(k)] = f
		}
		return out, nil
	}
	m, err := cast.ToStringMapE(value)
	if err != nil {
		return nil, err
	}
	for k, v := range m {
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return nil, fmt.Errorf("invalid float value for %s: %w", k, err)
		}
		out[k] = f
	}
	return out, nil
}

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"server.base_url",
		"server.request_timeout_secs",
		"chat.vendor",
		"chat.language",
		"chat.context_name",
		"chat.default_pattern",
		"chat.fallback_pattern",
		"chat.default_model",
		"chat.models",
		"chat.default_file",
		"chat.temperature",
		"chat.temperature_overrides",
		"chat.top_p",
		"chat.frequency_penalty",
		"chat.presence_penalty",
		"chat.empty_input_placeholder",
		"chat.fresh_session_per_retry",
		"retry.max_attempts",
		"retry.delay_secs",
		"log.debug",
		"log.file",
		"log.max_size_mb",
		"log.max_backups",
		"log.max_age_days",
		"metrics.listen_addr",
		"ui.theme",
		"ui.word_wrap",
		"ui.markdown",
	}
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Chat.Models = slices.Clone(c.Chat.Models)
	if c.Chat.TemperatureOverrides != nil {
		clone.Chat.TemperatureOverrides = make(map[string]float64, len(c.Chat.TemperatureOverrides))
		for k, v := range c.Chat.TemperatureOverrides {
			clone.Chat.TemperatureOverrides[k] = v
		}
	}
	return &clone
}

// String returns the config as TOML.
func (c *Config) String() string {
	var sb strings.Builder
	if err := toml.NewEncoder(&sb).Encode(c); err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return sb.String()
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	SetGlobal(cfg)
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
