// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/cola-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete cola configuration.
type Config struct {
	Server ServerConfig `toml:"server" json:"server"`
	Chat   ChatConfig   `toml:"chat" json:"chat"`
	UI     UIConfig     `toml:"ui" json:"ui"`
	Upload UploadConfig `toml:"upload" json:"upload"`
	Log    LogConfig    `toml:"log" json:"log"`
}

// ServerConfig describes how to reach the assistant backend.
type ServerConfig struct {
	// BaseURL is the backend root, e.g. http://127.0.0.1:5000
	BaseURL string `toml:"base_url" json:"base_url"`
	// Cookie is sent verbatim as the Cookie header (session login is done elsewhere).
	Cookie string `toml:"cookie" json:"cookie"`
	// RequestTimeout bounds non-streaming requests. The /ask stream has no timeout.
	RequestTimeout time.Duration `toml:"request_timeout" json:"request_timeout"`
	// UploadPaths are tried in order; a refused upload moves on to the next one.
	UploadPaths []string `toml:"upload_paths" json:"upload_paths"`
}

// ChatConfig controls conversation behaviour.
type ChatConfig struct {
	// PlaceholderPrefix prefixes the local title given to freshly created threads.
	PlaceholderPrefix string `toml:"placeholder_prefix" json:"placeholder_prefix"`
	// HistoryReloadDelay is how long to wait after a finished answer before
	// reloading the authoritative history.
	HistoryReloadDelay time.Duration `toml:"history_reload_delay" json:"history_reload_delay"`
	// GenerateTitles requests a server-side title after the first answer.
	GenerateTitles bool `toml:"generate_titles" json:"generate_titles"`
}

// UIConfig contains terminal UI settings.
type UIConfig struct {
	Theme string `toml:"theme" json:"theme"`
	// TimezoneOffset is the whole-hour UTC offset used for displayed times.
	TimezoneOffset int  `toml:"timezone_offset" json:"timezone_offset"`
	WordWrap       int  `toml:"word_wrap" json:"word_wrap"`
	ShowSegments   bool `toml:"show_segments" json:"show_segments"`
}

// UploadConfig controls uploads and the watched folder.
type UploadConfig struct {
	WatchDir      string        `toml:"watch_dir" json:"watch_dir"`
	LedgerPath    string        `toml:"ledger_path" json:"ledger_path"`
	RatePerSecond float64       `toml:"rate_per_second" json:"rate_per_second"`
	Burst         int           `toml:"burst" json:"burst"`
	Debounce      time.Duration `toml:"debounce" json:"debounce"`
	MaxFileSizeMB int           `toml:"max_file_size_mb" json:"max_file_size_mb"`
}

// LogConfig controls the zerolog/lumberjack log sink.
type LogConfig struct {
	Level      string `toml:"level" json:"level"`
	File       string `toml:"file" json:"file"`
	MaxSizeMB  int    `toml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" json:"max_age_days"`
}

// Default returns a Config with built-in defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL:        "http://127.0.0.1:5000",
			RequestTimeout: 60 * time.Second,
			UploadPaths:    []string{"/upload", "/api/upload"},
		},
		Chat: ChatConfig{
			PlaceholderPrefix:  "对话#",
			HistoryReloadDelay: 300 * time.Millisecond,
			GenerateTitles:     true,
		},
		UI: UIConfig{
			Theme:          "dark",
			TimezoneOffset: 8,
			WordWrap:       100,
			ShowSegments:   true,
		},
		Upload: UploadConfig{
			RatePerSecond: 2,
			Burst:         4,
			Debounce:      500 * time.Millisecond,
			MaxFileSizeMB: 50,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the cola configuration directory.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".cola"), nil
}

// ConfigPathTOML returns the default TOML config path.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the legacy JSON config path.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// ensureSecurePermissions tightens a config file to 0600; it may hold a session cookie.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load resolves the config file and loads it. An explicit path (or
// COLA_CONFIG) must exist; otherwise the default TOML then JSON files are
// tried, falling back to defaults. Environment overrides are applied last.
func Load(explicit string) (*Config, error) {
	if explicit == "" {
		explicit = os.Getenv("COLA_CONFIG")
	}
	if explicit != "" {
		return LoadFrom(explicit)
	}

	if path, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFrom(path)
		}
	}
	if path, err := ConfigPathJSON(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFrom(path)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFrom loads a specific file. The format follows the extension; anything
// other than .json is read as TOML.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	var err error
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = loadJSON(cfg, path)
	} else {
		err = loadTOML(cfg, path)
	}
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func loadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to parse TOML config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

func loadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON config %s: %w", path, err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse JSON config %s: %w", path, err)
	}
	return nil
}

// fillDefaults restores zero values a partial file left behind.
func (c *Config) fillDefaults() {
	d := Default()
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = d.Server.BaseURL
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = d.Server.RequestTimeout
	}
	if len(c.Server.UploadPaths) == 0 {
		c.Server.UploadPaths = d.Server.UploadPaths
	}
	if c.Chat.PlaceholderPrefix == "" {
		c.Chat.PlaceholderPrefix = d.Chat.PlaceholderPrefix
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	if c.UI.WordWrap == 0 {
		c.UI.WordWrap = d.UI.WordWrap
	}
	if c.Upload.RatePerSecond == 0 {
		c.Upload.RatePerSecond = d.Upload.RatePerSecond
	}
	if c.Upload.Burst == 0 {
		c.Upload.Burst = d.Upload.Burst
	}
	if c.Upload.Debounce == 0 {
		c.Upload.Debounce = d.Upload.Debounce
	}
	if c.Upload.MaxFileSizeMB == 0 {
		c.Upload.MaxFileSizeMB = d.Upload.MaxFileSizeMB
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = d.Log.MaxSizeMB
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes cfg as TOML to path (the default path when empty), atomically
// and with 0600 permissions.
func Save(cfg *Config, path string) error {
	if path == "" {
		var err error
		if path, err = ConfigPathTOML(); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	buf.WriteString("# cola configuration file\n")
	buf.WriteString("# Generated by `cola config init` - edit with care\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// String renders the configuration as TOML with the cookie redacted.
func (c *Config) String() string {
	redacted := *c
	if redacted.Server.Cookie != "" {
		redacted.Server.Cookie = "<redacted>"
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(redacted); err != nil {
		return fmt.Sprintf("<config encode error: %v>", err)
	}
	return buf.String()
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError is a single field-scoped configuration problem.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every problem found by Validate.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var validLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true, "disabled": true,
}

var validThemes = map[string]bool{"dark": true, "light": true, "auto": true}

// Validate checks the configuration and returns ValidationErrors when invalid.
func (c *Config) Validate() error {
	var errs ValidationErrors

	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "server.base_url",
			Message: fmt.Sprintf("must be an absolute http(s) URL, got %q", c.Server.BaseURL),
		})
	}
	if c.Server.RequestTimeout < 0 {
		errs = append(errs, ValidationError{Field: "server.request_timeout", Message: "must not be negative"})
	}
	for i, p := range c.Server.UploadPaths {
		if !strings.HasPrefix(p, "/") {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("server.upload_paths[%d]", i),
				Message: fmt.Sprintf("must start with '/', got %q", p),
			})
		}
	}

	if strings.TrimSpace(c.Chat.PlaceholderPrefix) == "" {
		errs = append(errs, ValidationError{Field: "chat.placeholder_prefix", Message: "must not be empty"})
	}
	if c.Chat.HistoryReloadDelay < 0 {
		errs = append(errs, ValidationError{Field: "chat.history_reload_delay", Message: "must not be negative"})
	}

	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme %q, must be one of: dark, light, auto", c.UI.Theme),
		})
	}
	if c.UI.TimezoneOffset < -12 || c.UI.TimezoneOffset > 14 {
		errs = append(errs, ValidationError{
			Field:   "ui.timezone_offset",
			Message: fmt.Sprintf("must be between -12 and 14, got %d", c.UI.TimezoneOffset),
		})
	}
	if c.UI.WordWrap < 20 {
		errs = append(errs, ValidationError{Field: "ui.word_wrap", Message: "must be at least 20"})
	}

	if c.Upload.RatePerSecond <= 0 {
		errs = append(errs, ValidationError{Field: "upload.rate_per_second", Message: "must be positive"})
	}
	if c.Upload.Burst < 1 {
		errs = append(errs, ValidationError{Field: "upload.burst", Message: "must be at least 1"})
	}
	if c.Upload.MaxFileSizeMB < 1 {
		errs = append(errs, ValidationError{Field: "upload.max_file_size_mb", Message: "must be at least 1"})
	}

	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level %q", c.Log.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies COLA_* environment variables:
//   - COLA_SERVER: server.base_url
//   - COLA_COOKIE: server.cookie
//   - COLA_TIMEOUT: server.request_timeout (Go duration)
//   - COLA_TZ_OFFSET: ui.timezone_offset
//   - COLA_THEME: ui.theme
//   - COLA_WATCH_DIR: upload.watch_dir
//   - COLA_LOG_LEVEL: log.level
//   - COLA_LOG_FILE: log.file
//
// Unparseable numeric values are ignored.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("COLA_SERVER"); v != "" {
		c.Server.BaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("COLA_COOKIE"); v != "" {
		c.Server.Cookie = v
	}
	if v := os.Getenv("COLA_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Server.RequestTimeout = d
		}
	}
	if v := os.Getenv("COLA_TZ_OFFSET"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.UI.TimezoneOffset = n
		}
	}
	if v := os.Getenv("COLA_THEME"); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv("COLA_WATCH_DIR"); v != "" {
		c.Upload.WatchDir = v
	}
	if v := os.Getenv("COLA_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("COLA_LOG_FILE"); v != "" {
		c.Log.File = v
	}
}

// LedgerPath returns the upload ledger location, defaulting under ConfigDir.
func (c *Config) LedgerPath() (string, error) {
	if c.Upload.LedgerPath != "" {
		return c.Upload.LedgerPath, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "uploads.db"), nil
}

// LogPath returns the log file location, defaulting under ConfigDir.
func (c *Config) LogPath() (string, error) {
	if c.Log.File != "" {
		return c.Log.File, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cola.log"), nil
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the process-wide configuration, loading it on first access.
// Load errors fall back to defaults.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load("")
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

// SetGlobal replaces the process-wide configuration.
func SetGlobal(cfg *Config) {
	globalConfigOnce.Do(func() {})
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting clears the process-wide configuration.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
