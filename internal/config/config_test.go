// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, 300*time.Millisecond, cfg.Chat.HistoryReloadDelay)
	require.Equal(t, 8, cfg.UI.TimezoneOffset)
	require.Equal(t, "对话#", cfg.Chat.PlaceholderPrefix)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := Default()
	cfg.Server.BaseURL = "https://kb.example.com"
	cfg.Server.Cookie = "session=abc"
	cfg.Chat.HistoryReloadDelay = time.Second
	cfg.UI.TimezoneOffset = 0
	require.NoError(t, Save(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	require.Equal(t, "https://kb.example.com", loaded.Server.BaseURL)
	require.Equal(t, "session=abc", loaded.Server.Cookie)
	require.Equal(t, time.Second, loaded.Chat.HistoryReloadDelay)
	require.Equal(t, 0, loaded.UI.TimezoneOffset)
}

func TestLoadFrom_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nbase_url = \"http://localhost:9000\"\n"), 0600))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	require.Equal(t, "http://localhost:9000", cfg.Server.BaseURL)
	require.Equal(t, Default().Server.UploadPaths, cfg.Server.UploadPaths)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFrom_UnknownKeyRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nbase_uri = \"http://x\"\n"), 0600))

	_, err := LoadFrom(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "server.base_uri")
}

func TestLoadFrom_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"ui":{"theme":"light"}}`), 0600))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	require.Equal(t, "light", cfg.UI.Theme)
	require.Equal(t, Default().Server.BaseURL, cfg.Server.BaseURL)
}

func TestLoadFrom_FixesPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[ui]\ntheme = \"dark\"\n"), 0644))

	_, err := LoadFrom(path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Server.BaseURL = "ftp://nope"
	cfg.Server.UploadPaths = []string{"upload"}
	cfg.UI.Theme = "neon"
	cfg.Log.Level = "loud"

	err := cfg.Validate()
	require.Error(t, err)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	fields := make([]string, 0, len(verrs))
	for _, v := range verrs {
		fields = append(fields, v.Field)
	}
	require.ElementsMatch(t, []string{"server.base_url", "server.upload_paths[0]", "ui.theme", "log.level"}, fields)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("COLA_SERVER", "http://override:8080/")
	t.Setenv("COLA_COOKIE", "sid=1")
	t.Setenv("COLA_TIMEOUT", "5s")
	t.Setenv("COLA_TZ_OFFSET", "-3")
	t.Setenv("COLA_LOG_LEVEL", "debug")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	require.Equal(t, "http://override:8080", cfg.Server.BaseURL)
	require.Equal(t, "sid=1", cfg.Server.Cookie)
	require.Equal(t, 5*time.Second, cfg.Server.RequestTimeout)
	require.Equal(t, -3, cfg.UI.TimezoneOffset)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestApplyEnvOverrides_IgnoresGarbage(t *testing.T) {
	t.Setenv("COLA_TIMEOUT", "soon")
	t.Setenv("COLA_TZ_OFFSET", "east")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	require.Equal(t, Default().Server.RequestTimeout, cfg.Server.RequestTimeout)
	require.Equal(t, 8, cfg.UI.TimezoneOffset)
}

func TestLoad_ExplicitPathFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte("[ui]\nword_wrap = 72\n"), 0600))
	t.Setenv("COLA_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 72, cfg.UI.WordWrap)
}

func TestString_RedactsCookie(t *testing.T) {
	cfg := Default()
	cfg.Server.Cookie = "session=secret"
	out := cfg.String()
	require.False(t, strings.Contains(out, "secret"))
	require.Contains(t, out, "<redacted>")
	require.Equal(t, "session=secret", cfg.Server.Cookie)
}

// TestConfig_ConcurrentAccess checks Global and SetGlobal under the race detector.
func TestConfig_ConcurrentAccess(t *testing.T) {
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()
	SetGlobal(Default())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c := Default()
			c.UI.Theme = "light"
			SetGlobal(c)
		}()
		go func() {
			defer wg.Done()
			require.NotNil(t, Global())
		}()
	}
	wg.Wait()
}
