// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for cola.
//
// Configuration lives in a TOML file, with a legacy JSON fallback, sensible
// defaults, COLA_* environment overrides, and validation.
//
// File locations (in order of precedence):
//   - the path given with --config or COLA_CONFIG
//   - ~/.cola/config.toml
//   - ~/.cola/config.json
//   - built-in defaults
//
// # Key Types
//
//   - Config: the complete configuration tree
//   - ValidationError / ValidationErrors: field-scoped validation failures
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    return err
//	}
//	client := backend.New(cfg.Server.BaseURL)
package config
