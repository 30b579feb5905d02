// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for fabric-ui.
//
// Supports both TOML and JSON configuration formats, with defaults,
// .env files, environment variable overrides, validation and live reload.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - ServerConfig: fabric backend location and timeouts
//   - ChatConfig: request parameters and selection defaults
//   - RetryConfig: attempt limit and delay
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (FABRIC_UI_*), including those from .env files
//   - ~/.fabric-ui/config.toml
//   - ~/.fabric-ui/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	orch := chat.NewOrchestrator(cfg.Client(logger), sink).
//	    WithSettings(cfg.ChatSettings()).
//	    WithRetry(cfg.RetryController(logger))
package config
