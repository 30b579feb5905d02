// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "github.com/fritzduchardt/fabric-ui/internal/fabric"

// DefaultPlaceholder replaces empty input so a bare submit runs the pattern
// on its own.
const DefaultPlaceholder = "Continue as instructed by the pattern."

// DefaultModels are offered when the backend does not list models.
var DefaultModels = []string{"o4-mini", "claude-3-7-sonnet-latest", "deepseek-reasoner"}

// Settings are the request parameters that do not change between
// submissions.
type Settings struct {
	Vendor       string
	Language     string
	ContextName  string
	StrategyName string

	Temperature          float64
	TemperatureOverrides map[string]float64
	TopP                 float64
	FrequencyPenalty     float64
	PresencePenalty      float64

	EmptyInputPlaceholder string
	// FreshSessionPerRetry starts a new backend session for every retry
	// instead of reusing the submission's session.
	FreshSessionPerRetry bool

	DefaultPattern  string
	FallbackPattern string
	DefaultModel    string
	Models          []string
	DefaultFile     string
}

// DefaultSettings returns the settings the backend is tuned for.
func DefaultSettings() Settings {
	return Settings{
		Vendor:                fabric.DefaultVendor,
		Language:              fabric.DefaultLanguage,
		ContextName:           fabric.DefaultContextName,
		Temperature:           0.7,
		TemperatureOverrides:  map[string]float64{"o4-mini": 1.0},
		TopP:                  1.0,
		EmptyInputPlaceholder: DefaultPlaceholder,
		DefaultPattern:        "obsidian_author",
		FallbackPattern:       "general",
		DefaultModel:          "o4-mini",
		Models:                append([]string(nil), DefaultModels...),
		DefaultFile:           "Health/Sleep.md",
	}
}

// TemperatureFor returns the sampling temperature for model.
func (s Settings) TemperatureFor(model string) float64 {
	if t, ok := s.TemperatureOverrides[model]; ok {
		return t
	}
	return s.Temperature
}
