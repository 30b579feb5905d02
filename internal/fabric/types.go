// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package fabric

// Fixed values the backend expects in every prompt.
const (
	DefaultVendor      = "openai"
	DefaultContextName = "general_context.md"
	DefaultLanguage    = "en"
)

// ChatRequest is one chat submission. It is built once per submission and
// not modified afterwards; all attempts send the same request.
type ChatRequest struct {
	SessionID   string
	UserInput   string
	Vendor      string
	Model       string
	PatternName string
	// ContextFile is an optional note attached as context.
	ContextFile *string

	ContextName  string
	StrategyName string

	Temperature      float64
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
	Language         string
}

// prompt is the wire form of a single prompt.
type prompt struct {
	UserInput    string `json:"userInput"`
	Vendor       string `json:"vendor"`
	Model        string `json:"model"`
	ContextName  string `json:"contextName"`
	PatternName  string `json:"patternName"`
	StrategyName string `json:"strategyName"`
	ObsidianFile string `json:"obsidianFile"`
	SessionName  string `json:"sessionName,omitempty"`
}

// chatPayload is the wire form of a POST /chat body.
type chatPayload struct {
	Prompts          []prompt `json:"prompts"`
	Language         string   `json:"language"`
	Temperature      float64  `json:"temperature"`
	TopP             float64  `json:"topP"`
	FrequencyPenalty float64  `json:"frequencyPenalty"`
	PresencePenalty  float64  `json:"presencePenalty"`
}

func (r ChatRequest) payload() chatPayload {
	file := ""
	if r.ContextFile != nil {
		file = *r.ContextFile
	}
	vendor := r.Vendor
	if vendor == "" {
		vendor = DefaultVendor
	}
	contextName := r.ContextName
	if contextName == "" {
		contextName = DefaultContextName
	}
	language := r.Language
	if language == "" {
		language = DefaultLanguage
	}

	return chatPayload{
		Prompts: []prompt{{
			UserInput:    r.UserInput,
			Vendor:       vendor,
			Model:        r.Model,
			ContextName:  contextName,
			PatternName:  r.PatternName,
			StrategyName: r.StrategyName,
			ObsidianFile: file,
			SessionName:  r.SessionID,
		}},
		Language:         language,
		Temperature:      r.Temperature,
		TopP:             r.TopP,
		FrequencyPenalty: r.FrequencyPenalty,
		PresencePenalty:  r.PresencePenalty,
	}
}
