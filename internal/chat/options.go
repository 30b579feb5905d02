// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// NoFile is the file choice meaning "attach nothing".
const NoFile = "(no file)"

// Selection is what the user has picked for the next submission.
type Selection struct {
	Pattern string
	Model   string
	// ContextFile is empty or NoFile for no attachment.
	ContextFile string
}

// contextFile returns the file to attach, nil for none.
func (s Selection) contextFile() *string {
	if s.ContextFile == "" || s.ContextFile == NoFile {
		return nil
	}
	f := s.ContextFile
	return &f
}

// Choices is one selectable list with its default.
type Choices struct {
	Items   []string
	Default string
}

// Filter returns the items containing query, ignoring case. An empty query
// returns every item.
func (c Choices) Filter(query string) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return slices.Clone(c.Items)
	}
	var out []string
	for _, item := range c.Items {
		if strings.Contains(strings.ToLower(item), q) {
			out = append(out, item)
		}
	}
	return out
}

// Match resolves query to one item: an exact match ignoring case wins,
// otherwise the first filtered item.
func (c Choices) Match(query string) (string, bool) {
	q := strings.TrimSpace(query)
	for _, item := range c.Items {
		if strings.EqualFold(item, q) {
			return item, true
		}
	}
	hits := c.Filter(q)
	if len(hits) == 0 {
		return "", false
	}
	return hits[0], true
}

// Options are the lists the UI can pick from.
type Options struct {
	Patterns Choices
	Models   Choices
	Files    Choices
}

// DefaultSelection returns the defaults of every list.
func (o Options) DefaultSelection() Selection {
	return Selection{
		Pattern:     o.Patterns.Default,
		Model:       o.Models.Default,
		ContextFile: o.Files.Default,
	}
}

// Catalog lists what the backend offers.
type Catalog interface {
	PatternNames(ctx context.Context) ([]string, error)
	ModelNames(ctx context.Context) ([]string, error)
	ObsidianFiles(ctx context.Context) ([]string, error)
}

// LoadOptions fetches all lists from cat. A list that fails to load falls
// back to what settings provide and the failure is included in the returned
// error; the Options are usable either way.
func LoadOptions(ctx context.Context, cat Catalog, s Settings) (Options, error) {
	var errs *multierror.Error
	var opts Options

	patterns, err := cat.PatternNames(ctx)
	if err != nil {
		errs = multierror.Append(errs, fmt.Errorf("loading patterns: %w", err))
	}
	opts.Patterns = Choices{Items: patterns, Default: pickDefault(patterns, s.DefaultPattern, s.FallbackPattern)}

	models, err := cat.ModelNames(ctx)
	if err != nil || len(models) == 0 {
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("loading models: %w", err))
		}
		models = slices.Clone(s.Models)
	}
	modelDefault := s.DefaultModel
	if !slices.Contains(models, modelDefault) && len(models) > 0 {
		modelDefault = models[0]
	}
	opts.Models = Choices{Items: models, Default: modelDefault}

	files, err := cat.ObsidianFiles(ctx)
	if err != nil {
		errs = multierror.Append(errs, fmt.Errorf("loading files: %w", err))
	}
	opts.Files = Choices{
		Items:   append([]string{NoFile}, files...),
		Default: pickDefault(files, s.DefaultFile, NoFile),
	}

	return opts, errs.ErrorOrNil()
}

// StaticOptions builds Options from settings alone.
func StaticOptions(s Settings) Options {
	patterns := []string{s.FallbackPattern}
	if s.DefaultPattern != "" && s.DefaultPattern != s.FallbackPattern {
		patterns = append([]string{s.DefaultPattern}, patterns...)
	}
	return Options{
		Patterns: Choices{Items: patterns, Default: pickDefault(patterns, s.DefaultPattern, s.FallbackPattern)},
		Models:   Choices{Items: slices.Clone(s.Models), Default: s.DefaultModel},
		Files:    Choices{Items: []string{NoFile}, Default: NoFile},
	}
}

// pickDefault returns preferred if items holds it, fallback otherwise.
func pickDefault(items []string, preferred, fallback string) string {
	if preferred != "" && slices.Contains(items, preferred) {
		return preferred
	}
	return fallback
}
