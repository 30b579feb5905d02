// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package fabric

import (
	"context"
	stdjson "encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatStream_SendsPayload(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, stdjson.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"content\":\"hi\"}\n\ndata: [DONE]\n\n")
	}))
	defer srv.Close()

	file := "Health/Sleep.md"
	body, err := NewClient(srv.URL+"/api/").ChatStream(context.Background(), ChatRequest{
		SessionID:   "sess-1",
		UserInput:   "hello",
		Model:       "o4-mini",
		PatternName: "general",
		ContextFile: &file,
		Temperature: 1.0,
		TopP:        1.0,
	})
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[DONE]")

	prompts := got["prompts"].([]any)
	require.Len(t, prompts, 1)
	p := prompts[0].(map[string]any)
	assert.Equal(t, "hello", p["userInput"])
	assert.Equal(t, "openai", p["vendor"])
	assert.Equal(t, "o4-mini", p["model"])
	assert.Equal(t, "general_context.md", p["contextName"])
	assert.Equal(t, "general", p["patternName"])
	assert.Equal(t, "", p["strategyName"])
	assert.Equal(t, "Health/Sleep.md", p["obsidianFile"])
	assert.Equal(t, "sess-1", p["sessionName"])
	assert.Equal(t, "en", got["language"])
	assert.Equal(t, 1.0, got["temperature"])
	assert.Equal(t, 1.0, got["topP"])
	assert.Equal(t, 0.0, got["frequencyPenalty"])
	assert.Equal(t, 0.0, got["presencePenalty"])
}

func TestChatStream_NoContextFile(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, stdjson.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	body, err := NewClient(srv.URL).ChatStream(context.Background(), ChatRequest{UserInput: "x"})
	require.NoError(t, err)
	body.Close()

	p := got["prompts"].([]any)[0].(map[string]any)
	assert.Equal(t, "", p["obsidianFile"])
	_, hasSession := p["sessionName"]
	assert.False(t, hasSession)
}

func TestChatStream_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).ChatStream(context.Background(), ChatRequest{UserInput: "x"})
	require.Error(t, err)

	var se *HTTPStatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.Status)
	assert.Equal(t, "Bad Gateway", se.StatusText)
	assert.Contains(t, se.Body, "backend exploded")
	assert.Equal(t, http.StatusBadGateway, StatusCode(err))
	assert.Contains(t, err.Error(), "HTTP 502 Bad Gateway")
}

func TestChatStream_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(url).ChatStream(context.Background(), ChatRequest{UserInput: "x"})
	var ne *NetworkError
	require.True(t, errors.As(err, &ne), "got %v", err)
	assert.Equal(t, "POST /chat", ne.Op)
	assert.Zero(t, StatusCode(err))
}

func TestChatStream_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	_, err := NewClient(srv.URL).ChatStream(ctx, ChatRequest{UserInput: "x"})
	assert.True(t, IsCancellation(err))
}

func TestChatStream_EmptyBaseURL(t *testing.T) {
	_, err := NewClient("").ChatStream(context.Background(), ChatRequest{})
	assert.ErrorIs(t, err, ErrEmptyBaseURL)
}

func TestListEndpoints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case PathPatternNames:
			io.WriteString(w, `["general","obsidian_author"]`)
		case PathModelNames:
			io.WriteString(w, `["o4-mini"]`)
		case PathObsidianFiles:
			io.WriteString(w, `["Health/Sleep.md","Work/Notes.md"]`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	ctx := context.Background()

	patterns, err := c.PatternNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"general", "obsidian_author"}, patterns)

	models, err := c.ModelNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"o4-mini"}, models)

	files, err := c.ObsidianFiles(ctx)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestListEndpoints_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == PathModelNames {
			io.WriteString(w, `{"not":"a list"}`)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.PatternNames(context.Background())
	assert.Equal(t, http.StatusServiceUnavailable, StatusCode(err))

	_, err = c.ModelNames(context.Background())
	assert.ErrorContains(t, err, "failed to parse")
}

func TestHTTPStatusError_Message(t *testing.T) {
	err := &HTTPStatusError{Status: 500}
	assert.Equal(t, "HTTP 500 Internal Server Error", err.Error())
}
