// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package frame turns the chunked text of a fabric event stream into content
// deltas.
//
// The wire format is a sequence of frames separated by a blank line:
//
//	data: {"content":"Hel"}
//
//	data: {"content":"lo"}
//
//	data: [DONE]
//
// Chunk boundaries are arbitrary. A Parser keeps the unterminated tail of the
// previous chunk and only emits complete frames, so the produced deltas do not
// depend on how the transport split the bytes.
package frame

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// Delimiter separates frames on the wire.
	Delimiter = "\n\n"

	// DataPrefix marks the only frames that carry payloads.
	DataPrefix = "data:"

	// DoneSentinel ends the stream. It is never content.
	DoneSentinel = "[DONE]"

	// ReadBufferSize is the size of a single read from the response body.
	ReadBufferSize = 4 * 1024
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// =============================================================================
// ERRORS
// =============================================================================

// MalformedFrameError describes a data frame whose payload could not be
// decoded. The parser drops such frames; the error only reaches the
// OnMalformed hook.
type MalformedFrameError struct {
	Payload string
	Err     error
}

func (e *MalformedFrameError) Error() string {
	return fmt.Sprintf("malformed frame %q: %v", e.Payload, e.Err)
}

func (e *MalformedFrameError) Unwrap() error {
	return e.Err
}

// payload is the JSON body of a data frame.
type payload struct {
	Content string `json:"content"`
}

// =============================================================================
// PARSER
// =============================================================================

// Parser is a push parser over stream chunks. It is not safe for concurrent
// use and is not restartable: use a new Parser for every response body.
type Parser struct {
	residue string
	done    bool

	frames  int
	dropped int

	// OnMalformed, when set, is called for every data frame that fails to
	// decode.
	OnMalformed func(err *MalformedFrameError)
}

// NewParser returns an empty parser.
func NewParser() *Parser {
	return &Parser{}
}

// Feed consumes one chunk and returns the content deltas of every frame the
// chunk completed, in arrival order. done reports that the sentinel has been
// seen; once it has, Feed ignores all further input.
func (p *Parser) Feed(chunk string) (deltas []string, done bool) {
	if p.done {
		return nil, true
	}

	buf := p.residue + chunk
	if strings.Contains(buf, "\r\n") {
		buf = strings.ReplaceAll(buf, "\r\n", "\n")
	}

	parts := strings.Split(buf, Delimiter)
	p.residue = parts[len(parts)-1]

	for _, raw := range parts[:len(parts)-1] {
		delta, ok, stop := p.decode(raw)
		if stop {
			p.done = true
			p.residue = ""
			return deltas, true
		}
		if ok {
			deltas = append(deltas, delta)
		}
	}
	return deltas, false
}

// decode interprets one complete frame.
func (p *Parser) decode(raw string) (delta string, ok, stop bool) {
	frame := strings.TrimSpace(raw)
	if !strings.HasPrefix(frame, DataPrefix) {
		return "", false, false
	}
	p.frames++

	data := strings.TrimSpace(frame[len(DataPrefix):])
	if data == DoneSentinel {
		return "", false, true
	}

	var pl payload
	if err := json.UnmarshalFromString(data, &pl); err != nil {
		p.dropped++
		if p.OnMalformed != nil {
			p.OnMalformed(&MalformedFrameError{Payload: data, Err: err})
		}
		return "", false, false
	}
	if pl.Content == "" {
		return "", false, false
	}
	return pl.Content, true, false
}

// Done reports whether the sentinel has been seen.
func (p *Parser) Done() bool {
	return p.done
}

// Pending returns the bytes held back waiting for a delimiter.
func (p *Parser) Pending() string {
	return p.residue
}

// Frames returns the number of data frames seen, the sentinel included.
func (p *Parser) Frames() int {
	return p.frames
}

// Dropped returns the number of malformed frames skipped.
func (p *Parser) Dropped() int {
	return p.dropped
}

// =============================================================================
// BODY READER
// =============================================================================

// Result summarises one pass over a response body.
type Result struct {
	// Done is true when the stream ended with the sentinel rather than EOF.
	Done    bool
	Frames  int
	Dropped int
}

// Read pumps body through a fresh Parser and hands every delta to onDelta.
// It returns when the sentinel arrives, the body reaches EOF, or ctx is
// cancelled. An unterminated trailing frame at EOF is discarded.
func Read(ctx context.Context, body io.Reader, onDelta func(delta string), onMalformed func(err *MalformedFrameError)) (Result, error) {
	p := NewParser()
	p.OnMalformed = onMalformed

	buf := make([]byte, ReadBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return p.result(), err
		}

		n, err := body.Read(buf)
		if n > 0 {
			deltas, done := p.Feed(string(buf[:n]))
			for _, d := range deltas {
				onDelta(d)
			}
			if done {
				return p.result(), nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return p.result(), nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return p.result(), ctxErr
			}
			return p.result(), fmt.Errorf("read stream: %w", err)
		}
	}
}

func (p *Parser) result() Result {
	return Result{Done: p.done, Frames: p.frames, Dropped: p.dropped}
}
