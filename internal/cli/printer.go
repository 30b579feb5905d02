// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fritzduchardt/fabric-ui/internal/chat"
)

// =============================================================================
// STREAM PRINTER
// =============================================================================

type attemptKey struct {
	id      string
	attempt int
}

// streamPrinter is a chat.Sink for line-oriented output. Answers go to out,
// retry notices and errors to errOut.
//
// With stream set, each content delta prints the text added since the
// previous one; text that is still only whitespace is held back so an attempt
// that ends up empty prints nothing. Without it nothing is printed until the answer is complete
// and the rendered markup is printed once.
type streamPrinter struct {
	mu      sync.Mutex
	out     io.Writer
	errOut  io.Writer
	stream  bool
	printed map[attemptKey]int
	// open is set while a streamed line lacks its trailing newline.
	open bool
}

func newStreamPrinter(out, errOut io.Writer, stream bool) *streamPrinter {
	return &streamPrinter{
		out:     out,
		errOut:  errOut,
		stream:  stream,
		printed: make(map[attemptKey]int),
	}
}

// Emit implements chat.Sink.
func (p *streamPrinter) Emit(e chat.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch e := e.(type) {
	case chat.ContentDelta:
		if !p.stream || strings.TrimSpace(e.Text) == "" {
			return
		}
		key := attemptKey{id: e.ID, attempt: e.Attempt}
		done := p.printed[key]
		if len(e.Text) <= done {
			return
		}
		chunk := e.Text[done:]
		fmt.Fprint(p.out, chunk)
		p.printed[key] = len(e.Text)
		p.open = !strings.HasSuffix(chunk, "\n")

	case chat.RetryNotice:
		p.endLine()
		fmt.Fprintln(p.errOut, WarningStyle.Render(e.Message))

	case chat.Terminal:
		for key := range p.printed {
			if key.id == e.ID {
				delete(p.printed, key)
			}
		}
		switch e.Outcome.Kind {
		case chat.OutcomeSuccess:
			if !p.stream {
				answer := e.Outcome.Markup
				if answer == "" {
					answer = e.Outcome.Text
				}
				fmt.Fprint(p.out, answer)
				p.open = !strings.HasSuffix(answer, "\n")
			}
			p.endLine()
		case chat.OutcomeCancelled:
			p.endLine()
			fmt.Fprintln(p.errOut, WarningStyle.Render("["+e.Outcome.Message()+"]"))
		default:
			p.endLine()
			fmt.Fprintln(p.errOut, ErrorStyle.Render(e.Outcome.Message()))
		}
	}
}

// endLine terminates a partially printed line.
func (p *streamPrinter) endLine() {
	if p.open {
		fmt.Fprintln(p.out)
		p.open = false
	}
}
