// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fritzduchardt/fabric-ui/internal/fabric"
	"github.com/fritzduchardt/fabric-ui/internal/frame"
	"github.com/fritzduchardt/fabric-ui/internal/metrics"
	"github.com/fritzduchardt/fabric-ui/internal/render"
	"github.com/fritzduchardt/fabric-ui/internal/retry"
	"github.com/fritzduchardt/fabric-ui/internal/session"
	"github.com/fritzduchardt/fabric-ui/internal/stream"
)

// Backend opens chat streams.
type Backend interface {
	ChatStream(ctx context.Context, req fabric.ChatRequest) (io.ReadCloser, error)
}

// Submission is one user request.
type Submission struct {
	Input     string
	Selection Selection
	// Continue keeps the current backend session instead of starting one.
	Continue bool
}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Orchestrator runs submissions end to end: it emits the user turn, drives
// attempts through the retry controller, streams deltas to the sink, and
// emits exactly one terminal event per submission.
//
// Submit may be called from several goroutines at once. Submissions share
// nothing but the conversation and the registry, both of which lock.
type Orchestrator struct {
	backend      Backend
	sink         Sink
	retry        *retry.Controller
	registry     *session.Registry
	conversation *session.Conversation
	renderer     render.Renderer
	settings     Settings
	logger       *zap.Logger
}

// NewOrchestrator creates an orchestrator with default settings.
func NewOrchestrator(backend Backend, sink Sink) *Orchestrator {
	if sink == nil {
		sink = DiscardSink
	}
	return &Orchestrator{
		backend:      backend,
		sink:         sink,
		retry:        retry.New(nil),
		registry:     session.NewRegistry(),
		conversation: session.NewConversation(),
		renderer:     render.Identity,
		settings:     DefaultSettings(),
		logger:       zap.NewNop(),
	}
}

// WithSettings replaces the request settings.
func (o *Orchestrator) WithSettings(s Settings) *Orchestrator {
	o.settings = s
	return o
}

// WithRetry replaces the retry controller.
func (o *Orchestrator) WithRetry(c *retry.Controller) *Orchestrator {
	o.retry = c
	return o
}

// WithRenderer sets the renderer used for ContentDelta markup.
func (o *Orchestrator) WithRenderer(r render.Renderer) *Orchestrator {
	if r != nil {
		o.renderer = r
	}
	return o
}

// WithConversation shares a conversation between orchestrators.
func (o *Orchestrator) WithConversation(c *session.Conversation) *Orchestrator {
	o.conversation = c
	return o
}

// WithLogger sets the logger.
func (o *Orchestrator) WithLogger(logger *zap.Logger) *Orchestrator {
	if logger != nil {
		o.logger = logger
	}
	return o
}

// Conversation returns the conversation submissions are recorded in.
func (o *Orchestrator) Conversation() *session.Conversation {
	return o.conversation
}

// Settings returns the request settings.
func (o *Orchestrator) Settings() Settings {
	return o.settings
}

// Cancel cancels the in-flight request with the given id. Unknown or
// finished ids are ignored.
func (o *Orchestrator) Cancel(requestID string) bool {
	return o.registry.Cancel(requestID)
}

// CancelAll cancels every in-flight request.
func (o *Orchestrator) CancelAll() int {
	return o.registry.CancelAll()
}

// InFlight returns the number of submissions without a terminal event.
func (o *Orchestrator) InFlight() int {
	return o.registry.Len()
}

// =============================================================================
// SUBMIT
// =============================================================================

// Submit runs one submission to completion and returns its outcome, which
// has also been emitted as the Terminal event. Cancelling ctx cancels the
// submission.
func (o *Orchestrator) Submit(ctx context.Context, sub Submission) Outcome {
	input := o.normalizeInput(sub.Input)

	req := session.NewRequest(ctx)
	o.registry.Register(req)
	id := req.ID()

	sessionID := o.conversation.SessionFor(sub.Continue)
	chatReq := o.buildRequest(sessionID, input, sub.Selection)

	log := o.logger.With(
		zap.String("request_id", id),
		zap.String("session_id", sessionID),
		zap.String("model", chatReq.Model),
		zap.String("pattern", chatReq.PatternName),
	)
	log.Info("submission started", zap.Bool("continue", sub.Continue))

	start := time.Now()
	metrics.InflightRequests.Inc()

	outcome := Outcome{Kind: OutcomeFailed, Err: errors.New("submission aborted")}
	defer func() {
		o.registry.Release(id)
		req.Close()
		metrics.InflightRequests.Dec()
		metrics.Submissions.WithLabelValues(chatReq.Model, outcome.Kind.String()).Inc()
		metrics.SubmissionDuration.WithLabelValues(chatReq.Model, outcome.Kind.String()).Observe(time.Since(start).Seconds())

		o.sink.Emit(Busy{ID: id, Active: false})
		o.sink.Emit(Terminal{ID: id, Outcome: outcome})
		log.Info("submission finished",
			zap.Stringer("outcome", outcome.Kind),
			zap.Int("attempts", outcome.Attempts),
			zap.Duration("duration", time.Since(start)),
		)
	}()

	o.sink.Emit(UserTurn{ID: id, Text: input})
	o.sink.Emit(Busy{ID: id, Active: true})

	var final string
	attempt := func(ctx context.Context, n int) error {
		r := chatReq
		if n > 1 && o.settings.FreshSessionPerRetry {
			o.conversation.Discard(sessionID)
			sessionID = o.conversation.Rotate()
			r.SessionID = sessionID
		}
		text, err := o.runAttempt(ctx, id, n, r, log)
		if err != nil {
			return err
		}
		final = text
		return nil
	}

	notify := func(n int, err error) {
		metrics.RetryNotices.Inc()
		o.sink.Emit(RetryNotice{
			ID:          id,
			Attempt:     n,
			MaxAttempts: o.retry.MaxAttempts,
			Message:     retryMessage(n, o.retry.MaxAttempts, o.retry.Delay, err),
		})
	}

	res := o.retry.Run(req, attempt, notify)

	switch res.State {
	case retry.Success:
		outcome = Outcome{
			Kind:     OutcomeSuccess,
			Text:     final,
			Markup:   o.renderer.Render(final),
			Attempts: res.Attempts,
		}
		o.conversation.Record(sessionID, input, chatReq.PatternName)
	case retry.Cancelled:
		o.conversation.Discard(sessionID)
		outcome = Outcome{Kind: OutcomeCancelled, Attempts: res.Attempts}
	default:
		o.conversation.Discard(sessionID)
		outcome = Outcome{Kind: OutcomeFailed, Err: res.LastErr, Attempts: res.Attempts}
	}
	return outcome
}

// runAttempt performs one request and streams its deltas. It returns the
// final text of a non-empty response.
func (o *Orchestrator) runAttempt(ctx context.Context, id string, n int, req fabric.ChatRequest, log *zap.Logger) (string, error) {
	body, err := o.backend.ChatStream(ctx, req)
	if err != nil {
		return "", err
	}
	defer body.Close()

	acc := stream.NewAccumulator(func(text string) {
		o.sink.Emit(ContentDelta{ID: id, Attempt: n, Text: text, Markup: o.renderer.Render(text)})
	})

	res, err := frame.Read(ctx, body, acc.Append, func(mf *frame.MalformedFrameError) {
		metrics.DroppedFrames.Inc()
		log.Debug("skipping malformed frame", zap.Int("attempt", n), zap.Error(mf))
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", &fabric.NetworkError{Op: "read stream", Err: err}
	}

	text, ok := acc.Finalize()
	stats := acc.Stats()
	if stats.Deltas > 0 {
		metrics.TimeToFirstDelta.WithLabelValues(req.Model).Observe(stats.FirstDeltaTime.Seconds())
	}
	log.Debug("attempt stream finished",
		zap.Int("attempt", n),
		zap.Bool("done_sentinel", res.Done),
		zap.Int("frames", res.Frames),
		zap.Int("dropped", res.Dropped),
		zap.Int("deltas", stats.Deltas),
		zap.Duration("total", stats.TotalTime),
	)

	if !ok {
		log.Debug("attempt finished without content", zap.Int("attempt", n), zap.String("text", text))
		return "", stream.ErrEmptyResponse
	}
	return text, nil
}

// normalizeInput trims input and substitutes the placeholder for nothing.
func (o *Orchestrator) normalizeInput(input string) string {
	input = strings.TrimSpace(input)
	if input != "" {
		return input
	}
	if o.settings.EmptyInputPlaceholder != "" {
		return o.settings.EmptyInputPlaceholder
	}
	return DefaultPlaceholder
}

// buildRequest assembles the request sent by every attempt.
func (o *Orchestrator) buildRequest(sessionID, input string, sel Selection) fabric.ChatRequest {
	s := o.settings
	pattern := sel.Pattern
	if pattern == "" {
		pattern = s.FallbackPattern
	}
	model := sel.Model
	if model == "" {
		model = s.DefaultModel
	}

	return fabric.ChatRequest{
		SessionID:        sessionID,
		UserInput:        input,
		Vendor:           s.Vendor,
		Model:            model,
		PatternName:      pattern,
		ContextFile:      sel.contextFile(),
		ContextName:      s.ContextName,
		StrategyName:     s.StrategyName,
		Temperature:      s.TemperatureFor(model),
		TopP:             s.TopP,
		FrequencyPenalty: s.FrequencyPenalty,
		PresencePenalty:  s.PresencePenalty,
		Language:         s.Language,
	}
}

// retryMessage is the notice shown between attempts.
func retryMessage(n, limit int, delay time.Duration, err error) string {
	return fmt.Sprintf("Attempt %d of %d failed: %v. Retrying in %s...", n, limit, err, delay)
}
