// Package relay implements the prompt invoker: it wraps the user prompt in
// the persona instruction, calls Gemini, parses the answer and retries
// failed attempts a fixed number of times with a fixed delay.
//
// Every upstream or parse problem is returned as a models.Result carrying a
// structured failure. Invoke only returns an error when its context ends
// before the attempts are used up.
package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aires-app/gemini-relay/internal/gemini"
	"github.com/aires-app/gemini-relay/internal/prompt"
	"github.com/aires-app/gemini-relay/pkg/models"
)

const (
	DefaultAttempts = 3
	DefaultDelay    = 2 * time.Second
)

var (
	ErrInvalidAttempts = errors.New("relay: attempts must be at least 1")
	ErrInvalidDelay    = errors.New("relay: delay must not be negative")
)

var tracer = otel.Tracer("github.com/aires-app/gemini-relay/internal/relay")

// Upstream sends the fully built instruction text to the model.
type Upstream interface {
	GenerateContent(ctx context.Context, text string) (*gemini.Response, error)
}

// Parser turns model text into a result.
type Parser interface {
	Parse(raw string) models.Result
}

// Options bounds the retry loop.
type Options struct {
	Attempts int
	Delay    time.Duration
}

// Invoker runs invocations. It holds no per-invocation state and is safe
// for concurrent use.
type Invoker struct {
	upstream Upstream
	parser   Parser
	attempts int
	delay    time.Duration
	sleep    func(context.Context, time.Duration) error
}

// NewInvoker validates opts and returns an Invoker.
func NewInvoker(upstream Upstream, parser Parser, opts Options) (*Invoker, error) {
	if opts.Attempts < 1 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidAttempts, opts.Attempts)
	}
	if opts.Delay < 0 {
		return nil, fmt.Errorf("%w, got %s", ErrInvalidDelay, opts.Delay)
	}
	return &Invoker{
		upstream: upstream,
		parser:   parser,
		attempts: opts.Attempts,
		delay:    opts.Delay,
		sleep:    sleep,
	}, nil
}

// Invoke answers userPrompt. It returns on the first attempt whose result
// does not carry status "error"; after the last failed attempt it returns
// that attempt's result as is.
func (inv *Invoker) Invoke(ctx context.Context, userPrompt string) (models.Result, error) {
	invocationID := uuid.NewString()

	ctx, span := tracer.Start(ctx, "relay.invoke",
		trace.WithAttributes(
			attribute.String("relay.invocation_id", invocationID),
			attribute.Int("relay.max_attempts", inv.attempts),
		),
	)
	defer span.End()

	text := prompt.Build(userPrompt)

	var result models.Result
	for attempt := 1; attempt <= inv.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			return result, fmt.Errorf("relay: invocation %s canceled before attempt %d: %w", invocationID, attempt, err)
		}

		result = inv.attempt(ctx, text, attempt)
		if !result.IsError() {
			span.SetAttributes(attribute.Int("relay.attempts", attempt))
			log.Debug().
				Str("invocation_id", invocationID).
				Int("attempt", attempt).
				Msg("Invocation succeeded")
			return result, nil
		}

		log.Warn().
			Str("invocation_id", invocationID).
			Int("attempt", attempt).
			Int("max_attempts", inv.attempts).
			Str("message", result.Message()).
			Msg("Attempt failed")

		if attempt == inv.attempts {
			break
		}
		if err := inv.sleep(ctx, inv.delay); err != nil {
			span.RecordError(err)
			return result, fmt.Errorf("relay: invocation %s canceled after attempt %d: %w", invocationID, attempt, err)
		}
	}

	span.SetAttributes(attribute.Int("relay.attempts", inv.attempts))
	span.SetStatus(codes.Error, result.Message())
	return result, nil
}

// attempt performs one upstream call and classifies its outcome.
func (inv *Invoker) attempt(ctx context.Context, text string, n int) models.Result {
	ctx, span := tracer.Start(ctx, "relay.attempt",
		trace.WithAttributes(attribute.Int("relay.attempt", n)),
	)
	defer span.End()

	resp, err := inv.upstream.GenerateContent(ctx, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, models.MsgFetchError)
		f := models.NewFailure(models.MsgFetchError)
		f.Details = err.Error()
		return models.Failed(f)
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	answer := resp.Text()
	if answer == "" {
		span.SetStatus(codes.Error, models.MsgNoValidResponse)
		f := models.NewFailure(models.MsgNoValidResponse)
		f.Raw = resp.Envelope
		return models.Failed(f)
	}

	result := inv.parser.Parse(answer)
	if result.IsError() {
		span.SetStatus(codes.Error, result.Message())
	}
	return result
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
