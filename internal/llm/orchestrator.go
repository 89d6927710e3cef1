package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ErrExhaustedRetries indicates every retry attempt of one call failed.
var ErrExhaustedRetries = errors.New("exhausted retries")

const (
	defaultMaxRetries  = 3
	defaultBaseTimeout = 120 * time.Second
	backoffStep        = 10 * time.Second
	timeoutGrowth      = 1.5

	// minSplitSize is the recursion floor: a failing batch at or below
	// this size is terminal for that subset and contributes nothing.
	minSplitSize = 10
)

// BatchResponse is the model output for one contiguous slice of input lines.
type BatchResponse struct {
	Lines []string
	Text  string
}

// Orchestrator issues model calls with bounded retries and isolates
// persistent failures by recursively bisecting the input batch.
type Orchestrator struct {
	completer   Completer
	maxRetries  int
	baseTimeout time.Duration
	sleep       func(context.Context, time.Duration) error
	logger      *zerolog.Logger
}

// NewOrchestrator wraps a completer. maxRetries and baseTimeout fall back
// to defaults when non-positive.
func NewOrchestrator(completer Completer, maxRetries int, baseTimeout time.Duration, logger *zerolog.Logger) *Orchestrator {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	if baseTimeout <= 0 {
		baseTimeout = defaultBaseTimeout
	}

	return &Orchestrator{
		completer:   completer,
		maxRetries:  maxRetries,
		baseTimeout: baseTimeout,
		sleep:       sleepCtx,
		logger:      logger,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Call runs one prompt with up to maxRetries attempts, linear backoff
// (10s * attempt) and a per-attempt timeout escalating by 1.5x. It returns
// ErrExhaustedRetries wrapping the last failure when every attempt errors.
func (o *Orchestrator) Call(ctx context.Context, prompt string) (Completion, error) {
	var lastErr error

	timeout := o.baseTimeout

	for attempt := 1; attempt <= o.maxRetries; attempt++ {
		if attempt > 1 {
			if err := o.sleep(ctx, backoffStep*time.Duration(attempt-1)); err != nil {
				return Completion{}, fmt.Errorf("backoff interrupted: %w", err)
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		completion, err := o.completer.Complete(attemptCtx, prompt)

		cancel()

		if err == nil {
			return completion, nil
		}

		lastErr = err

		if ctx.Err() != nil {
			return Completion{}, fmt.Errorf("call cancelled: %w", ctx.Err())
		}

		o.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_retries", o.maxRetries).
			Dur("timeout", timeout).
			Msg("LLM call failed")

		timeout = time.Duration(float64(timeout) * timeoutGrowth)
	}

	return Completion{}, fmt.Errorf("%w: %w", ErrExhaustedRetries, lastErr)
}

// RobustBatchCall wraps one Call over one batch of lines. On persistent
// failure the batch is bisected and both halves retried independently, so a
// single poisoned line can cost at most its minSplitSize-sized leaf. Leaf
// failures are logged and contribute nothing; the error return is reserved
// for cancellation. Responses come back in input order and usage is
// accumulated across all sub-calls.
func (o *Orchestrator) RobustBatchCall(ctx context.Context, lines []string, build func(lines []string) string) ([]BatchResponse, Usage, error) {
	return o.robustBatchCall(ctx, lines, build, 0)
}

func (o *Orchestrator) robustBatchCall(ctx context.Context, lines []string, build func(lines []string) string, depth int) ([]BatchResponse, Usage, error) {
	if len(lines) == 0 {
		return nil, Usage{}, nil
	}

	completion, err := o.Call(ctx, build(lines))
	if err == nil {
		return []BatchResponse{{Lines: lines, Text: completion.Text}}, completion.Usage, nil
	}

	if ctx.Err() != nil {
		return nil, Usage{}, fmt.Errorf("batch call cancelled: %w", ctx.Err())
	}

	if len(lines) <= minSplitSize {
		o.logger.Error().
			Err(err).
			Int("lines", len(lines)).
			Int("depth", depth).
			Msg("smallest batch exhausted retries, dropping subset")

		return nil, Usage{}, nil
	}

	o.logger.Warn().
		Err(err).
		Int("lines", len(lines)).
		Int("depth", depth).
		Msg("batch call failed, splitting")

	mid := len(lines) / 2

	left, usage, err := o.robustBatchCall(ctx, lines[:mid], build, depth+1)
	if err != nil {
		return nil, usage, err
	}

	right, rightUsage, err := o.robustBatchCall(ctx, lines[mid:], build, depth+1)
	usage.Add(rightUsage)

	if err != nil {
		return nil, usage, err
	}

	return append(left, right...), usage, nil
}
