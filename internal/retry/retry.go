// Package retry implements the exponential-backoff decorator from spec
// §4.1: delay(attempt) = baseDelay × 2^attempt, retrying only categories in
// an overridable retryable set, propagating the last failure unchanged once
// exhausted.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"deepresearch/internal/classify"
)

// Config controls one decorated call site.
type Config struct {
	BaseDelay  time.Duration
	MaxRetries int
	// Retryable overrides the default {network, llm} retryable set when
	// non-empty.
	Retryable []classify.Category
}

// DefaultConfig matches spec §4.1's defaults: 1s base delay, 2 retries.
func DefaultConfig() Config {
	return Config{BaseDelay: time.Second, MaxRetries: 2}
}

// Operation is the shape of a call a call site wants retried.
type Operation func(ctx context.Context) error

// Attempt records one retry attempt's outcome for observability.
type Attempt struct {
	Category classify.Category
	Err      error
}

// Do runs op, retrying on retryable categories per cfg, and returns the
// attempts made (for callers that want to inspect/record them) plus the
// final error (nil on success).
func Do(ctx context.Context, cfg Config, op Operation) ([]Attempt, error) {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.BaseDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0 // bounded by MaxRetries, not elapsed time

	var attempts []Attempt
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		err := op(ctx)
		if err == nil {
			return attempts, nil
		}

		cat := classify.Classify(err)
		attempts = append(attempts, Attempt{Category: cat, Err: err})
		lastErr = err

		if !isRetryable(cat, cfg.Retryable) {
			return attempts, err
		}
		if attempt == cfg.MaxRetries {
			break
		}

		delay := bo.NextBackOff()
		if delay == backoff.Stop {
			break
		}
		select {
		case <-ctx.Done():
			return attempts, ctx.Err()
		case <-time.After(delay):
		}
	}

	return attempts, lastErr
}

func isRetryable(cat classify.Category, override []classify.Category) bool {
	if len(override) == 0 {
		return classify.Retryable(cat)
	}
	for _, c := range override {
		if c == cat {
			return true
		}
	}
	return false
}
