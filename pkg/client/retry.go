package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "export_upstream_retries_total",
		Help: "Total number of upstream retry attempts by error class",
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "export_upstream_retry_exhausted_total",
		Help: "Total number of upstream requests that exhausted every attempt, by error class",
	}, []string{"error_class"})
)

const (
	// DefaultMaxRetries is the number of extra attempts after the first one.
	DefaultMaxRetries = 2

	// DefaultRetryDelay is the constant pause between attempts.
	DefaultRetryDelay = 500 * time.Millisecond
)

// RetryConfig holds the configuration for retry logic.
// The delay is constant across attempts.
type RetryConfig struct {
	// MaxRetries is the number of extra attempts (total attempts = MaxRetries+1).
	MaxRetries int

	// Delay is the fixed wait between attempts.
	Delay time.Duration
}

// DefaultRetryConfig returns the default retry configuration (3 attempts, 500ms apart).
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: DefaultMaxRetries,
		Delay:      DefaultRetryDelay,
	}
}

// retryWithDelay runs fn until it succeeds or the attempt budget is spent.
// fn receives the 1-based attempt number. A *RequestError from the final
// attempt is returned with Attempts filled in.
func retryWithDelay(ctx context.Context, cfg RetryConfig, logger zerolog.Logger, fn func(attempt int) error) error {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	maxAttempts := cfg.MaxRetries + 1

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn(attempt)
		if err == nil {
			if attempt > 1 {
				logger.Info().
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}
		lastErr = err
		class := errorClassOf(err)

		if attempt >= maxAttempts {
			break
		}

		retriesTotal.WithLabelValues(string(class)).Inc()
		logger.Warn().
			Err(err).
			Str("error_class", string(class)).
			Int("attempt", attempt).
			Dur("delay", cfg.Delay).
			Msg("Retrying request after delay")

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-time.After(cfg.Delay):
		}
	}

	class := errorClassOf(lastErr)
	retryExhaustedTotal.WithLabelValues(string(class)).Inc()
	logger.Error().
		Err(lastErr).
		Str("error_class", string(class)).
		Int("attempts", maxAttempts).
		Msg("Retry attempts exhausted")

	var reqErr *RequestError
	if errors.As(lastErr, &reqErr) {
		reqErr.Attempts = maxAttempts
		return reqErr
	}
	return lastErr
}

func errorClassOf(err error) ErrorClass {
	var reqErr *RequestError
	if errors.As(err, &reqErr) && reqErr.ErrorClass != "" {
		return reqErr.ErrorClass
	}
	return ErrorClassNetwork
}
