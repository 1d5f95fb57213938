package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nextlive/nextlive/internal/gemini"
)

// RetryConfig configures retry behavior for model calls.
type RetryConfig struct {
	MaxRetries      int           // Maximum number of retry attempts
	InitialInterval time.Duration // Initial backoff interval
	MaxInterval     time.Duration // Maximum backoff interval
}

// DefaultRetryConfig returns sensible defaults for model API calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// retryablePatterns groups transient error substrings by category,
// matched case-insensitively against err.Error().
//
// NOTE: string matching is used because the provider SDK does not expose
// typed errors for transient failures. Re-evaluate if that changes.
var retryablePatterns = [][]string{
	{"rate limit", "quota exceeded", "429"},      // rate limiting
	{"500", "502", "503", "504", "unavailable"},  // transient server errors
	{"connection reset", "timeout", "temporary"}, // network errors
}

// retryableError reports whether err is transient and should trigger a retry.
func retryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	for _, group := range retryablePatterns {
		if containsAny(errStr, group...) {
			return true
		}
	}
	return false
}

func containsAny(s string, substrs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range substrs {
		if strings.Contains(lower, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

// generateWithRetry performs a non-streamed model call with exponential
// backoff. Each attempt is rate limited individually.
func (s *Service) generateWithRetry(ctx context.Context, req *gemini.Request) (*gemini.Response, error) {
	var lastErr error
	delay := s.retry.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= s.retry.MaxRetries; attempt++ {
		if err := s.waitRate(ctx); err != nil {
			return nil, err
		}

		resp, err := s.client.Generate(ctx, req)
		if err == nil {
			s.logger.Debug("model call succeeded",
				"attempts", attempt+1,
				"elapsed", time.Since(start),
			)
			return resp, nil
		}

		lastErr = err
		if !retryableError(err) {
			return nil, fmt.Errorf("generate: %w", err)
		}
		if attempt == s.retry.MaxRetries {
			break
		}
		if err := s.backoff(ctx, attempt, &delay, err); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("generate after %d retries (elapsed: %v): %w",
		s.retry.MaxRetries, time.Since(start), lastErr)
}

// generateStreamWithRetry performs a streamed model call with backoff.
// A stream that already delivered chunks is never retried: downstream
// side effects may have happened, so replaying the request could execute
// a tool twice.
func (s *Service) generateStreamWithRetry(ctx context.Context, req *gemini.Request, fn gemini.StreamFunc) error {
	var lastErr error
	delay := s.retry.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= s.retry.MaxRetries; attempt++ {
		if err := s.waitRate(ctx); err != nil {
			return err
		}

		delivered := false
		err := s.client.GenerateStream(ctx, req, func(ctx context.Context, chunk *gemini.Chunk) error {
			delivered = true
			return fn(ctx, chunk)
		})
		if err == nil {
			s.logger.Debug("model stream succeeded",
				"attempts", attempt+1,
				"elapsed", time.Since(start),
			)
			return nil
		}

		lastErr = err
		if delivered || !retryableError(err) {
			return fmt.Errorf("generate stream: %w", err)
		}
		if attempt == s.retry.MaxRetries {
			break
		}
		if err := s.backoff(ctx, attempt, &delay, err); err != nil {
			return err
		}
	}

	return fmt.Errorf("generate stream after %d retries (elapsed: %v): %w",
		s.retry.MaxRetries, time.Since(start), lastErr)
}

func (s *Service) waitRate(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

func (s *Service) backoff(ctx context.Context, attempt int, delay *time.Duration, cause error) error {
	s.logger.Debug("retrying after error",
		"attempt", attempt+1,
		"delay", *delay,
		"error", cause,
	)
	select {
	case <-ctx.Done():
		return fmt.Errorf("context canceled during retry: %w", ctx.Err())
	case <-time.After(*delay):
		*delay = min(*delay*2, s.retry.MaxInterval)
	}
	return nil
}
