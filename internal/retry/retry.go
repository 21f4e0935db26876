// Package retry wraps fallible operations with exponential-backoff retry
// and a per-operation-key circuit breaker.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"jobradar/internal/config"
	"jobradar/internal/logging"
)

// ErrCircuitOpen is returned without invoking the operation while the
// key's circuit is open.
var ErrCircuitOpen = errors.New("circuit breaker open")

// ExhaustedError reports that all retry attempts failed; it carries the
// last underlying error.
type ExhaustedError struct {
	Key      string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted for %s after %d attempts: %v", e.Key, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Error classes that retrying cannot fix. Matched by message pattern
// since upstream sources rarely return typed errors.
var nonRetryablePatterns = []string{
	"authentication",
	"unauthorized",
	"authorization",
	"forbidden",
	"not found",
	"bad request",
	"invalid",
}

// Handler executes operations with bounded retries and circuit breaking.
// Each Handler owns its keyed breaker state; instances never share.
type Handler struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	multiplier float64
	jitterMax  time.Duration

	breakers *BreakerStore
	logger   logging.Logger

	mu   sync.Mutex
	rand *rand.Rand
}

// NewHandler creates a retry handler from configuration.
func NewHandler(cfg *config.Config, logger logging.Logger) *Handler {
	return &Handler{
		maxRetries: cfg.Retry.MaxRetries,
		baseDelay:  cfg.Retry.BaseDelay,
		maxDelay:   cfg.Retry.MaxDelay,
		multiplier: cfg.Retry.Multiplier,
		jitterMax:  cfg.Retry.JitterMax,
		breakers:   NewBreakerStore(cfg.Retry.FailureThreshold, cfg.Retry.CooldownWindow),
		logger:     logger.WithField("component", "retry_handler"),
		rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ExecuteWithRetry runs the operation, retrying transient failures with
// exponential backoff. Non-retryable errors surface immediately; an open
// circuit fails fast with ErrCircuitOpen before the operation is invoked.
func (h *Handler) ExecuteWithRetry(ctx context.Context, key string, operation func(ctx context.Context) error) error {
	attempts := h.maxRetries + 1 // initial call plus retries

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := h.breakers.Allow(key); err != nil {
			h.logger.Warn("Circuit open, failing fast", map[string]interface{}{
				"operation_key": key,
			})
			return err
		}

		err := operation(ctx)
		if err == nil {
			h.breakers.RecordSuccess(key)
			return nil
		}

		// Permanent errors are not the site failing; they must not trip
		// the breaker or consume the retry budget.
		if IsNonRetryable(err) {
			h.logger.Warn("Non-retryable error, not retrying", map[string]interface{}{
				"operation_key": key,
				"error":         err.Error(),
			})
			return err
		}

		h.breakers.RecordFailure(key)
		lastErr = err

		if attempt == attempts {
			break
		}

		delay := h.backoffDelay(attempt)
		h.logger.Debug("Retrying after backoff", map[string]interface{}{
			"operation_key": key,
			"attempt":       attempt,
			"delay":         delay.String(),
		})

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return &ExhaustedError{Key: key, Attempts: attempts, Err: lastErr}
}

// Stats returns breaker statistics for a key, for the stats endpoints.
func (h *Handler) Stats(key string) map[string]interface{} {
	return h.breakers.Stats(key)
}

// Keys returns every operation key the handler has seen.
func (h *Handler) Keys() []string {
	return h.breakers.Keys()
}

// CircuitState exposes the current circuit state for a key.
func (h *Handler) CircuitState(key string) CircuitState {
	return h.breakers.State(key)
}

// backoffDelay is min(maxDelay, base * multiplier^(attempt-1)) plus
// uniform jitter in [0, jitterMax).
func (h *Handler) backoffDelay(attempt int) time.Duration {
	backoff := float64(h.baseDelay) * math.Pow(h.multiplier, float64(attempt-1))
	if backoff > float64(h.maxDelay) {
		backoff = float64(h.maxDelay)
	}

	h.mu.Lock()
	jitter := time.Duration(h.rand.Int63n(int64(h.jitterMax) + 1))
	h.mu.Unlock()

	return time.Duration(backoff) + jitter
}

// IsNonRetryable reports whether the error belongs to a class that
// retrying cannot fix (auth, 4xx-style request errors).
func IsNonRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range nonRetryablePatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
