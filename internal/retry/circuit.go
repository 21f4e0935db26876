package retry

import (
	"sync"
	"time"
)

// CircuitState represents the state of a circuit breaker
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

// String returns string representation of CircuitState
func (cs CircuitState) String() string {
	switch cs {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

type breaker struct {
	state         CircuitState
	failures      int
	lastFailure   time.Time
	trialInFlight bool

	successes     int64
	totalFailures int64
}

// BreakerStore holds per-operation-key circuit breakers. It is an
// explicit keyed store owned by whoever constructs it, so separate
// handler instances (tests included) never share state.
type BreakerStore struct {
	threshold int
	cooldown  time.Duration

	mu       sync.Mutex
	breakers map[string]*breaker
}

// NewBreakerStore creates a breaker store. The circuit for a key opens
// after threshold consecutive failures and allows a single trial attempt
// once the cooldown window has elapsed.
func NewBreakerStore(threshold int, cooldown time.Duration) *BreakerStore {
	return &BreakerStore{
		threshold: threshold,
		cooldown:  cooldown,
		breakers:  make(map[string]*breaker),
	}
}

// Allow reports whether an attempt for the key may proceed. While open it
// returns ErrCircuitOpen until the cooldown elapses, then transitions to
// half-open and admits exactly one trial attempt.
func (s *BreakerStore) Allow(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, exists := s.breakers[key]
	if !exists {
		return nil
	}

	switch b.state {
	case CircuitClosed:
		return nil
	case CircuitOpen:
		if time.Since(b.lastFailure) >= s.cooldown {
			b.state = CircuitHalfOpen
			b.trialInFlight = true
			return nil
		}
		return ErrCircuitOpen
	case CircuitHalfOpen:
		if b.trialInFlight {
			return ErrCircuitOpen
		}
		b.trialInFlight = true
		return nil
	default:
		return ErrCircuitOpen
	}
}

// RecordSuccess resets the key's circuit to closed.
func (s *BreakerStore) RecordSuccess(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.breaker(key)
	b.state = CircuitClosed
	b.failures = 0
	b.trialInFlight = false
	b.successes++
}

// RecordFailure increments the key's consecutive-failure count and opens
// the circuit at the threshold. A failed half-open trial reopens it
// immediately.
func (s *BreakerStore) RecordFailure(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.breaker(key)
	b.failures++
	b.totalFailures++
	b.lastFailure = time.Now()
	b.trialInFlight = false

	if b.state == CircuitHalfOpen || b.failures >= s.threshold {
		b.state = CircuitOpen
	}
}

// State returns the current circuit state for a key.
func (s *BreakerStore) State(key string) CircuitState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, exists := s.breakers[key]; exists {
		return b.state
	}
	return CircuitClosed
}

// Stats returns a snapshot of per-key breaker statistics.
func (s *BreakerStore) Stats(key string) map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, exists := s.breakers[key]
	if !exists {
		return map[string]interface{}{
			"circuit_state":        CircuitClosed.String(),
			"consecutive_failures": 0,
			"successes":            int64(0),
			"failures":             int64(0),
		}
	}
	stats := map[string]interface{}{
		"circuit_state":        b.state.String(),
		"consecutive_failures": b.failures,
		"successes":            b.successes,
		"failures":             b.totalFailures,
	}
	if !b.lastFailure.IsZero() {
		stats["last_failure"] = b.lastFailure
	}
	return stats
}

// Keys returns all keys the store has seen.
func (s *BreakerStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.breakers))
	for k := range s.breakers {
		keys = append(keys, k)
	}
	return keys
}

// breaker lazily creates state for a key; callers hold s.mu.
func (s *BreakerStore) breaker(key string) *breaker {
	b, exists := s.breakers[key]
	if !exists {
		b = &breaker{state: CircuitClosed}
		s.breakers[key] = b
	}
	return b
}
