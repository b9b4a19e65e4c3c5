// Package circuitbreaker wraps sony/gobreaker with per-endpoint breaker
// management.
package circuitbreaker

import (
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/your-org/gateway/pkg/logger"
)

// State represents the circuit breaker state.
type State = gobreaker.State

// States
const (
	StateClosed   = gobreaker.StateClosed
	StateHalfOpen = gobreaker.StateHalfOpen
	StateOpen     = gobreaker.StateOpen
)

// Settings configures breakers created by a Manager.
type Settings struct {
	// MaxFailures is the consecutive-failure count that opens the
	// breaker.
	MaxFailures uint32

	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration
}

// Manager lazily creates one breaker per name, typically one per
// upstream token endpoint.
type Manager struct {
	settings Settings
	breakers map[string]*gobreaker.CircuitBreaker[any]
	mu       sync.RWMutex
}

// NewManager creates a circuit breaker manager.
func NewManager(settings Settings) *Manager {
	if settings.MaxFailures == 0 {
		settings.MaxFailures = 5
	}
	if settings.Timeout <= 0 {
		settings.Timeout = 30 * time.Second
	}
	return &Manager{
		settings: settings,
		breakers: make(map[string]*gobreaker.CircuitBreaker[any]),
	}
}

// Get returns or creates the breaker for the given name.
func (m *Manager) Get(name string) *gobreaker.CircuitBreaker[any] {
	m.mu.RLock()
	cb, exists := m.breakers[name]
	m.mu.RUnlock()
	if exists {
		return cb
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if cb, exists = m.breakers[name]; exists {
		return cb
	}

	cb = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:    name,
		Timeout: m.settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= m.settings.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				logger.String("endpoint", name),
				logger.String("from", stateToString(from)),
				logger.String("to", stateToString(to)))
		},
	})
	m.breakers[name] = cb
	return cb
}

// ExecuteTyped runs fn behind the named breaker.
func ExecuteTyped[T any](m *Manager, name string, fn func() (T, error)) (T, error) {
	cb := m.Get(name)
	result, err := cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

// State returns the current state of the named breaker.
func (m *Manager) State(name string) gobreaker.State {
	return m.Get(name).State()
}

// States returns the state of every known breaker.
func (m *Manager) States() map[string]gobreaker.State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	states := make(map[string]gobreaker.State, len(m.breakers))
	for name, cb := range m.breakers {
		states[name] = cb.State()
	}
	return states
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
