package circuitbreaker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_GetReturnsSameInstance(t *testing.T) {
	manager := NewManager(Settings{MaxFailures: 5, Timeout: 30 * time.Second})

	cb1 := manager.Get("token-endpoint")
	cb2 := manager.Get("token-endpoint")
	assert.Same(t, cb1, cb2)
	assert.Equal(t, "token-endpoint", cb1.Name())
	assert.Len(t, manager.breakers, 1)
}

func TestManager_GetConcurrent(t *testing.T) {
	manager := NewManager(Settings{})

	var wg sync.WaitGroup
	breakers := make([]*gobreaker.CircuitBreaker[any], 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			breakers[idx] = manager.Get("shared")
		}(i)
	}
	wg.Wait()

	for i := 1; i < 100; i++ {
		assert.Same(t, breakers[0], breakers[i])
	}
	assert.Len(t, manager.breakers, 1)
}

func TestExecuteTyped(t *testing.T) {
	manager := NewManager(Settings{})

	result, err := ExecuteTyped(manager, "svc", func() (string, error) {
		return "minted", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "minted", result)

	expectedErr := errors.New("endpoint down")
	result, err = ExecuteTyped(manager, "svc", func() (string, error) {
		return "", expectedErr
	})
	assert.ErrorIs(t, err, expectedErr)
	assert.Empty(t, result)
}

func TestManager_OpensAfterConsecutiveFailures(t *testing.T) {
	manager := NewManager(Settings{MaxFailures: 2, Timeout: 5 * time.Second})

	assert.Equal(t, StateClosed, manager.State("failing"))

	for i := 0; i < 2; i++ {
		_, err := ExecuteTyped(manager, "failing", func() (string, error) {
			return "", errors.New("boom")
		})
		require.Error(t, err)
	}
	assert.Equal(t, StateOpen, manager.State("failing"))

	// The open breaker short-circuits without calling fn.
	called := false
	_, err := ExecuteTyped(manager, "failing", func() (string, error) {
		called = true
		return "", nil
	})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.False(t, called)
}

func TestManager_RecoversAfterTimeout(t *testing.T) {
	manager := NewManager(Settings{MaxFailures: 1, Timeout: 50 * time.Millisecond})

	_, err := ExecuteTyped(manager, "flaky", func() (string, error) {
		return "", errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, StateOpen, manager.State("flaky"))

	time.Sleep(80 * time.Millisecond)

	result, err := ExecuteTyped(manager, "flaky", func() (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, StateClosed, manager.State("flaky"))
}

func TestManager_States(t *testing.T) {
	manager := NewManager(Settings{MaxFailures: 1, Timeout: 5 * time.Second})

	ExecuteTyped(manager, "a", func() (string, error) { return "", errors.New("fail") })
	ExecuteTyped(manager, "b", func() (string, error) { return "ok", nil })

	states := manager.States()
	assert.Len(t, states, 2)
	assert.Equal(t, StateOpen, states["a"])
	assert.Equal(t, StateClosed, states["b"])
}

func TestStateToString(t *testing.T) {
	assert.Equal(t, "closed", stateToString(StateClosed))
	assert.Equal(t, "half-open", stateToString(StateHalfOpen))
	assert.Equal(t, "open", stateToString(StateOpen))
	assert.Equal(t, "unknown", stateToString(gobreaker.State(99)))
}
