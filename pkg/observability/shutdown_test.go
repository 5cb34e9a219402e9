package observability

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewShutdownManager tests the creation of a new shutdown manager
func TestNewShutdownManager(t *testing.T) {
	tests := []struct {
		name            string
		timeout         time.Duration
		expectedTimeout time.Duration
	}{
		{name: "with custom timeout", timeout: 10 * time.Second, expectedTimeout: 10 * time.Second},
		{name: "with zero timeout uses default", timeout: 0, expectedTimeout: 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := bufferLogger()
			server := &http.Server{}

			sm := NewShutdownManager(logger, server, tt.timeout)
			require.NotNil(t, sm)
			assert.Same(t, logger, sm.logger)
			assert.Same(t, server, sm.server)
			assert.Equal(t, tt.expectedTimeout, sm.shutdownTimeout)
		})
	}
}

func TestShutdownManager_RunsFuncs(t *testing.T) {
	logger, _ := bufferLogger()
	sm := NewShutdownManager(logger, nil, time.Second)

	var calls atomic.Int32
	for i := 0; i < 3; i++ {
		sm.RegisterShutdownFunc(func(ctx context.Context) error {
			calls.Add(1)
			return nil
		})
	}

	require.NoError(t, sm.Shutdown())
	assert.Equal(t, int32(3), calls.Load())
}

func TestShutdownManager_CollectsErrors(t *testing.T) {
	logger, _ := bufferLogger()
	sm := NewShutdownManager(logger, nil, time.Second)
	sm.RegisterShutdownFunc(func(ctx context.Context) error { return errors.New("one") })
	sm.RegisterShutdownFunc(func(ctx context.Context) error { return nil })
	sm.RegisterShutdownFunc(func(ctx context.Context) error { return errors.New("two") })

	err := sm.Shutdown()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 errors")
}

func TestShutdownManager_Timeout(t *testing.T) {
	logger, _ := bufferLogger()
	sm := NewShutdownManager(logger, nil, 50*time.Millisecond)

	release := make(chan struct{})
	defer close(release)
	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		<-release
		return nil
	})

	err := sm.Shutdown()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestShutdownManager_WaitForShutdownOnContext(t *testing.T) {
	logger, buf := bufferLogger()
	sm := NewShutdownManager(logger, &http.Server{}, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sm.WaitForShutdown(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
		assert.Contains(t, buf.String(), "Graceful shutdown complete")
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForShutdown did not return after cancellation")
	}
}
