package observability

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewShutdownManager_Defaults(t *testing.T) {
	sm := NewShutdownManager(nil, 0)
	assert.Equal(t, 30*time.Second, sm.timeout)
	assert.NotNil(t, sm.logger)
}

func TestShutdown_RunsFunctions(t *testing.T) {
	sm := NewShutdownManager(NewLogger("error", &bytes.Buffer{}), time.Second, &http.Server{})

	var calls int32
	for i := 0; i < 3; i++ {
		sm.RegisterShutdownFunc(func(ctx context.Context) error {
			atomic.AddInt32(&calls, 1)
			return nil
		})
	}
	sm.RegisterShutdownFunc(nil)

	assert.NoError(t, sm.Shutdown())
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestShutdown_CollectsErrors(t *testing.T) {
	sm := NewShutdownManager(NewLogger("error", &bytes.Buffer{}), time.Second)
	boom := errors.New("boom")
	sm.RegisterShutdownFunc(func(ctx context.Context) error { return boom })

	err := sm.Shutdown()
	assert.ErrorIs(t, err, boom)
}

func TestShutdown_Timeout(t *testing.T) {
	sm := NewShutdownManager(NewLogger("error", &bytes.Buffer{}), 20*time.Millisecond)
	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		time.Sleep(200 * time.Millisecond)
		return nil
	})

	assert.EqualError(t, sm.Shutdown(), "shutdown timeout reached")
}

func TestWaitForShutdown(t *testing.T) {
	sm := NewShutdownManager(NewLogger("error", &bytes.Buffer{}), time.Second)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- sm.WaitForShutdown(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("WaitForShutdown did not return")
	}
}
