package mqttbus

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/hammamikhairi/doorpanel/internal/logger"
)

func TestRunRetriesUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	attempts := 0
	dial := func(context.Context, string) (io.ReadWriteCloser, error) {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts == 3 {
			cancel()
		}
		return nil, errors.New("connection refused")
	}

	s := New("broker:1883", "doorpanel-test", []string{"home/doorbell"},
		func(string, Payload) {}, logger.New(logger.LevelOff, nil),
		WithDialer(dial), WithBackoff(time.Millisecond))

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v, want nil on cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}
