package util

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Iron-Ham/cypher/internal/errors"
)

func TestCallWithTimeout(t *testing.T) {
	t.Run("returns value", func(t *testing.T) {
		v, err := CallWithTimeout(context.Background(), "op", time.Second, func(ctx context.Context) (string, error) {
			return "ok", nil
		})
		if err != nil || v != "ok" {
			t.Errorf("got %q, %v", v, err)
		}
	})

	t.Run("returns error", func(t *testing.T) {
		_, err := CallWithTimeout(context.Background(), "op", time.Second, func(ctx context.Context) (int, error) {
			return 0, fmt.Errorf("boom")
		})
		if err == nil || err.Error() != "boom" {
			t.Errorf("err = %v, want boom", err)
		}
	})

	t.Run("times out on blocking call", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)

		start := time.Now()
		_, err := CallWithTimeout(context.Background(), "generation", 20*time.Millisecond, func(ctx context.Context) (string, error) {
			<-release
			return "late", nil
		})
		if !errors.Is(err, errors.ErrTimeout) {
			t.Errorf("err = %v, want ErrTimeout", err)
		}
		if time.Since(start) > time.Second {
			t.Error("CallWithTimeout did not return at the deadline")
		}
	})

	t.Run("parent cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := CallWithTimeout(ctx, "op", time.Second, func(ctx context.Context) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		})
		if err == nil {
			t.Error("expected error for canceled parent")
		}
	})
}

func TestCallWithTimeout_RecoversPanic(t *testing.T) {
	_, err := CallWithTimeout(context.Background(), "adjudication", time.Second, func(ctx context.Context) (string, error) {
		panic("judge fell over")
	})
	if err == nil {
		t.Fatal("expected error from panicking call")
	}
	if !strings.Contains(err.Error(), "adjudication panicked") {
		t.Errorf("err = %v", err)
	}
}
