package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/selfieauth/internal/pkg/uid"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container in -short mode")
	}

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	opt, err := redis.ParseURL(uri)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}

	client := redis.NewClient(opt)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestLockExec(t *testing.T) {
	client := newRedis(t)
	lock := New(client, uid.NewUUID())
	ctx := context.Background()

	t.Run("SecondCallerRejectedWhileFirstRuns", func(t *testing.T) {
		// Arrange
		started := make(chan struct{})
		finish := make(chan struct{})
		done := make(chan error, 1)

		go func() {
			done <- lock.Exec(ctx, "flow-1:phone", func(context.Context) error {
				close(started)
				<-finish
				return nil
			})
		}()
		<-started

		// Act
		calls := 0
		err := lock.Exec(ctx, "flow-1:phone", func(context.Context) error {
			calls++
			return nil
		})
		close(finish)

		// Assert
		if !errors.Is(err, ErrAlreadyInProgress) {
			t.Fatalf("Exec() = %v, want ErrAlreadyInProgress", err)
		}
		if calls != 0 {
			t.Fatalf("second fn ran %d times", calls)
		}
		if err := <-done; err != nil {
			t.Fatalf("first Exec() = %v", err)
		}
	})

	t.Run("ReleasedAfterFailure", func(t *testing.T) {
		boom := errors.New("backend down")
		if err := lock.Exec(ctx, "flow-2:otp", func(context.Context) error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("Exec() = %v, want boom", err)
		}
		if err := lock.Exec(ctx, "flow-2:otp", func(context.Context) error { return nil }); err != nil {
			t.Fatalf("retry Exec() = %v", err)
		}
	})

	t.Run("ReleaseIgnoresForeignToken", func(t *testing.T) {
		token, err := lock.Acquire(ctx, "flow-3:liveness", time.Minute)
		if err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		if err := lock.Release(ctx, "flow-3:liveness", "someone-else"); err != nil {
			t.Fatalf("Release: %v", err)
		}
		if _, err := lock.Acquire(ctx, "flow-3:liveness", time.Minute); !errors.Is(err, ErrAlreadyInProgress) {
			t.Fatalf("Acquire after foreign release = %v", err)
		}
		if err := lock.Release(ctx, "flow-3:liveness", token); err != nil {
			t.Fatalf("Release owner: %v", err)
		}
	})
}
