package goroutine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestManager(t *testing.T) {
	t.Run("WaitCollectsErrors", func(t *testing.T) {
		// Arrange
		m := NewManager(4)
		boom := errors.New("publish failed")
		var ran atomic.Int32

		// Act
		m.Go(context.Background(), func(context.Context) error { ran.Add(1); return nil })
		m.Go(context.Background(), func(context.Context) error { ran.Add(1); return boom })
		err := m.Wait()

		// Assert
		if !errors.Is(err, boom) {
			t.Fatalf("Wait() = %v, want boom", err)
		}
		if ran.Load() != 2 {
			t.Fatalf("ran = %d, want 2", ran.Load())
		}
	})

	t.Run("DropsWhenFull", func(t *testing.T) {
		m := NewManager(1)
		release := make(chan struct{})
		m.Go(context.Background(), func(context.Context) error { <-release; return nil })
		m.Go(context.Background(), func(context.Context) error { return nil })

		if m.Dropped() != 1 {
			t.Fatalf("Dropped() = %d, want 1", m.Dropped())
		}
		close(release)
		if err := m.Wait(); err != nil {
			t.Fatalf("Wait() = %v", err)
		}
	})

	t.Run("SurvivesCancelledParent", func(t *testing.T) {
		m := NewManager(1)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var ctxErr error
		m.Go(ctx, func(c context.Context) error { ctxErr = c.Err(); return nil })
		_ = m.Wait()

		if ctxErr != nil {
			t.Fatalf("task context err = %v, want nil", ctxErr)
		}
	})

	t.Run("RecoversPanic", func(t *testing.T) {
		m := NewManager(1)
		m.Go(context.Background(), func(context.Context) error { panic("kaboom") })
		if err := m.Wait(); err != nil {
			t.Fatalf("Wait() = %v", err)
		}
	})

	t.Run("ClosedRejects", func(t *testing.T) {
		m := NewManager(1)
		_ = m.Wait()
		m.Go(context.Background(), func(context.Context) error { return nil })
		if m.Dropped() != 1 {
			t.Fatalf("Dropped() = %d, want 1", m.Dropped())
		}
	})
}
