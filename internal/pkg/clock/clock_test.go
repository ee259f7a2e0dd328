package clock

import (
	"testing"
	"time"
)

func TestManual(t *testing.T) {
	t.Run("FrozenUntilAdvanced", func(t *testing.T) {
		// Arrange
		start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		c := NewManual(start)

		// Act
		first := c.Now()
		c.Advance(1500 * time.Millisecond)
		second := c.Now()

		// Assert
		if !first.Equal(start) {
			t.Fatalf("Now() = %v, want %v", first, start)
		}
		if got := second.Sub(start); got != 1500*time.Millisecond {
			t.Fatalf("elapsed = %v, want 1.5s", got)
		}
	})

	t.Run("Set", func(t *testing.T) {
		// Arrange
		c := NewManual(time.Time{})
		target := time.Unix(1700000000, 0)

		// Act
		c.Set(target)

		// Assert
		if !c.Now().Equal(target) {
			t.Fatalf("Now() = %v, want %v", c.Now(), target)
		}
	})
}
