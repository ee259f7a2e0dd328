package config

import (
	"testing"
	"time"
)

const sampleYAML = `
app:
  env: local
modules:
  auth:
    flow_ttl_minutes: 30
    inflight_lock_seconds: 15
    liveness:
      prompts:
        - "Look straight into the camera"
        - "Smile!"
      origins: "a, b,,c"
`

func TestViperFromBytes(t *testing.T) {
	// Arrange
	cfg, err := NewViperFromBytes("yaml", []byte(sampleYAML))
	if err != nil {
		t.Fatalf("NewViperFromBytes: %v", err)
	}

	t.Run("Durations", func(t *testing.T) {
		if got := cfg.GetMinute("modules.auth.flow_ttl_minutes"); got != 30*time.Minute {
			t.Fatalf("GetMinute = %v, want 30m", got)
		}
		if got := cfg.GetSecond("modules.auth.inflight_lock_seconds"); got != 15*time.Second {
			t.Fatalf("GetSecond = %v, want 15s", got)
		}
	})

	t.Run("ArrayFromSequence", func(t *testing.T) {
		got := cfg.GetArray("modules.auth.liveness.prompts")
		if len(got) != 2 || got[1] != "Smile!" {
			t.Fatalf("GetArray = %#v", got)
		}
	})

	t.Run("ArrayFromCommaString", func(t *testing.T) {
		got := cfg.GetArray("modules.auth.liveness.origins")
		if len(got) != 3 || got[0] != "a" || got[2] != "c" {
			t.Fatalf("GetArray = %#v", got)
		}
	})

	t.Run("EnvOverride", func(t *testing.T) {
		t.Setenv("SELFIEAUTH_APP_ENV", "production")
		if got := cfg.GetString("app.env"); got != "production" {
			t.Fatalf("GetString = %q, want production", got)
		}
	})
}

func TestViperFromBytesRequiresType(t *testing.T) {
	if _, err := NewViperFromBytes(" ", nil); err == nil {
		t.Fatal("expected error for empty config type")
	}
}
