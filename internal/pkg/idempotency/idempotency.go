// Package idempotency guards an operation so only one caller runs it for a
// given key at a time. A second caller arriving while the first is still
// running is turned away instead of queued.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrAlreadyInProgress is returned when another caller holds the key.
var ErrAlreadyInProgress = errors.New("operation already in progress")

const defaultLockDuration = 30 * time.Second

// Idempotency runs fn while holding key.
type Idempotency interface {
	Exec(ctx context.Context, key string, fn func(context.Context) error, opts ...Option) error
}

type generator interface {
	Generate() string
}

// Option tunes a single Exec call.
type Option func(*execOptions)

type execOptions struct {
	lockDuration time.Duration
}

// WithLockDuration caps how long the key stays held if the holder never
// releases it, for example after a crash.
func WithLockDuration(d time.Duration) Option {
	return func(o *execOptions) {
		o.lockDuration = d
	}
}

// releaseScript deletes the key only while it still holds our token, so a
// lock that expired and was taken by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock is the redis-backed Idempotency.
type Lock struct {
	client redis.UniversalClient
	prefix string
	tokens generator
}

// New builds a Lock. tokens produces the per-acquisition owner value.
func New(client redis.UniversalClient, tokens generator) *Lock {
	return &Lock{
		client: client,
		prefix: "inflight:",
		tokens: tokens,
	}
}

// Acquire takes key for at most d. It returns the owner token, or
// ErrAlreadyInProgress when someone else holds it.
func (l *Lock) Acquire(ctx context.Context, key string, d time.Duration) (string, error) {
	token := l.tokens.Generate()

	acquired, err := l.client.SetNX(ctx, l.prefix+key, token, d).Result()
	if err != nil {
		return "", err
	}
	if !acquired {
		return "", ErrAlreadyInProgress
	}

	return token, nil
}

// Release gives key back if token still owns it.
func (l *Lock) Release(ctx context.Context, key, token string) error {
	return releaseScript.Run(ctx, l.client, []string{l.prefix + key}, token).Err()
}

// Exec runs fn while holding key. The key is released when fn returns,
// whatever the outcome, so a failed submission can be retried at once.
func (l *Lock) Exec(ctx context.Context, key string, fn func(context.Context) error, opts ...Option) error {
	o := execOptions{lockDuration: defaultLockDuration}
	for _, opt := range opts {
		opt(&o)
	}
	if o.lockDuration <= 0 {
		o.lockDuration = defaultLockDuration
	}

	token, err := l.Acquire(ctx, key, o.lockDuration)
	if err != nil {
		return err
	}

	defer func() {
		// the caller may have been cancelled; release must still happen
		_ = l.Release(context.WithoutCancel(ctx), key, token)
	}()

	return fn(ctx)
}
