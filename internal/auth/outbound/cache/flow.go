// Package cache stores authentication flows in redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/selfieauth/internal/auth/entity"
	"github.com/shandysiswandi/selfieauth/internal/pkg/goerror"
	"github.com/shandysiswandi/selfieauth/internal/pkg/instrument"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	keyPrefix  = "flow:"
	defaultTTL = 30 * time.Minute
)

// Flow keeps each flow as a JSON document that expires ttl after its last save.
type Flow struct {
	client redis.UniversalClient
	ttl    time.Duration
	ins    instrument.Instrumentation
}

func NewFlow(client redis.UniversalClient, ttl time.Duration, ins instrument.Instrumentation) *Flow {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Flow{client: client, ttl: ttl, ins: ins}
}

// GetFlow returns goerror.ErrNotFound when the flow is absent or expired.
func (f *Flow) GetFlow(ctx context.Context, id string) (*entity.Flow, error) {
	ctx, span := f.ins.Tracer("auth.outbound.cache").Start(ctx, "GetFlow")
	defer span.End()

	raw, err := f.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return nil, goerror.ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var flow entity.Flow
	if err := json.Unmarshal(raw, &flow); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Bool("cache.hit", true))
	return &flow, nil
}

func (f *Flow) SaveFlow(ctx context.Context, flow *entity.Flow) error {
	ctx, span := f.ins.Tracer("auth.outbound.cache").Start(ctx, "SaveFlow")
	defer span.End()

	raw, err := json.Marshal(flow)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := f.client.Set(ctx, keyPrefix+flow.ID, raw, f.ttl).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
