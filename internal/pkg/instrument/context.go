package instrument

import (
	"context"
	"regexp"
)

// CorrelationIDHeader carries the request correlation id in and out of the service.
const CorrelationIDHeader = "X-Correlation-ID"

// invalidCorrelationID is returned when nothing usable is stored in the context.
const invalidCorrelationID = "[invalid_correlation_id]"

type correlationIDKey struct{}

var correlationIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// SetCorrelationID returns a copy of ctx carrying id.
func SetCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// GetCorrelationID returns the correlation id stored in ctx, or a placeholder
// when none was set.
func GetCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return invalidCorrelationID
	}
	if id, ok := ctx.Value(correlationIDKey{}).(string); ok && id != "" {
		return id
	}
	return invalidCorrelationID
}

// ValidCorrelationID reports whether an incoming header value can be trusted
// as a correlation id.
func ValidCorrelationID(id string) bool {
	return correlationIDPattern.MatchString(id)
}
