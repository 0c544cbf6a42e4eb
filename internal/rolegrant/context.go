package rolegrant

import "context"

type correlationKey struct{}

// WithCorrelationID attaches the per-message correlation id so granter
// implementations can stamp it into the platform audit log.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the attached correlation id, or "" when none is set.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}
