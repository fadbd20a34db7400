package services

import "context"

type contextKey string

const (
	subscriptionIDKey contextKey = "subscription_id"
	cycleIDKey        contextKey = "cycle_id"
	sourceKey         contextKey = "source"
	requestIDKey      contextKey = "request_id"
)

// WithSubscriptionID annotates context with the subscription identifier.
func WithSubscriptionID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, subscriptionIDKey, id)
}

// SubscriptionIDFromContext extracts the subscription identifier if present.
func SubscriptionIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(subscriptionIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithCycleID annotates context with the reconciliation cycle identifier.
func WithCycleID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, cycleIDKey, id)
}

// CycleIDFromContext returns the cycle identifier if present.
func CycleIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(cycleIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithSource annotates context with the indexer source name.
func WithSource(ctx context.Context, source string) context.Context {
	if source == "" {
		return ctx
	}
	return context.WithValue(ctx, sourceKey, source)
}

// SourceFromContext returns the indexer source name if present.
func SourceFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(sourceKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
