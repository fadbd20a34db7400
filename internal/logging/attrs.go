package logging

import (
	"log/slog"
	"time"
)

// Attr aliases slog.Attr so callers need only this package.
type Attr = slog.Attr

func String(key, value string) Attr                 { return slog.String(key, value) }
func Int(key string, value int) Attr                { return slog.Int(key, value) }
func Int64(key string, value int64) Attr            { return slog.Int64(key, value) }
func Float64(key string, value float64) Attr        { return slog.Float64(key, value) }
func Bool(key string, value bool) Attr              { return slog.Bool(key, value) }
func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

// Error renders err under the "error" key; nil yields an explicit marker
// rather than an empty field.
func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "none")
	}
	return slog.String("error", err.Error())
}

// Subscription tags a line with a subscription id.
func Subscription(id int64) Attr { return slog.Int64(FieldSubscriptionID, id) }

// Source tags a line with an indexer name.
func Source(name string) Attr { return slog.String(FieldSource, name) }

// Args converts attributes into the variadic form slog's level methods take.
func Args(attrs ...Attr) []any {
	out := make([]any, len(attrs))
	for i := range attrs {
		out[i] = attrs[i]
	}
	return out
}

// DecisionAttrs describes a branch the engine took: what was decided, the
// outcome and the reason.
func DecisionAttrs(kind, result, reason string) []Attr {
	return []Attr{
		slog.String(FieldDecisionType, kind),
		slog.String("decision_result", result),
		slog.String("decision_reason", reason),
	}
}
