package services_test

import (
	"context"
	"testing"

	"moviepilot/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithSubscriptionID(ctx, 42)
	ctx = services.WithCycleID(ctx, "cycle-1")
	ctx = services.WithSource(ctx, "nzbgeek")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.SubscriptionIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("unexpected subscription id: %v %v", id, ok)
	}
	if cycle, ok := services.CycleIDFromContext(ctx); !ok || cycle != "cycle-1" {
		t.Fatalf("unexpected cycle id: %v %v", cycle, ok)
	}
	if source, ok := services.SourceFromContext(ctx); !ok || source != "nzbgeek" {
		t.Fatalf("unexpected source: %v %v", source, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithCycleID(ctx, "")
	ctx = services.WithSource(ctx, "")
	if _, ok := services.CycleIDFromContext(ctx); ok {
		t.Fatal("expected no cycle value")
	}
	if _, ok := services.SourceFromContext(ctx); ok {
		t.Fatal("expected no source value")
	}
}
