package services_test

import (
	"errors"
	"strings"
	"testing"

	"moviepilot/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "indexer", "search", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"indexer", "search", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestRetryableClassification(t *testing.T) {
	validationErr := services.Wrap(services.ErrValidation, "subscription", "add", "invalid", nil)
	if services.Retryable(validationErr) {
		t.Fatal("expected validation error to be final")
	}

	transientErr := services.Wrap(services.ErrTransient, "download", "append", "rpc failed", errors.New("io"))
	if !services.Retryable(transientErr) {
		t.Fatal("expected transient error to be retryable")
	}

	if services.Retryable(nil) {
		t.Fatal("expected nil error to not be retryable")
	}
}
