package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"moviepilot/internal/config"
	"moviepilot/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventSubscribed, notifications.Payload{"title": "Example"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:          "subscribed",
			event:         notifications.EventSubscribed,
			payload:       notifications.Payload{"title": "Dark (2017) S01", "user": "alice"},
			expectTitle:   "MoviePilot - Subscribed",
			expectMessage: "📌 Subscribed: Dark (2017) S01\nRequested by: alice",
			expectTags:    "moviepilot,subscribe,added",
		},
		{
			name:          "download requested",
			event:         notifications.EventDownloadRequested,
			payload:       notifications.Payload{"title": "Dark (2017) S01", "count": 2, "missing": int64(1)},
			expectTitle:   "MoviePilot - Downloading",
			expectMessage: "⬇️ Download started: Dark (2017) S01 (2 release(s))\nStill missing: 1",
			expectTags:    "moviepilot,download,started",
		},
		{
			name:           "completed",
			event:          notifications.EventSubscriptionCompleted,
			payload:        notifications.Payload{"title": "Heat (1995)"},
			expectTitle:    "MoviePilot - Complete",
			expectMessage:  "✅ Subscription complete: Heat (1995)",
			expectTags:     "moviepilot,subscribe,completed",
			expectPriority: "high",
		},
		{
			name:  "error",
			event: notifications.EventError,
			payload: notifications.Payload{
				"context": "refresh",
				"error":   errors.New("indexer offline"),
			},
			expectTitle:    "MoviePilot - Error",
			expectMessage:  "❌ Error with refresh: indexer offline",
			expectTags:     "moviepilot,error,alert",
			expectPriority: "high",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Errorf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceHonoursCategorySwitches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call for suppressed event: %s", r.Header.Get("Title"))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Subscribe = false
	cfg.Notifications.Download = false

	svc := notifications.NewService(&cfg)
	suppressed := []notifications.Event{
		notifications.EventSubscribed,
		notifications.EventAlreadyHeld,
		notifications.EventDownloadRequested,
		notifications.EventSubscriptionCompleted,
		notifications.EventCycleCompleted,
	}
	for _, event := range suppressed {
		if err := svc.Publish(context.Background(), event, notifications.Payload{"title": "ignored"}); err != nil {
			t.Fatalf("expected no error for suppressed event %s, got %v", event, err)
		}
	}
}

func TestNtfyServiceReportsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic closed", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	err := notifications.NewService(&cfg).Publish(context.Background(), notifications.EventTest, nil)
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}

func TestNewServiceFansOutToTelegram(t *testing.T) {
	var ntfyCalls, telegramCalls atomic.Int32
	ntfy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ntfyCalls.Add(1)
	}))
	defer ntfy.Close()
	tg := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		telegramCalls.Add(1)
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer tg.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ntfy.URL
	cfg.Telegram = config.Telegram{Enabled: true, Token: "tok", ChatID: "1", BaseURL: tg.URL}

	if err := notifications.NewService(&cfg).Publish(context.Background(), notifications.EventTest, nil); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if ntfyCalls.Load() != 1 || telegramCalls.Load() != 1 {
		t.Fatalf("expected one call per transport, got ntfy=%d telegram=%d", ntfyCalls.Load(), telegramCalls.Load())
	}
}

type recordingService struct {
	events []notifications.Event
	err    error
}

func (r *recordingService) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	r.events = append(r.events, event)
	return r.err
}

func TestMultiJoinsErrors(t *testing.T) {
	ok := &recordingService{}
	bad := &recordingService{err: errors.New("boom")}
	err := notifications.Multi(ok, bad).Publish(context.Background(), notifications.EventTest, nil)
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(ok.events) != 1 || len(bad.events) != 1 {
		t.Fatal("expected every service to receive the event")
	}
}
