package notifications

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cast"

	"moviepilot/internal/config"
)

const userAgent = "MoviePilot-Go/0.1.0"

// Event identifies a subscription lifecycle notification.
type Event string

const (
	EventSubscribed            Event = "subscribed"
	EventDownloadRequested     Event = "download_requested"
	EventSubscriptionCompleted Event = "subscription_completed"
	EventAlreadyHeld           Event = "already_held"
	EventCycleCompleted        Event = "cycle_completed"
	EventError                 Event = "error"
	EventTest                  Event = "test"
)

// Payload carries event-specific values. Known keys: title, image, count,
// missing, user, context, error, indexer.
type Payload map[string]any

// Service defines the notification surface exposed to the engine.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds the configured transports: ntfy when a topic is set and
// Telegram when enabled. With neither, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	var services []Service
	if topic := strings.TrimSpace(cfg.Notifications.NtfyTopic); topic != "" {
		timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		services = append(services, &ntfyService{
			endpoint: topic,
			client:   &http.Client{Timeout: timeout},
			filter:   newEventFilter(cfg.Notifications),
		})
	}
	if tg := newTelegramService(cfg); tg != nil {
		services = append(services, tg)
	}
	switch len(services) {
	case 0:
		return noopService{}
	case 1:
		return services[0]
	default:
		return Multi(services...)
	}
}

// Multi fans one event out to every service; failures are joined.
func Multi(services ...Service) Service {
	return multiService(services)
}

type multiService []Service

func (m multiService) Publish(ctx context.Context, event Event, payload Payload) error {
	var errs []error
	for _, svc := range m {
		if svc == nil {
			continue
		}
		if err := svc.Publish(ctx, event, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Message is the rendered form of an event shared by every transport.
type Message struct {
	Title    string
	Body     string
	Tags     []string
	Priority string
	Image    string
}

// Render converts an event into a Message. ok is false for events that are
// not delivered.
func Render(event Event, payload Payload) (Message, bool) {
	title := payloadString(payload, "title")
	image := payloadString(payload, "image")
	switch event {
	case EventSubscribed:
		body := fmt.Sprintf("📌 Subscribed: %s", title)
		if user := payloadString(payload, "user"); user != "" {
			body = fmt.Sprintf("%s\nRequested by: %s", body, user)
		}
		if missing := payloadInt(payload, "missing"); missing > 0 {
			body = fmt.Sprintf("%s\nMissing episodes: %d", body, missing)
		}
		return Message{
			Title: "MoviePilot - Subscribed",
			Body:  body,
			Tags:  []string{"moviepilot", "subscribe", "added"},
			Image: image,
		}, true
	case EventDownloadRequested:
		body := fmt.Sprintf("⬇️ Download started: %s (%d release(s))", title, payloadInt(payload, "count"))
		if missing := payloadInt(payload, "missing"); missing > 0 {
			body = fmt.Sprintf("%s\nStill missing: %d", body, missing)
		}
		return Message{
			Title: "MoviePilot - Downloading",
			Body:  body,
			Tags:  []string{"moviepilot", "download", "started"},
			Image: image,
		}, true
	case EventSubscriptionCompleted:
		return Message{
			Title:    "MoviePilot - Complete",
			Body:     fmt.Sprintf("✅ Subscription complete: %s", title),
			Tags:     []string{"moviepilot", "subscribe", "completed"},
			Priority: "high",
			Image:    image,
		}, true
	case EventAlreadyHeld:
		return Message{
			Title: "MoviePilot - Already In Library",
			Body:  fmt.Sprintf("📚 Already in library: %s", title),
			Tags:  []string{"moviepilot", "library", "held"},
			Image: image,
		}, true
	case EventError:
		var builder strings.Builder
		builder.WriteString("❌ Error")
		if label := payloadString(payload, "context"); label != "" {
			builder.WriteString(" with ")
			builder.WriteString(label)
		}
		builder.WriteString(": ")
		if msg := payloadString(payload, "error"); msg != "" {
			builder.WriteString(msg)
		} else {
			builder.WriteString("unknown")
		}
		return Message{
			Title:    "MoviePilot - Error",
			Body:     builder.String(),
			Tags:     []string{"moviepilot", "error", "alert"},
			Priority: "high",
		}, true
	case EventTest:
		return Message{
			Title:    "MoviePilot - Test",
			Body:     "🧪 Notification system test",
			Tags:     []string{"moviepilot", "test"},
			Priority: "low",
		}, true
	default:
		return Message{}, false
	}
}

// eventFilter applies the per-category switches from [notifications].
type eventFilter struct {
	subscribe bool
	download  bool
	errors    bool
}

func newEventFilter(cfg config.Notifications) eventFilter {
	return eventFilter{subscribe: cfg.Subscribe, download: cfg.Download, errors: cfg.Errors}
}

func (f eventFilter) allows(event Event) bool {
	switch event {
	case EventSubscribed, EventAlreadyHeld:
		return f.subscribe
	case EventDownloadRequested, EventSubscriptionCompleted:
		return f.download
	case EventError:
		return f.errors
	default:
		return true
	}
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	filter   eventFilter
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.filter.allows(event) {
		return nil
	}
	msg, ok := Render(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) send(ctx context.Context, data Message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.Body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.Title != "" {
		req.Header.Set("Title", data.Title)
	}
	if len(data.Tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.Tags, ","))
	}
	if data.Priority != "" && data.Priority != "default" {
		req.Header.Set("Priority", data.Priority)
	}
	if data.Image != "" {
		req.Header.Set("Attach", data.Image)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }

func payloadString(payload Payload, key string) string {
	if payload == nil {
		return ""
	}
	return strings.TrimSpace(cast.ToString(payload[key]))
}

func payloadInt(payload Payload, key string) int {
	if payload == nil {
		return 0
	}
	return cast.ToInt(payload[key])
}
