package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"moviepilot/internal/config"
	"moviepilot/internal/services"
)

// Bot is a minimal Telegram Bot API client.
type Bot struct {
	baseURL string
	token   string
	chatID  string
	client  *http.Client
}

// NewBot builds a client for the configured bot. It returns nil when the bot
// is disabled or lacks credentials.
func NewBot(cfg config.Telegram) *Bot {
	token := strings.TrimSpace(cfg.Token)
	chatID := strings.TrimSpace(cfg.ChatID)
	if !cfg.Enabled || token == "" || chatID == "" {
		return nil
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	poll := time.Duration(cfg.PollTimeoutSeconds) * time.Second
	if poll <= 0 {
		poll = 30 * time.Second
	}
	return &Bot{
		baseURL: baseURL,
		token:   token,
		chatID:  chatID,
		// Long polls hold the connection for the poll timeout.
		client: &http.Client{Timeout: poll + 10*time.Second},
	}
}

// ChatID returns the chat the bot serves.
func (b *Bot) ChatID() string { return b.chatID }

// Send posts title and text to the chat, as a photo caption when image is set.
func (b *Bot) Send(ctx context.Context, title, text, image string) error {
	body := FormatMessage(title, text)
	if strings.TrimSpace(image) != "" {
		return b.call(ctx, "sendPhoto", map[string]any{
			"chat_id":    b.chatID,
			"photo":      image,
			"caption":    body,
			"parse_mode": "MarkdownV2",
		}, nil)
	}
	return b.call(ctx, "sendMessage", map[string]any{
		"chat_id":    b.chatID,
		"text":       body,
		"parse_mode": "MarkdownV2",
	}, nil)
}

// Reply sends plain text to the chat.
func (b *Bot) Reply(ctx context.Context, text string) error {
	return b.call(ctx, "sendMessage", map[string]any{
		"chat_id": b.chatID,
		"text":    text,
	}, nil)
}

// Update is a single getUpdates entry.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// Message is the subset of a Telegram message the poller reads.
type Message struct {
	MessageID int64  `json:"message_id"`
	Text      string `json:"text"`
	From      struct {
		Username  string `json:"username"`
		FirstName string `json:"first_name"`
	} `json:"from"`
	Chat struct {
		ID int64 `json:"id"`
	} `json:"chat"`
}

// Sender returns a display name for the message author.
func (m Message) Sender() string {
	if m.From.Username != "" {
		return m.From.Username
	}
	return m.From.FirstName
}

// Updates long-polls for updates after offset.
func (b *Bot) Updates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	var updates []Update
	err := b.call(ctx, "getUpdates", map[string]any{
		"offset":          offset,
		"timeout":         int(timeout / time.Second),
		"allowed_updates": []string{"message"},
	}, &updates)
	return updates, err
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

func (b *Bot) call(ctx context.Context, method string, params map[string]any, out any) error {
	payload, err := json.Marshal(params)
	if err != nil {
		return services.Wrap(services.ErrValidation, "telegram", method, "encode request", err)
	}
	endpoint := fmt.Sprintf("%s/bot%s/%s", b.baseURL, b.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return services.Wrap(services.ErrValidation, "telegram", method, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "telegram", method, "request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return services.Wrap(services.ErrTransient, "telegram", method, "read response", err)
	}
	var decoded apiResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return services.Wrap(services.ErrExternalTool, "telegram", method,
			fmt.Sprintf("decode response (status %d)", resp.StatusCode), err)
	}
	if !decoded.OK {
		marker := services.ErrExternalTool
		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusNotFound:
			marker = services.ErrConfiguration
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			marker = services.ErrTransient
		}
		return services.Wrap(marker, "telegram", method,
			fmt.Sprintf("api returned %d: %s", resp.StatusCode, decoded.Description), nil)
	}
	if out != nil && len(decoded.Result) > 0 {
		if err := json.Unmarshal(decoded.Result, out); err != nil {
			return services.Wrap(services.ErrExternalTool, "telegram", method, "decode result", err)
		}
	}
	return nil
}
