package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"moviepilot/internal/logging"
)

// Handler executes chat commands.
type Handler interface {
	// ListSubscriptions renders the current subscriptions as plain text.
	ListSubscriptions(ctx context.Context) (string, error)
	// SearchAll runs a direct search for every matching subscription.
	SearchAll(ctx context.Context) error
	// RunCycle runs one refresh and match cycle.
	RunCycle(ctx context.Context) error
	// Subscribe adds a subscription from free text and returns a reply.
	Subscribe(ctx context.Context, text, user string) (string, error)
}

// Poller receives chat commands through getUpdates long polling.
type Poller struct {
	bot     *Bot
	handler Handler
	logger  *slog.Logger
	timeout time.Duration
	backoff time.Duration

	offset int64
	wg     sync.WaitGroup
}

// NewPoller wires a receive loop for bot.
func NewPoller(bot *Bot, handler Handler, pollTimeout time.Duration, logger *slog.Logger) *Poller {
	if pollTimeout <= 0 {
		pollTimeout = 30 * time.Second
	}
	return &Poller{
		bot:     bot,
		handler: handler,
		logger:  logging.NewComponentLogger(logger, "telegram"),
		timeout: pollTimeout,
		backoff: 5 * time.Second,
	}
}

// Run polls until ctx is cancelled. Cancellation is observed between polls;
// an outstanding getUpdates request and running commands finish first.
func (p *Poller) Run(ctx context.Context) error {
	if p == nil || p.bot == nil || p.handler == nil {
		return errors.New("telegram poller not configured")
	}
	defer p.wg.Wait()

	p.logger.Info("telegram receiver started", logging.String("chat_id", p.bot.ChatID()))
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("telegram receiver stopped")
			return nil
		default:
		}

		updates, err := p.bot.Updates(context.WithoutCancel(ctx), p.offset, p.timeout)
		if err != nil {
			logging.WarnWithContext(p.logger, "telegram poll failed; retrying", "telegram_poll_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check telegram.token and network access"),
				logging.String(logging.FieldImpact, "chat commands are delayed"),
			)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(p.backoff):
			}
			continue
		}
		for _, update := range updates {
			if update.UpdateID >= p.offset {
				p.offset = update.UpdateID + 1
			}
			p.dispatch(ctx, update)
		}
	}
}

func (p *Poller) dispatch(ctx context.Context, update Update) {
	msg := update.Message
	if msg == nil || strings.TrimSpace(msg.Text) == "" {
		return
	}
	if strconv.FormatInt(msg.Chat.ID, 10) != p.bot.ChatID() {
		p.logger.Debug("ignoring message from unknown chat", logging.Int64("chat", msg.Chat.ID))
		return
	}
	command, text := parseCommand(msg.Text)
	p.logger.Info("telegram command received",
		logging.String("command", command),
		logging.String("user", msg.Sender()),
	)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		reply := p.execute(ctx, command, text, msg.Sender())
		if reply == "" {
			return
		}
		if err := p.bot.Reply(context.WithoutCancel(ctx), reply); err != nil {
			logging.WarnWithContext(p.logger, "telegram reply failed", "telegram_reply_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check telegram.chat_id"),
				logging.String(logging.FieldImpact, "command result not delivered"),
			)
		}
	}()
}

func (p *Poller) execute(ctx context.Context, command, text, user string) string {
	switch command {
	case "/subscribes":
		out, err := p.handler.ListSubscriptions(ctx)
		if err != nil {
			return fmt.Sprintf("Listing subscriptions failed: %v", err)
		}
		return out
	case "/search":
		if err := p.handler.SearchAll(ctx); err != nil {
			return fmt.Sprintf("Search failed: %v", err)
		}
		return "Search finished"
	case "/refresh":
		if err := p.handler.RunCycle(ctx); err != nil {
			return fmt.Sprintf("Refresh failed: %v", err)
		}
		return "Refresh finished"
	case "":
		out, err := p.handler.Subscribe(ctx, text, user)
		if err != nil {
			return fmt.Sprintf("Subscribe failed: %v", err)
		}
		return out
	default:
		return fmt.Sprintf("Unknown command %s", command)
	}
}

// parseCommand splits "/cmd@bot args" into ("/cmd", "args"). Plain text
// returns an empty command.
func parseCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", text
	}
	command, rest, _ := strings.Cut(text, " ")
	if at := strings.IndexByte(command, '@'); at > 0 {
		command = command[:at]
	}
	return strings.ToLower(command), strings.TrimSpace(rest)
}
