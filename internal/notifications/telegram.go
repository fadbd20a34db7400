package notifications

import (
	"context"

	"moviepilot/internal/config"
	"moviepilot/internal/telegram"
)

type telegramService struct {
	bot    *telegram.Bot
	filter eventFilter
}

func newTelegramService(cfg *config.Config) Service {
	bot := telegram.NewBot(cfg.Telegram)
	if bot == nil {
		return nil
	}
	return &telegramService{bot: bot, filter: newEventFilter(cfg.Notifications)}
}

func (s *telegramService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !s.filter.allows(event) {
		return nil
	}
	msg, ok := Render(event, payload)
	if !ok {
		return nil
	}
	return s.bot.Send(ctx, msg.Title, msg.Body, msg.Image)
}
