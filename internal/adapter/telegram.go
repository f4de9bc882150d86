package adapter

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ashimregmi/sathi/internal/config"
	sathiErrors "github.com/ashimregmi/sathi/internal/errors"
)

// TelegramAdapter long-polls the Bot API and answers each message with
// the agent's reply in the same chat.
type TelegramAdapter struct {
	token         string
	updateTimeout int
	handler       Handler
	bot           *tgbotapi.BotAPI
}

func NewTelegramAdapter(cfg config.TelegramConfig, handler Handler) *TelegramAdapter {
	timeout := cfg.UpdateTimeout
	if timeout <= 0 {
		timeout = config.DefaultTelegramUpdateTimeout
	}
	return &TelegramAdapter{
		token:         cfg.BotToken,
		updateTimeout: timeout,
		handler:       handler,
	}
}

func (t *TelegramAdapter) Name() string { return "telegram" }

func (t *TelegramAdapter) Start(ctx context.Context) error {
	bot, err := tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return sathiErrors.Wrap(err, "init telegram bot")
	}
	t.bot = bot

	slog.Info("Telegram adapter started", "user", bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = t.updateTimeout
	updates := bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				bot.StopReceivingUpdates()
				return
			case update := <-updates:
				t.handleUpdate(ctx, update)
			}
		}
	}()

	return nil
}

func (t *TelegramAdapter) Stop(ctx context.Context) error {
	if t.bot != nil {
		t.bot.StopReceivingUpdates()
	}
	return nil
}

func (t *TelegramAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}

	msg := update.Message
	sessionID := fmt.Sprintf("telegram:%d", msg.Chat.ID)

	reply := t.handler(ctx, sessionID, t.Name(), msg.Text)
	if reply == "" {
		return
	}

	out := tgbotapi.NewMessage(msg.Chat.ID, reply)
	if _, err := t.bot.Send(out); err != nil {
		slog.Error("Failed to send telegram reply", "chat", msg.Chat.ID, "error", err)
	}
}

func (t *TelegramAdapter) Health(ctx context.Context) error {
	if t.bot == nil {
		return sathiErrors.Transient("telegram bot not initialized")
	}
	if _, err := t.bot.GetMe(); err != nil {
		return sathiErrors.Transient("telegram connection failed: " + err.Error())
	}
	return nil
}
