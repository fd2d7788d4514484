package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hray3182/amaa-remind/internal/assistant"
)

// Handler is satisfied by *assistant.Service.
type Handler interface {
	ProcessInboundMessage(ctx context.Context, chatID int64, text string) error
}

type Bot struct {
	api      *tgbotapi.BotAPI
	handler  Handler
	logger   *slog.Logger
	inflight sync.WaitGroup
}

func New(api *tgbotapi.BotAPI, handler Handler, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{api: api, handler: handler, logger: logger}
}

// RegisterCommands publishes the command menu.
func (b *Bot) RegisterCommands() error {
	if _, err := b.api.Request(commandsConfig()); err != nil {
		return fmt.Errorf("failed to set bot commands: %w", err)
	}
	return nil
}

func commandsConfig() tgbotapi.SetMyCommandsConfig {
	cmds := make([]tgbotapi.BotCommand, 0, len(assistant.Commands))
	for _, c := range assistant.Commands {
		cmds = append(cmds, tgbotapi.BotCommand{Command: c.Name, Description: c.Description})
	}
	return tgbotapi.NewSetMyCommands(cmds...)
}

// SetWebhook points Telegram at url, or removes the webhook when url is
// empty so long polling can be used.
func (b *Bot) SetWebhook(url string) error {
	if url == "" {
		_, err := b.api.Request(tgbotapi.DeleteWebhookConfig{})
		return err
	}
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("invalid webhook url: %w", err)
	}
	if _, err := b.api.Request(wh); err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}
	return nil
}

// Start long-polls for updates until ctx is done, handling each on its own
// goroutine. It waits for in-flight updates before returning.
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Authorized on account", "username", b.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.inflight.Wait()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.inflight.Add(1)
			go func() {
				defer b.inflight.Done()
				HandleUpdate(ctx, b.handler, b.logger, update)
			}()
		}
	}
}

// HandleUpdate routes one update to h. Updates without message text are
// ignored.
func HandleUpdate(ctx context.Context, h Handler, logger *slog.Logger, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil || msg.Text == "" {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic while handling update", "update_id", update.UpdateID, "panic", r)
		}
	}()

	if err := h.ProcessInboundMessage(ctx, msg.Chat.ID, msg.Text); err != nil {
		logger.Error("Failed to handle message", "chat_id", msg.Chat.ID, "error", err)
	}
}
