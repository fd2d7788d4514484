package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hray3182/amaa-remind/internal/format"
	"github.com/hray3182/amaa-remind/internal/models"
)

// API is the part of *tgbotapi.BotAPI the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Sender delivers outgoing messages as Telegram text with entities.
type Sender struct {
	api API
}

func NewSender(api API) *Sender {
	return &Sender{api: api}
}

func (s *Sender) Send(ctx context.Context, msg models.OutgoingMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	parsed := format.ParseMarkdown(msg.Text)
	if parsed.Text == "" {
		return nil
	}

	out := tgbotapi.NewMessage(msg.ChatID, parsed.Text)
	out.Entities = parsed.Entities
	out.DisableWebPagePreview = true
	if msg.LinkURL != "" {
		out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(msg.LinkText, msg.LinkURL)),
		)
	}

	if _, err := s.api.Send(out); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}
