package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tailoring-bot/internal/wizard"
	"tailoring-bot/pkg/api"
)

// Sender is the part of the Telegram API the bot calls. *tgbotapi.BotAPI
// implements it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// OrderAPI is the order service as the bot uses it.
type OrderAPI interface {
	wizard.OrderService
	Products(ctx context.Context) ([]api.Product, error)
	BookFitting(ctx context.Context, req api.FittingRequest) (api.FittingResponse, error)
	Submission(ctx context.Context, id string) (api.Submission, error)
}
