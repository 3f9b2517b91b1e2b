package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"tailoring-bot/internal/catalog"
)

const helpText = `✂️ Bespoke trousers, tailored to your measurements.

/order - start or resume an order
/fabrics - browse fabrics and prices
/fitting - book a virtual fitting
/status - see where your order stands
/cancel - cancel what you are doing
/help - show this message`

func (b *Bot) handleCommand(ctx context.Context, chatID int64, cmd string, args []string) {
	switch cmd {
	case "start":
		b.handleStart(ctx, chatID)
	case "help":
		b.sendText(chatID, helpText)
	case "order":
		b.startOrder(ctx, chatID)
	case "fabrics":
		b.handleFabrics(ctx, chatID)
	case "fitting":
		b.startFitting(ctx, chatID)
	case "status":
		b.handleStatus(ctx, chatID)
	case "cancel":
		b.handleCancel(ctx, chatID)
	case "lookup":
		b.handleAdminCommand(ctx, chatID, cmd, args)
	default:
		b.handleDefault(ctx, chatID)
	}
}

func (b *Bot) handleStart(ctx context.Context, chatID int64) {
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Welcome! 👋\n\n%s\n\n%s", catalog.ProductName, helpText))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🧵 Order now", cbOrderStart),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📅 Book a fitting", cbFittingBook),
		),
	)
	b.sendMessage(msg)
}

func (b *Bot) handleStatus(ctx context.Context, chatID int64) {
	sess, err := b.state.Get(ctx, chatID)
	if err != nil {
		b.logger.Error("Failed to get user state", zap.Int64("chat_id", chatID), zap.Error(err))
		b.sendError(chatID, "Something went wrong while reading your session. Please try again.")
		return
	}

	w, err := b.wizardFor(chatID, sess)
	if err != nil {
		b.sendText(chatID, "You have no order in progress. Use /order to start one.")
		return
	}

	step := w.CurrentStep()
	text := fmt.Sprintf("Order status: %s\nStep %d of %d · %s", w.Phase(), w.StepIndex()+1, w.Flow().Len(), step.Title)
	if id := w.SubmissionID(); id != "" {
		text += "\nReference: " + id
	}
	if total, err := w.TotalPrice(); err == nil {
		text += "\nTotal: " + catalog.Format(total)
	}
	b.sendText(chatID, text)
}

func (b *Bot) handleCancel(ctx context.Context, chatID int64) {
	b.dropOrder(ctx, chatID)

	msg := tgbotapi.NewMessage(chatID, "Cancelled. Use /order to start again.")
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	b.sendMessage(msg)
}

func (b *Bot) handleDefault(ctx context.Context, chatID int64) {
	b.sendText(chatID, "I did not understand that. Use /help to see what I can do.")
}
