package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"tailoring-bot/internal/events"
)

// HandleOrderConfirmed is the order event handler. It tells the admin
// channel about the sale and the customer, unless the chat already did.
func (b *Bot) HandleOrderConfirmed(ctx context.Context, ev events.OrderConfirmed) error {
	b.notifyChannel(ev)

	chatID, found, err := b.state.ChatForOrder(ctx, ev.SessionID)
	if err != nil {
		return err
	}
	if !found {
		b.logger.Debug("No chat bound to confirmed order",
			zap.String("submission_id", ev.SubmissionID),
			zap.String("session_id", ev.SessionID))
		return nil
	}

	first, err := b.state.FirstNotice(ctx, ev.SubmissionID)
	if err != nil {
		return err
	}
	if !first {
		return nil
	}

	b.sendText(chatID, fmt.Sprintf("🎉 Payment received! Order %s is confirmed. We will start tailoring right away.", ev.SubmissionID))
	return nil
}

func (b *Bot) notifyChannel(ev events.OrderConfirmed) {
	if b.cfg.Telegram.AdminChannelID == 0 {
		b.logger.Warn("Channel notifications disabled - no channel ID configured")
		return
	}

	msg := tgbotapi.NewMessage(b.cfg.Telegram.AdminChannelID, FormatOrderNotification(ev))
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send channel notification",
			zap.String("submission_id", ev.SubmissionID),
			zap.Error(err))
	}
}
