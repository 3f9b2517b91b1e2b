package bot

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"tailoring-bot/internal/checkout"
	"tailoring-bot/pkg/api"
)

var errNoProviderToken = errors.New("payment provider token is not configured")

// pendingCheckout is an invoice waiting for the customer.
type pendingCheckout struct {
	orderID string
	cb      checkout.Callbacks
}

// invoiceLauncher opens checkout as a Telegram invoice. The successful
// payment message or the cancel button settles it.
func (b *Bot) invoiceLauncher(chatID int64) checkout.Launcher {
	return func(ctx context.Context, req checkout.Request, cb checkout.Callbacks) error {
		token := b.cfg.Telegram.PaymentProviderToken
		if token == "" {
			return errNoProviderToken
		}

		invoice := tgbotapi.NewInvoice(chatID, req.Title, req.Description, req.OrderID, token, "",
			req.Currency, []tgbotapi.LabeledPrice{{Label: req.Title, Amount: int(req.Amount)}})
		invoice.SuggestedTipAmounts = []int{}
		invoice.NeedName = req.Prefill.Name == ""
		invoice.NeedEmail = req.Prefill.Email == ""

		p := &pendingCheckout{orderID: req.OrderID, cb: cb}
		b.pendingMu.Lock()
		b.pending[chatID] = p
		b.pendingMu.Unlock()

		if _, err := b.api.Send(invoice); err != nil {
			b.takePending(chatID, req.OrderID)
			return err
		}

		cancel := tgbotapi.NewMessage(chatID, "Complete the payment above, or cancel it here.")
		cancel.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✖️ Cancel payment", cbCancelPay),
		))
		b.sendMessage(cancel)

		go func() {
			<-ctx.Done()
			b.takePending(chatID, req.OrderID)
		}()

		b.logger.Info("Invoice sent",
			zap.Int64("chat_id", chatID),
			zap.String("order_id", req.OrderID),
			zap.Int64("amount", req.Amount))
		return nil
	}
}

// takePending removes the chat's pending checkout. An empty orderID
// matches any order.
func (b *Bot) takePending(chatID int64, orderID string) *pendingCheckout {
	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()

	p, ok := b.pending[chatID]
	if !ok || (orderID != "" && p.orderID != orderID) {
		return nil
	}
	delete(b.pending, chatID)
	return p
}

func (b *Bot) processPreCheckout(q *tgbotapi.PreCheckoutQuery) {
	var (
		p  *pendingCheckout
		ok bool
	)
	if q.From != nil {
		b.pendingMu.Lock()
		p, ok = b.pending[q.From.ID]
		b.pendingMu.Unlock()
	}

	answer := tgbotapi.PreCheckoutConfig{PreCheckoutQueryID: q.ID, OK: true}
	if !ok || p.orderID != q.InvoicePayload {
		answer.OK = false
		answer.ErrorMessage = "This order is no longer awaiting payment. Please start the payment again."
		b.logger.Warn("Rejecting stale pre-checkout query",
			zap.String("query_id", q.ID),
			zap.String("payload", q.InvoicePayload))
	}

	if _, err := b.api.Request(answer); err != nil {
		b.logger.Error("Failed to answer pre-checkout query", zap.Error(err))
	}
}

func (b *Bot) handleSuccessfulPayment(chatID int64, sp *tgbotapi.SuccessfulPayment) {
	p := b.takePending(chatID, sp.InvoicePayload)
	if p == nil {
		b.logger.Warn("Payment for unknown invoice",
			zap.Int64("chat_id", chatID),
			zap.String("payload", sp.InvoicePayload),
			zap.String("charge_id", sp.TelegramPaymentChargeID))
		b.sendText(chatID, "We received a payment we could not match to an order. Please contact us with your receipt.")
		return
	}

	p.cb.OnSuccess(checkout.Result{
		OrderID:   sp.InvoicePayload,
		PaymentID: sp.ProviderPaymentChargeID,
		Signature: sp.TelegramPaymentChargeID,
		Provider:  api.PaymentProviderTelegram,
	})
}

func (b *Bot) handlePaymentDismissed(chatID int64) {
	if !b.cancelCheckout(chatID) {
		b.sendText(chatID, "There is no payment in progress.")
	}
}

func (b *Bot) cancelCheckout(chatID int64) bool {
	p := b.takePending(chatID, "")
	if p == nil {
		return false
	}
	p.cb.OnDismiss()
	return true
}
