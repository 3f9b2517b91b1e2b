package wizard

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"tailoring-bot/internal/catalog"
	"tailoring-bot/internal/checkout"
	"tailoring-bot/pkg/api"
)

const mockSignature = "mock_signature"

// InitiatePayment creates a payment order for the submitted order and
// completes it. Mock orders are verified straight away; real ones open the
// checkout widget and wait for the customer.
func (w *Wizard) InitiatePayment(ctx context.Context) error {
	w.mu.Lock()
	switch {
	case w.phase == PhaseConfirmed:
		w.mu.Unlock()
		return ErrOrderClosed
	case w.submissionID == "":
		w.mu.Unlock()
		w.logger.Warn("Payment attempted before submission")
		return &PaymentInitiationError{Err: ErrNoSubmission}
	case w.paying:
		w.mu.Unlock()
		return ErrBusy
	}
	w.paying = true
	orderReq := api.PaymentOrderRequest{
		SubmissionID: w.submissionID,
		Quantity:     w.form.Order.Quantity,
	}
	prefill := checkout.Prefill{
		Name:    strings.TrimSpace(w.form.Customer.FirstName + " " + w.form.Customer.LastName),
		Email:   w.form.Customer.Email,
		Contact: w.form.Customer.Phone,
	}
	fabric := w.form.Order.Fabric
	w.mu.Unlock()

	defer w.setPaying(false)

	order, err := w.orders.CreatePaymentOrder(ctx, orderReq)
	if err != nil {
		w.logger.Error("Failed to create payment order",
			zap.String("submission_id", orderReq.SubmissionID),
			zap.Error(err))
		return &PaymentInitiationError{Err: err}
	}

	var result checkout.Result
	if order.Mock() {
		w.logger.Info("Mock payment order, verifying without checkout",
			zap.String("order_id", order.OrderID))
		result = checkout.Result{
			OrderID:   order.OrderID,
			PaymentID: mockPaymentID(w.newToken()),
			Signature: mockSignature,
		}
	} else {
		if w.checkout == nil {
			return &PaymentInitiationError{Err: checkout.ErrUnavailable}
		}
		outcome, err := w.checkout.Open(ctx, checkout.Request{
			OrderID:     order.OrderID,
			Amount:      order.Amount,
			Currency:    order.Currency,
			Key:         order.Key,
			Title:       catalog.ProductName,
			Description: fabric + " trousers",
			Prefill:     prefill,
		})
		if err != nil {
			w.logger.Error("Failed to open checkout",
				zap.String("order_id", order.OrderID),
				zap.Error(err))
			return &PaymentInitiationError{Err: err}
		}
		if outcome.Cancelled || outcome.Result == nil {
			w.logger.Info("Payment dismissed by customer",
				zap.String("order_id", order.OrderID))
			return ErrPaymentCancelled
		}
		result = *outcome.Result
	}

	return w.verify(ctx, orderReq.SubmissionID, result)
}

// ConfirmPayment forwards a gateway result for verification. It is used
// when the result arrives outside InitiatePayment, e.g. after a restart.
func (w *Wizard) ConfirmPayment(ctx context.Context, result checkout.Result) error {
	w.mu.Lock()
	switch {
	case w.phase == PhaseConfirmed:
		w.mu.Unlock()
		return ErrOrderClosed
	case w.submissionID == "":
		w.mu.Unlock()
		return &PaymentVerificationError{Err: ErrNoSubmission}
	case w.paying:
		w.mu.Unlock()
		return ErrBusy
	}
	w.paying = true
	submissionID := w.submissionID
	w.mu.Unlock()

	defer w.setPaying(false)
	return w.verify(ctx, submissionID, result)
}

func (w *Wizard) verify(ctx context.Context, submissionID string, result checkout.Result) error {
	_, err := w.orders.VerifyPayment(ctx, api.VerifyPaymentRequest{
		GatewayOrderID:   result.OrderID,
		GatewayPaymentID: result.PaymentID,
		GatewaySignature: result.Signature,
		SubmissionID:     submissionID,
		Provider:         result.Provider,
	})
	if err != nil {
		w.logger.Error("Failed to verify payment",
			zap.String("submission_id", submissionID),
			zap.String("order_id", result.OrderID),
			zap.Error(err))
		return &PaymentVerificationError{Err: err}
	}

	w.mu.Lock()
	w.phase = PhaseConfirmed
	w.mu.Unlock()

	w.logger.Info("Payment confirmed",
		zap.String("submission_id", submissionID),
		zap.String("payment_id", result.PaymentID))
	return nil
}

func mockPaymentID(token string) string {
	id := strings.ReplaceAll(token, "-", "")
	if len(id) > 14 {
		id = id[:14]
	}
	return "pay_mock_" + id
}

func (w *Wizard) setPaying(v bool) {
	w.mu.Lock()
	w.paying = v
	w.mu.Unlock()
}
