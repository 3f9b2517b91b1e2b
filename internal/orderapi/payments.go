package orderapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"tailoring-bot/internal/catalog"
	"tailoring-bot/internal/events"
	"tailoring-bot/internal/storage"
	"tailoring-bot/pkg/api"
)

func (s *Server) createPaymentOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.PaymentOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	sub, err := s.store.GetSubmission(ctx, req.SubmissionID)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "submission not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "Failed to load submission", err, zap.String("submission_id", req.SubmissionID))
		return
	}
	if sub.OrderStatus == storage.StatusConfirmed {
		writeError(w, http.StatusConflict, "already_paid", "this order has already been paid")
		return
	}

	total, err := s.catalog.TotalPrice(sub.FabricChoice, req.Quantity)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "unknown_fabric", err.Error())
		return
	}
	amount := catalog.ToMinorUnits(total)

	orderID, err := s.gateway.CreateOrder(ctx, amount, s.currency, receipt(sub.ID))
	if err != nil {
		s.logger.Error("Failed to create gateway order",
			zap.String("submission_id", sub.ID),
			zap.Error(err))
		writeError(w, http.StatusBadGateway, "gateway_error", "could not create payment order")
		return
	}

	payment := &storage.Payment{
		OrderID:      orderID,
		SubmissionID: sub.ID,
		Amount:       amount,
		Currency:     s.currency,
		Quantity:     req.Quantity,
		IsMock:       s.gateway.Mock(),
		Status:       storage.PaymentCreated,
	}
	if err := s.store.CreatePayment(ctx, payment); err != nil {
		s.internalError(w, r, "Failed to save payment order", err, zap.String("order_id", orderID))
		return
	}

	s.logger.Info("Payment order created",
		zap.String("submission_id", sub.ID),
		zap.String("order_id", orderID),
		zap.Int64("amount", amount),
		zap.Bool("mock", payment.IsMock))

	writeJSON(w, http.StatusOK, api.PaymentOrder{
		OrderID:  orderID,
		Amount:   amount,
		Currency: s.currency,
		Key:      s.gateway.Key(),
		IsMock:   payment.IsMock,
	})
}

func (s *Server) verifyPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.VerifyPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	payment, err := s.store.GetPayment(ctx, req.GatewayOrderID)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "payment order not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "Failed to load payment", err, zap.String("order_id", req.GatewayOrderID))
		return
	}
	if payment.SubmissionID != req.SubmissionID {
		writeError(w, http.StatusBadRequest, "order_mismatch", "payment order does not belong to this submission")
		return
	}
	if !payment.IsMock {
		if err := s.checkPayment(ctx, req, payment); err != nil {
			s.logger.Warn("Payment verification failed",
				zap.String("order_id", req.GatewayOrderID),
				zap.String("submission_id", req.SubmissionID),
				zap.String("provider", req.Provider),
				zap.Error(err))
			if errors.Is(err, errInvalidSignature) {
				writeError(w, http.StatusBadRequest, "invalid_signature", "payment verification failed")
			} else {
				writeError(w, http.StatusBadRequest, "payment_unverified", "payment could not be confirmed with the gateway")
			}
			return
		}
	}

	order, changed, err := s.store.ConfirmPayment(ctx, req.SubmissionID, req.GatewayOrderID, req.GatewayPaymentID, req.GatewaySignature)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "payment order not found")
		return
	case errors.Is(err, storage.ErrPaymentReused):
		writeError(w, http.StatusConflict, "payment_reused", "this payment has already been used for another order")
		return
	case err != nil:
		s.internalError(w, r, "Failed to confirm payment", err, zap.String("order_id", req.GatewayOrderID))
		return
	}

	if changed {
		s.logger.Info("Payment verified",
			zap.String("submission_id", order.SubmissionID),
			zap.String("payment_id", order.PaymentID),
			zap.Bool("mock", order.IsMock))
		s.afterConfirm(ctx, *order)
	} else {
		s.logger.Info("Payment already confirmed",
			zap.String("submission_id", order.SubmissionID),
			zap.String("order_id", order.OrderID))
	}

	writeJSON(w, http.StatusOK, api.StatusResponse{Status: "success", Message: "Payment verified successfully"})
}

func (s *Server) testPaymentSuccess(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.MarkConfirmed(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "submission not found")
			return
		}
		s.internalError(w, r, "Failed to confirm test payment", err, zap.String("submission_id", id))
		return
	}
	s.logger.Warn("Submission confirmed through test payment", zap.String("submission_id", id))
	writeJSON(w, http.StatusOK, api.StatusResponse{Status: "success", Message: "Test payment recorded"})
}

var errInvalidSignature = errors.New("invalid payment signature")

// checkPayment verifies a gateway payment. Checkout payments carry a
// signature; payments taken through a Telegram invoice are looked up at the
// gateway and must match the order amount.
func (s *Server) checkPayment(ctx context.Context, req api.VerifyPaymentRequest, payment *storage.Payment) error {
	if req.Provider == api.PaymentProviderTelegram {
		return s.gateway.VerifyCapture(ctx, req.GatewayPaymentID, payment.Amount, payment.Currency)
	}
	if !s.gateway.VerifySignature(req.GatewayOrderID, req.GatewayPaymentID, req.GatewaySignature) {
		return errInvalidSignature
	}
	return nil
}

// afterConfirm records the order in the report and announces it. Failures
// are logged only; the payment itself is already stored.
func (s *Server) afterConfirm(ctx context.Context, order storage.ConfirmedOrder) {
	if s.report != nil {
		if err := s.report.Append(order); err != nil {
			s.logger.Error("Failed to append order to report",
				zap.String("submission_id", order.SubmissionID),
				zap.Error(err))
		}
	}

	phone := ""
	if order.Phone != nil {
		phone = *order.Phone
	}
	ev := events.OrderConfirmed{
		SubmissionID:  order.SubmissionID,
		SessionID:     order.SessionID,
		GatewayOrder:  order.OrderID,
		PaymentID:     order.PaymentID,
		CustomerName:  strings.TrimSpace(order.FirstName + " " + order.LastName),
		CustomerEmail: order.Email,
		CustomerPhone: phone,
		Fabric:        order.FabricChoice,
		Quantity:      order.Quantity,
		Amount:        order.Amount,
		Currency:      order.Currency,
		Mock:          order.IsMock,
		ConfirmedAt:   order.PaidAt,
	}
	if err := s.publisher.PublishOrderConfirmed(ctx, ev); err != nil {
		s.logger.Error("Failed to publish order confirmation",
			zap.String("submission_id", order.SubmissionID),
			zap.Error(err))
	}
}

// receipt fits the gateway's 40 character receipt limit.
func receipt(submissionID string) string {
	r := "rcpt_" + strings.ReplaceAll(submissionID, "-", "")
	if len(r) > 40 {
		r = r[:40]
	}
	return r
}
