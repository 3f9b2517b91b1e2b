package orderapi

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
	razorpay "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"

	"tailoring-bot/internal/config"
	"tailoring-bot/pkg/api"
)

var ErrPaymentNotCaptured = errors.New("payment not captured for this order")

// Gateway creates payment orders and checks completed payments.
type Gateway interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (string, error)
	VerifySignature(orderID, paymentID, signature string) bool
	// VerifyCapture looks a payment up at the gateway. It is used for
	// payments taken outside the gateway checkout, which carry no signature.
	VerifyCapture(ctx context.Context, paymentID string, amount int64, currency string) error
	Key() string
	Mock() bool
}

// NewGateway returns the Razorpay gateway, or the mock one when no keys are
// configured.
func NewGateway(cfg config.PaymentsConfig) Gateway {
	if cfg.KeyID == "" || cfg.KeySecret == "" {
		return MockGateway{}
	}
	client := razorpay.NewClient(cfg.KeyID, cfg.KeySecret)
	return &RazorpayGateway{
		client: client,
		keyID:  cfg.KeyID,
		secret: cfg.KeySecret,
		fetchPayment: func(id string) (map[string]interface{}, error) {
			return client.Payment.Fetch(id, nil, nil)
		},
	}
}

type RazorpayGateway struct {
	client *razorpay.Client
	keyID  string
	secret string

	fetchPayment func(id string) (map[string]interface{}, error)
}

func (g *RazorpayGateway) CreateOrder(_ context.Context, amount int64, currency, receipt string) (string, error) {
	body, err := g.client.Order.Create(map[string]interface{}{
		"amount":          amount,
		"currency":        currency,
		"receipt":         receipt,
		"payment_capture": 1,
	}, nil)
	if err != nil {
		return "", fmt.Errorf("razorpay: create order: %w", err)
	}
	id, ok := body["id"].(string)
	if !ok || id == "" {
		return "", errors.New("razorpay: create order: response has no id")
	}
	return id, nil
}

func (g *RazorpayGateway) VerifySignature(orderID, paymentID, signature string) bool {
	if signature == "" {
		return false
	}
	return utils.VerifyPaymentSignature(map[string]interface{}{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": paymentID,
	}, signature, g.secret)
}

func (g *RazorpayGateway) VerifyCapture(_ context.Context, paymentID string, amount int64, currency string) error {
	body, err := g.fetchPayment(paymentID)
	if err != nil {
		return fmt.Errorf("razorpay: fetch payment: %w", err)
	}
	return checkCapture(body, amount, currency)
}

// checkCapture accepts a fetched payment only when it was taken for the
// expected amount and currency.
func checkCapture(payment map[string]interface{}, amount int64, currency string) error {
	status, _ := payment["status"].(string)
	if status != "captured" && status != "authorized" {
		return fmt.Errorf("%w: status %q", ErrPaymentNotCaptured, status)
	}
	got, _ := payment["amount"].(float64)
	if int64(got) != amount {
		return fmt.Errorf("%w: amount %d, expected %d", ErrPaymentNotCaptured, int64(got), amount)
	}
	if cur, _ := payment["currency"].(string); !strings.EqualFold(cur, currency) {
		return fmt.Errorf("%w: currency %q, expected %q", ErrPaymentNotCaptured, cur, currency)
	}
	return nil
}

func (g *RazorpayGateway) Key() string { return g.keyID }

func (g *RazorpayGateway) Mock() bool { return false }

// MockGateway issues local order ids and accepts any payment.
type MockGateway struct{}

func (MockGateway) CreateOrder(context.Context, int64, string, string) (string, error) {
	return "order_mock_" + ulid.Make().String(), nil
}

func (MockGateway) VerifySignature(string, string, string) bool { return true }

func (MockGateway) VerifyCapture(context.Context, string, int64, string) error { return nil }

func (MockGateway) Key() string { return api.MockPaymentKey }

func (MockGateway) Mock() bool { return true }
