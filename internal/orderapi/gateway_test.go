package orderapi

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"tailoring-bot/internal/config"
)

// sign produces the checkout signature the gateway would hand back.
func sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestRazorpayVerifySignature(t *testing.T) {
	g := &RazorpayGateway{secret: "secret"}
	sig := sign("secret", "order_1", "pay_1")

	require.True(t, g.VerifySignature("order_1", "pay_1", sig))
	require.False(t, g.VerifySignature("order_2", "pay_1", sig))
	require.False(t, g.VerifySignature("order_1", "pay_1", ""))
	require.False(t, (&RazorpayGateway{secret: "other"}).VerifySignature("order_1", "pay_1", sig))
}

func TestRazorpayVerifyCapture(t *testing.T) {
	payments := map[string]map[string]interface{}{
		"pay_ok":      {"status": "captured", "amount": float64(45000), "currency": "INR"},
		"pay_failed":  {"status": "failed", "amount": float64(45000), "currency": "INR"},
		"pay_partial": {"status": "captured", "amount": float64(100), "currency": "INR"},
		"pay_usd":     {"status": "captured", "amount": float64(45000), "currency": "USD"},
	}
	g := &RazorpayGateway{fetchPayment: func(id string) (map[string]interface{}, error) {
		p, ok := payments[id]
		if !ok {
			return nil, errors.New("The id provided does not exist")
		}
		return p, nil
	}}
	ctx := context.Background()

	require.NoError(t, g.VerifyCapture(ctx, "pay_ok", 45000, "INR"))
	for _, id := range []string{"pay_failed", "pay_partial", "pay_usd"} {
		require.ErrorIs(t, g.VerifyCapture(ctx, id, 45000, "INR"), ErrPaymentNotCaptured, id)
	}
	err := g.VerifyCapture(ctx, "pay_missing", 45000, "INR")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrPaymentNotCaptured)
}

func TestNewGateway(t *testing.T) {
	require.True(t, NewGateway(config.PaymentsConfig{}).Mock())
	require.True(t, NewGateway(config.PaymentsConfig{KeyID: "rzp_test_x"}).Mock())

	live := NewGateway(config.PaymentsConfig{KeyID: "rzp_test_x", KeySecret: "y"})
	require.False(t, live.Mock())
	require.Equal(t, "rzp_test_x", live.Key())
}

func TestReceipt(t *testing.T) {
	r := receipt("6f1c2f7e-4b7a-4a4e-9a51-0c1d2e3f4a5b")
	require.LessOrEqual(t, len(r), 40)
	require.Equal(t, "rcpt_6f1c2f7e4b7a4a4e", r[:21])
}
