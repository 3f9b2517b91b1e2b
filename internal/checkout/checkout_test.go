package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFromCallbacksSuccess(t *testing.T) {
	w := FromCallbacks(func(ctx context.Context, req Request, cb Callbacks) error {
		go func() {
			cb.OnSuccess(Result{OrderID: req.OrderID, PaymentID: "pay_1", Signature: "sig"})
			cb.OnDismiss()
		}()
		return nil
	})

	out, err := w.Open(context.Background(), Request{OrderID: "order_1", Amount: 45000})
	require.NoError(t, err)
	require.False(t, out.Cancelled)
	require.Equal(t, Result{OrderID: "order_1", PaymentID: "pay_1", Signature: "sig"}, *out.Result)
}

func TestFromCallbacksDismiss(t *testing.T) {
	w := FromCallbacks(func(ctx context.Context, req Request, cb Callbacks) error {
		go cb.OnDismiss()
		return nil
	})

	out, err := w.Open(context.Background(), Request{OrderID: "order_1"})
	require.NoError(t, err)
	require.True(t, out.Cancelled)
	require.Nil(t, out.Result)
}

func TestFromCallbacksLaunchFailure(t *testing.T) {
	w := FromCallbacks(func(ctx context.Context, req Request, cb Callbacks) error {
		return errors.New("script not loaded")
	})

	_, err := w.Open(context.Background(), Request{})
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestFromCallbacksContext(t *testing.T) {
	w := FromCallbacks(func(ctx context.Context, req Request, cb Callbacks) error {
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := w.Open(ctx, Request{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNilLauncher(t *testing.T) {
	_, err := FromCallbacks(nil).Open(context.Background(), Request{})
	require.ErrorIs(t, err, ErrUnavailable)
}
