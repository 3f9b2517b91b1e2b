// Package checkout wraps a callback-driven payment widget behind a single
// blocking call.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var ErrUnavailable = errors.New("checkout: widget unavailable")

type Prefill struct {
	Name    string
	Email   string
	Contact string
}

// Request describes the order the widget is opened for. Amount is in minor units.
type Request struct {
	OrderID     string
	Amount      int64
	Currency    string
	Key         string
	Title       string
	Description string
	Prefill     Prefill
}

// Result is the signed payload the gateway hands back on success. Provider
// is set when the payment went through a channel other than the gateway's
// own checkout, and tells the backend how to verify it.
type Result struct {
	OrderID   string
	PaymentID string
	Signature string
	Provider  string
}

// Outcome is exactly one of a gateway result or a user dismissal.
type Outcome struct {
	Result    *Result
	Cancelled bool
}

func Succeeded(r Result) Outcome { return Outcome{Result: &r} }

func Dismissed() Outcome { return Outcome{Cancelled: true} }

// Widget opens the checkout and waits for the customer to finish or leave.
type Widget interface {
	Open(ctx context.Context, req Request) (Outcome, error)
}

// Callbacks are handed to a widget that reports asynchronously.
type Callbacks struct {
	OnSuccess func(Result)
	OnDismiss func()
}

// Launcher starts a callback-style widget. It must return quickly; the
// outcome arrives later through one of the callbacks.
type Launcher func(ctx context.Context, req Request, cb Callbacks) error

type callbackWidget struct {
	launch Launcher
}

// FromCallbacks adapts a Launcher into a Widget. Only the first callback
// fired wins; later ones are ignored.
func FromCallbacks(launch Launcher) Widget {
	return &callbackWidget{launch: launch}
}

func (w *callbackWidget) Open(ctx context.Context, req Request) (Outcome, error) {
	if w.launch == nil {
		return Outcome{}, ErrUnavailable
	}

	done := make(chan Outcome, 1)
	var once sync.Once
	settle := func(o Outcome) {
		once.Do(func() { done <- o })
	}

	cb := Callbacks{
		OnSuccess: func(r Result) { settle(Succeeded(r)) },
		OnDismiss: func() { settle(Dismissed()) },
	}
	if err := w.launch(ctx, req, cb); err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	select {
	case o := <-done:
		return o, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}
