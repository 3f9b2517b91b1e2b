package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"tailoring-bot/internal/catalog"
	"tailoring-bot/internal/checkout"
	"tailoring-bot/internal/selection"
	"tailoring-bot/pkg/api"
)

type fakeOrders struct {
	mu sync.Mutex

	submit  func(api.SubmissionRequest) (api.SubmissionResponse, error)
	upload  func(api.ImageUpload) (api.UploadResponse, error)
	create  func(api.PaymentOrderRequest) (api.PaymentOrder, error)
	verifyF func(api.VerifyPaymentRequest) (api.StatusResponse, error)

	submitted []api.SubmissionRequest
	verified  []api.VerifyPaymentRequest
	creates   int32
}

func (f *fakeOrders) SubmitMeasurements(_ context.Context, req api.SubmissionRequest) (api.SubmissionResponse, error) {
	f.mu.Lock()
	f.submitted = append(f.submitted, req)
	f.mu.Unlock()
	if f.submit != nil {
		return f.submit(req)
	}
	return api.SubmissionResponse{Status: "success", SubmissionID: "sub-123"}, nil
}

func (f *fakeOrders) UploadImage(_ context.Context, img api.ImageUpload) (api.UploadResponse, error) {
	if f.upload != nil {
		return f.upload(img)
	}
	return api.UploadResponse{Status: "success", FileURL: "/uploads/" + img.FileName}, nil
}

func (f *fakeOrders) CreatePaymentOrder(_ context.Context, req api.PaymentOrderRequest) (api.PaymentOrder, error) {
	atomic.AddInt32(&f.creates, 1)
	if f.create != nil {
		return f.create(req)
	}
	return api.PaymentOrder{OrderID: "order_mock_1", Amount: 45000, Currency: "INR", Key: api.MockPaymentKey, IsMock: true}, nil
}

func (f *fakeOrders) VerifyPayment(_ context.Context, req api.VerifyPaymentRequest) (api.StatusResponse, error) {
	f.mu.Lock()
	f.verified = append(f.verified, req)
	f.mu.Unlock()
	if f.verifyF != nil {
		return f.verifyF(req)
	}
	return api.StatusResponse{Status: "success"}, nil
}

type widgetFunc func(ctx context.Context, req checkout.Request) (checkout.Outcome, error)

func (f widgetFunc) Open(ctx context.Context, req checkout.Request) (checkout.Outcome, error) {
	return f(ctx, req)
}

func newWizard(t *testing.T, flow Flow, orders OrderService, widget checkout.Widget) *Wizard {
	t.Helper()
	w, err := New(Options{
		Flow:     flow,
		Catalog:  catalog.Default(),
		Orders:   orders,
		Checkout: widget,
		Seed:     selection.Seed{Fabric: "Premium Wool", Quantity: 1},
		NewToken: func() string { return "11111111-2222-3333-4444-555555555555" },
	})
	require.NoError(t, err)
	return w
}

func set(t *testing.T, w *Wizard, values map[Field]string) {
	t.Helper()
	for f, v := range values {
		require.NoError(t, w.SetField(f, v))
	}
}

// fillToLastDataStep completes the checkout flow with minimal valid input.
func fillToLastDataStep(t *testing.T, w *Wizard) {
	t.Helper()
	set(t, w, map[Field]string{
		FieldFirstName: "Ada",
		FieldLastName:  "Lovelace",
		FieldEmail:     "ada@example.com",
		FieldHeight:    "175",
		FieldWeight:    "70",
	})
	for !w.OnLastDataStep() {
		require.NoError(t, w.Next())
	}
}

func TestNextBlockedByEmptyEmail(t *testing.T) {
	w := newWizard(t, CheckoutFlow(), &fakeOrders{}, nil)
	set(t, w, map[Field]string{FieldFirstName: "Ada", FieldLastName: "Lovelace"})

	err := w.Next()

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, FieldEmail, verr.Field)
	require.Equal(t, 0, w.StepIndex())
}

func TestEmailFormat(t *testing.T) {
	w := newWizard(t, CheckoutFlow(), &fakeOrders{}, nil)
	set(t, w, map[Field]string{FieldFirstName: "Ada", FieldLastName: "Lovelace", FieldEmail: "a@b"})
	require.Error(t, w.Next())
	require.Equal(t, 0, w.StepIndex())

	require.NoError(t, w.SetField(FieldEmail, "a@b.com"))
	require.NoError(t, w.Next())
	require.Equal(t, 1, w.StepIndex())
}

func TestHeightBounds(t *testing.T) {
	cases := []struct {
		height string
		ok     bool
	}{
		{"99", false},
		{"100", true},
		{"250", true},
		{"251", false},
		{"abc", false},
	}
	for _, tc := range cases {
		t.Run(tc.height, func(t *testing.T) {
			w := newWizard(t, CheckoutFlow(), &fakeOrders{}, nil)
			set(t, w, map[Field]string{FieldFirstName: "Ada", FieldLastName: "Lovelace", FieldEmail: "ada@example.com"})
			require.NoError(t, w.Next())

			set(t, w, map[Field]string{FieldHeight: tc.height, FieldWeight: "70"})
			err := w.Next()
			if tc.ok {
				require.NoError(t, err)
				require.Equal(t, 2, w.StepIndex())
			} else {
				require.Error(t, err)
				require.Equal(t, 1, w.StepIndex())
			}
		})
	}
}

func TestOptionalMeasurementMustBePositive(t *testing.T) {
	w := newWizard(t, GarmentFlow(), &fakeOrders{}, nil)
	require.NoError(t, w.Next())

	require.NoError(t, w.SetField(FieldWaist, "-3"))
	var verr *ValidationError
	require.ErrorAs(t, w.Next(), &verr)
	require.Equal(t, FieldWaist, verr.Field)

	require.NoError(t, w.SetField(FieldWaist, "82.5"))
	require.NoError(t, w.Next())
}

func TestPreviousKeepsValues(t *testing.T) {
	w := newWizard(t, CheckoutFlow(), &fakeOrders{}, nil)
	set(t, w, map[Field]string{FieldFirstName: "Ada", FieldLastName: "Lovelace", FieldEmail: "ada@example.com"})
	require.NoError(t, w.Next())
	set(t, w, map[Field]string{FieldHeight: "175", FieldWeight: "70"})
	require.NoError(t, w.Next())
	require.NoError(t, w.SetField(FieldWaist, "80"))

	require.NoError(t, w.Previous())
	require.NoError(t, w.Previous())
	require.Equal(t, 0, w.StepIndex())

	form := w.Form()
	require.Equal(t, "ada@example.com", form.Customer.Email)
	require.Equal(t, "175", form.Measurements.Height)
	require.Equal(t, "80", form.Measurements.Waist)

	require.ErrorIs(t, w.Previous(), ErrFirstStep)
}

func TestNextClampsBeforePaymentUntilSubmitted(t *testing.T) {
	w := newWizard(t, CheckoutFlow(), &fakeOrders{}, nil)
	fillToLastDataStep(t, w)
	last := w.StepIndex()

	require.NoError(t, w.Next())
	require.Equal(t, last, w.StepIndex())
}

func TestSubmitOnlyFromLastDataStep(t *testing.T) {
	orders := &fakeOrders{}
	w := newWizard(t, CheckoutFlow(), orders, nil)

	_, err := w.SubmitOrder(context.Background())
	require.ErrorIs(t, err, ErrNotReady)
	require.Empty(t, orders.submitted)
}

func TestSubmitSendsExplicitNulls(t *testing.T) {
	orders := &fakeOrders{}
	w := newWizard(t, CheckoutFlow(), orders, nil)
	fillToLastDataStep(t, w)

	resp, err := w.SubmitOrder(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sub-123", resp.SubmissionID)
	require.Len(t, orders.submitted, 1)

	raw, err := json.Marshal(orders.submitted[0])
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(raw, &payload))
	m := payload["measurements"].(map[string]any)

	require.Equal(t, 175.0, m["height"])
	require.Equal(t, 70.0, m["weight"])
	require.Equal(t, "cm", m["unit"])
	for _, key := range []string{"outseam", "waist", "hip_seat", "thigh", "crotch_rise", "bottom_opening"} {
		v, present := m[key]
		require.True(t, present, "key %s must be present", key)
		require.Nil(t, v, "key %s must be null", key)
	}
	require.Equal(t, "11111111-2222-3333-4444-555555555555", payload["session_id"])
	require.Equal(t, "Premium Wool", payload["fabric_choice"])
}

func TestSubmitMovesToPayment(t *testing.T) {
	w := newWizard(t, CheckoutFlow(), &fakeOrders{}, nil)
	fillToLastDataStep(t, w)

	_, err := w.SubmitOrder(context.Background())
	require.NoError(t, err)
	require.Equal(t, StepPayment, w.CurrentStep().Kind)
	require.Equal(t, "sub-123", w.SubmissionID())

	_, err = w.SubmitOrder(context.Background())
	require.ErrorIs(t, err, ErrAlreadySubmitted)
}

func TestSubmitWithoutPaymentStep(t *testing.T) {
	w := newWizard(t, MeasurementFlow(), &fakeOrders{}, nil)
	fillToLastDataStep(t, w)

	_, err := w.SubmitOrder(context.Background())
	require.NoError(t, err)
	require.Equal(t, PhaseSubmitted, w.Phase())
	require.Equal(t, w.Flow().LastDataStep(), w.StepIndex())
}

func TestSubmitFailureLeavesState(t *testing.T) {
	orders := &fakeOrders{submit: func(api.SubmissionRequest) (api.SubmissionResponse, error) {
		return api.SubmissionResponse{}, &api.StatusError{StatusCode: 500}
	}}
	w := newWizard(t, CheckoutFlow(), orders, nil)
	fillToLastDataStep(t, w)
	before := w.StepIndex()

	_, err := w.SubmitOrder(context.Background())

	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	require.Equal(t, before, w.StepIndex())
	require.Empty(t, w.SubmissionID())
	require.False(t, w.Busy(ActionSubmit))

	orders.submit = nil
	_, err = w.SubmitOrder(context.Background())
	require.NoError(t, err)
	require.Len(t, orders.submitted, 2)
	require.Equal(t, orders.submitted[0].SessionID, orders.submitted[1].SessionID)
}

func TestFinalValidationCoversEarlierSteps(t *testing.T) {
	w := newWizard(t, GarmentFlow(), &fakeOrders{}, nil)
	for !w.OnLastDataStep() {
		require.NoError(t, w.Next())
	}
	set(t, w, map[Field]string{FieldFirstName: "Ada", FieldLastName: "Lovelace", FieldEmail: "ada@example.com"})

	_, err := w.SubmitOrder(context.Background())
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, FieldHeight, verr.Field)
	require.Equal(t, "client_details", verr.Step)
}

func TestSubmitBusy(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	orders := &fakeOrders{submit: func(api.SubmissionRequest) (api.SubmissionResponse, error) {
		close(entered)
		<-release
		return api.SubmissionResponse{Status: "success", SubmissionID: "sub-1"}, nil
	}}
	w := newWizard(t, CheckoutFlow(), orders, nil)
	fillToLastDataStep(t, w)

	done := make(chan error, 1)
	go func() {
		_, err := w.SubmitOrder(context.Background())
		done <- err
	}()
	<-entered

	require.True(t, w.Busy(ActionSubmit))
	_, err := w.SubmitOrder(context.Background())
	require.ErrorIs(t, err, ErrBusy)

	close(release)
	require.NoError(t, <-done)
	require.Len(t, orders.submitted, 1)
}

func TestMockPaymentEndToEnd(t *testing.T) {
	orders := &fakeOrders{}
	widget := widgetFunc(func(context.Context, checkout.Request) (checkout.Outcome, error) {
		t.Fatal("checkout must not open for mock orders")
		return checkout.Outcome{}, nil
	})
	w := newWizard(t, CheckoutFlow(), orders, widget)
	fillToLastDataStep(t, w)

	_, err := w.SubmitOrder(context.Background())
	require.NoError(t, err)
	require.NoError(t, w.InitiatePayment(context.Background()))

	require.Equal(t, PhaseConfirmed, w.Phase())
	require.Len(t, orders.verified, 1)
	v := orders.verified[0]
	require.Equal(t, "order_mock_1", v.GatewayOrderID)
	require.Equal(t, "sub-123", v.SubmissionID)
	require.Equal(t, "pay_mock_11111111222233", v.GatewayPaymentID)
	require.NotEmpty(t, v.GatewaySignature)

	require.ErrorIs(t, w.InitiatePayment(context.Background()), ErrOrderClosed)
	require.ErrorIs(t, w.SetField(FieldNotes, "late"), ErrOrderClosed)
}

func TestPaymentRequiresSubmission(t *testing.T) {
	orders := &fakeOrders{}
	w := newWizard(t, CheckoutFlow(), orders, nil)

	err := w.InitiatePayment(context.Background())

	var initErr *PaymentInitiationError
	require.ErrorAs(t, err, &initErr)
	require.ErrorIs(t, err, ErrNoSubmission)
	require.Zero(t, atomic.LoadInt32(&orders.creates))
}

func TestRealPaymentThroughWidget(t *testing.T) {
	orders := &fakeOrders{create: func(req api.PaymentOrderRequest) (api.PaymentOrder, error) {
		return api.PaymentOrder{OrderID: "order_live", Amount: 90000, Currency: "INR", Key: "rzp_live_key"}, nil
	}}
	var opened checkout.Request
	widget := widgetFunc(func(_ context.Context, req checkout.Request) (checkout.Outcome, error) {
		opened = req
		return checkout.Succeeded(checkout.Result{OrderID: req.OrderID, PaymentID: "pay_1", Signature: "sig_1"}), nil
	})
	w := newWizard(t, CheckoutFlow(), orders, widget)
	set(t, w, map[Field]string{FieldPhone: "+91 98765 43210"})
	fillToLastDataStep(t, w)
	_, err := w.SubmitOrder(context.Background())
	require.NoError(t, err)

	require.NoError(t, w.InitiatePayment(context.Background()))

	require.Equal(t, int64(90000), opened.Amount)
	require.Equal(t, "Ada Lovelace", opened.Prefill.Name)
	require.Equal(t, "ada@example.com", opened.Prefill.Email)
	require.Equal(t, "+91 98765 43210", opened.Prefill.Contact)
	require.Equal(t, api.VerifyPaymentRequest{
		GatewayOrderID:   "order_live",
		GatewayPaymentID: "pay_1",
		GatewaySignature: "sig_1",
		SubmissionID:     "sub-123",
	}, orders.verified[0])
	require.Equal(t, PhaseConfirmed, w.Phase())
}

func TestPaymentBusyWhileCheckoutOpen(t *testing.T) {
	orders := &fakeOrders{create: func(api.PaymentOrderRequest) (api.PaymentOrder, error) {
		return api.PaymentOrder{OrderID: "order_live", Amount: 45000, Currency: "INR", Key: "rzp_live_key"}, nil
	}}
	opened := make(chan struct{})
	outcome := make(chan checkout.Outcome)
	widget := widgetFunc(func(context.Context, checkout.Request) (checkout.Outcome, error) {
		close(opened)
		return <-outcome, nil
	})
	w := newWizard(t, CheckoutFlow(), orders, widget)
	fillToLastDataStep(t, w)
	_, err := w.SubmitOrder(context.Background())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- w.InitiatePayment(context.Background()) }()
	<-opened

	require.True(t, w.Busy(ActionPay))
	require.ErrorIs(t, w.InitiatePayment(context.Background()), ErrBusy)
	require.ErrorIs(t, w.ConfirmPayment(context.Background(),
		checkout.Result{OrderID: "order_live", PaymentID: "pay_x", Signature: "sig"}), ErrBusy)
	require.Equal(t, int32(1), atomic.LoadInt32(&orders.creates))
	require.Empty(t, orders.verified)

	outcome <- checkout.Succeeded(checkout.Result{OrderID: "order_live", PaymentID: "pay_1", Signature: "sig"})
	require.NoError(t, <-done)
	require.Len(t, orders.verified, 1)
	require.Equal(t, "pay_1", orders.verified[0].GatewayPaymentID)
	require.Equal(t, PhaseConfirmed, w.Phase())
	require.False(t, w.Busy(ActionPay))
}

func TestPaymentDismissed(t *testing.T) {
	orders := &fakeOrders{create: func(api.PaymentOrderRequest) (api.PaymentOrder, error) {
		return api.PaymentOrder{OrderID: "order_live", Amount: 45000, Currency: "INR", Key: "rzp_live_key"}, nil
	}}
	dismiss := true
	widget := widgetFunc(func(_ context.Context, req checkout.Request) (checkout.Outcome, error) {
		if dismiss {
			return checkout.Dismissed(), nil
		}
		return checkout.Succeeded(checkout.Result{OrderID: req.OrderID, PaymentID: "pay_2", Signature: "sig"}), nil
	})
	w := newWizard(t, CheckoutFlow(), orders, widget)
	fillToLastDataStep(t, w)
	_, err := w.SubmitOrder(context.Background())
	require.NoError(t, err)

	require.ErrorIs(t, w.InitiatePayment(context.Background()), ErrPaymentCancelled)
	require.Equal(t, StepPayment, w.CurrentStep().Kind)
	require.Equal(t, PhaseCollecting, w.Phase())
	require.Empty(t, orders.verified)
	require.False(t, w.Busy(ActionPay))

	dismiss = false
	require.NoError(t, w.InitiatePayment(context.Background()))
	require.Equal(t, PhaseConfirmed, w.Phase())
}

func TestVerificationFailureAllowsRetry(t *testing.T) {
	fail := true
	orders := &fakeOrders{verifyF: func(api.VerifyPaymentRequest) (api.StatusResponse, error) {
		if fail {
			return api.StatusResponse{}, errors.New("signature mismatch")
		}
		return api.StatusResponse{Status: "success"}, nil
	}}
	w := newWizard(t, CheckoutFlow(), orders, nil)
	fillToLastDataStep(t, w)
	_, err := w.SubmitOrder(context.Background())
	require.NoError(t, err)

	result := checkout.Result{OrderID: "order_1", PaymentID: "pay_1", Signature: "bad"}
	err = w.ConfirmPayment(context.Background(), result)
	var verifyErr *PaymentVerificationError
	require.ErrorAs(t, err, &verifyErr)
	require.Equal(t, StepPayment, w.CurrentStep().Kind)
	require.Equal(t, PhaseCollecting, w.Phase())

	fail = false
	require.NoError(t, w.ConfirmPayment(context.Background(), result))
	require.Equal(t, PhaseConfirmed, w.Phase())
}

func TestWidgetUnavailable(t *testing.T) {
	orders := &fakeOrders{create: func(api.PaymentOrderRequest) (api.PaymentOrder, error) {
		return api.PaymentOrder{OrderID: "order_live", Key: "rzp_live_key"}, nil
	}}
	w := newWizard(t, CheckoutFlow(), orders, nil)
	fillToLastDataStep(t, w)
	_, err := w.SubmitOrder(context.Background())
	require.NoError(t, err)

	err = w.InitiatePayment(context.Background())
	var initErr *PaymentInitiationError
	require.ErrorAs(t, err, &initErr)
	require.ErrorIs(t, err, checkout.ErrUnavailable)
}

func TestTotalPriceFollowsForm(t *testing.T) {
	w := newWizard(t, CheckoutFlow(), &fakeOrders{}, nil)

	total, err := w.TotalPrice()
	require.NoError(t, err)
	require.Equal(t, "450", total.String())

	require.NoError(t, w.SetField(FieldFabric, "Silk Blend"))
	require.NoError(t, w.SetField(FieldQuantity, "2"))
	total, err = w.TotalPrice()
	require.NoError(t, err)
	require.Equal(t, "1160", total.String())

	require.Error(t, w.SetField(FieldQuantity, "0"))
	require.Equal(t, 2, w.Form().Order.Quantity)
}

func TestSetFieldUnknown(t *testing.T) {
	w := newWizard(t, CheckoutFlow(), &fakeOrders{}, nil)
	require.ErrorIs(t, w.SetField(Field("shoe_size"), "44"), ErrUnknownField)
}

func TestSetFieldOutsideFlow(t *testing.T) {
	w := newWizard(t, GarmentFlow(), &fakeOrders{}, nil)

	require.ErrorIs(t, w.SetField(FieldAge, "abc"), ErrFieldNotInFlow)
	require.ErrorIs(t, w.SetField(FieldQuantity, "2"), ErrFieldNotInFlow)
	require.Empty(t, w.Form().Customer.Age)
	require.Equal(t, 1, w.Form().Order.Quantity)
}

func TestApplySelection(t *testing.T) {
	w := newWizard(t, GarmentFlow(), &fakeOrders{}, nil)

	require.NoError(t, w.ApplySelection(selection.Seed{Fabric: "silk blend", Quantity: 2}))
	require.Equal(t, "Silk Blend", w.Form().Order.Fabric)
	require.Equal(t, 2, w.Form().Order.Quantity)

	var verr *ValidationError
	require.ErrorAs(t, w.ApplySelection(selection.Seed{Fabric: "Denim", Quantity: 1}), &verr)
	require.Equal(t, FieldFabric, verr.Field)
	require.ErrorAs(t, w.ApplySelection(selection.Seed{Fabric: "Silk Blend", Quantity: 0}), &verr)
	require.Equal(t, FieldQuantity, verr.Field)
	require.Equal(t, "Silk Blend", w.Form().Order.Fabric)

	submitted := newWizard(t, CheckoutFlow(), &fakeOrders{}, nil)
	fillToLastDataStep(t, submitted)
	_, err := submitted.SubmitOrder(context.Background())
	require.NoError(t, err)
	require.ErrorIs(t, submitted.ApplySelection(selection.Seed{Fabric: "Silk Blend", Quantity: 3}), ErrAlreadySubmitted)
	require.Equal(t, 1, submitted.Form().Order.Quantity)
}

func TestFlowPresets(t *testing.T) {
	for _, name := range []string{FlowMeasurement, FlowGarment, FlowCheckout} {
		f, err := FlowByName(name)
		require.NoError(t, err)
		require.NoError(t, f.Check(), name)
	}
	require.Equal(t, 7, MeasurementFlow().Len())
	require.Equal(t, 7, GarmentFlow().Len())
	require.Equal(t, 8, CheckoutFlow().Len())
	require.Equal(t, 7, CheckoutFlow().PaymentStep())
	require.Equal(t, 6, CheckoutFlow().LastDataStep())
	require.True(t, CheckoutFlow().HasPhotos())
	require.False(t, MeasurementFlow().HasPhotos())

	_, err := FlowByName("wedding")
	require.ErrorIs(t, err, ErrUnknownFlow)

	broken := Flow{Name: "broken", Steps: []Step{{ID: "only", Fields: []Field{FieldEmail}}}}
	require.Error(t, broken.Check())
}

func TestNotice(t *testing.T) {
	require.Equal(t, "Please enter a valid email address.",
		Notice(&ValidationError{Field: FieldEmail, Message: "Please enter a valid email address."}))
	require.Contains(t, Notice(&SubmissionError{Err: &api.StatusError{StatusCode: 422, Message: "email is invalid"}}), "email is invalid")
	require.Equal(t, "We could not submit your order. Please try again.",
		Notice(&SubmissionError{Err: &api.StatusError{StatusCode: 502}}))
	require.Equal(t, "Please submit your order before paying.", Notice(&PaymentInitiationError{Err: ErrNoSubmission}))
	require.Contains(t, Notice(ErrPaymentCancelled), "cancelled")
	require.Empty(t, Notice(nil))
}

func TestValidateField(t *testing.T) {
	w := newWizard(t, CheckoutFlow(), &fakeOrders{}, nil)
	require.NoError(t, w.SetField(FieldAge, "17"))

	var verr *ValidationError
	require.ErrorAs(t, w.ValidateField(FieldAge), &verr)
	require.Equal(t, FieldAge, verr.Field)

	require.NoError(t, w.ValidateField(FieldPhone))
	require.NoError(t, w.SetField(FieldAge, "30"))
	require.NoError(t, w.ValidateField(FieldAge))
}
