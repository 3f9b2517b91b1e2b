// Package wizard implements the multi-step order intake: collecting customer
// details and measurements, submitting them, and driving payment to
// confirmation.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tailoring-bot/internal/catalog"
	"tailoring-bot/internal/checkout"
	"tailoring-bot/internal/selection"
	"tailoring-bot/pkg/api"
)

// OrderService is the remote order and payment backend.
type OrderService interface {
	SubmitMeasurements(ctx context.Context, req api.SubmissionRequest) (api.SubmissionResponse, error)
	UploadImage(ctx context.Context, img api.ImageUpload) (api.UploadResponse, error)
	CreatePaymentOrder(ctx context.Context, req api.PaymentOrderRequest) (api.PaymentOrder, error)
	VerifyPayment(ctx context.Context, req api.VerifyPaymentRequest) (api.StatusResponse, error)
}

type Phase int

const (
	PhaseCollecting Phase = iota
	// PhaseSubmitted is terminal for flows without a payment step.
	PhaseSubmitted
	PhaseConfirmed
)

func (p Phase) String() string {
	switch p {
	case PhaseSubmitted:
		return "submitted"
	case PhaseConfirmed:
		return "confirmed"
	}
	return "collecting"
}

// Action names an operation guarded by its own busy flag.
type Action int

const (
	ActionSubmit Action = iota
	ActionPay
)

type Options struct {
	Flow     Flow
	Catalog  *catalog.Catalog
	Orders   OrderService
	Checkout checkout.Widget
	Seed     selection.Seed
	Logger   *zap.Logger

	// NewToken generates correlation tokens. Defaults to random UUIDs.
	NewToken func() string
}

type Wizard struct {
	mu sync.Mutex

	flow     Flow
	rules    rules
	catalog  *catalog.Catalog
	orders   OrderService
	checkout checkout.Widget
	logger   *zap.Logger
	newToken func() string

	step         int
	form         Form
	images       map[api.ImageType]*imageSlot
	sessionToken string
	submissionID string
	phase        Phase

	submitting bool
	paying     bool
}

func New(opts Options) (*Wizard, error) {
	if err := opts.Flow.Check(); err != nil {
		return nil, err
	}
	if opts.Orders == nil {
		return nil, errors.New("wizard: order service is required")
	}
	if opts.Catalog == nil {
		opts.Catalog = catalog.Default()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.NewToken == nil {
		opts.NewToken = uuid.NewString
	}

	w := &Wizard{
		flow:     opts.Flow,
		rules:    rules{flow: opts.Flow, catalog: opts.Catalog},
		catalog:  opts.Catalog,
		orders:   opts.Orders,
		checkout: opts.Checkout,
		logger:   opts.Logger.With(zap.String("flow", opts.Flow.Name)),
		newToken: opts.NewToken,
		images:   make(map[api.ImageType]*imageSlot),
	}
	w.sessionToken = w.newToken()

	seed := opts.Seed
	if seed.Fabric == "" {
		seed.Fabric = catalog.DefaultFabric
	}
	if seed.Quantity < 1 {
		seed.Quantity = 1
	}
	w.form.Order.Fabric = seed.Fabric
	w.form.Order.Quantity = seed.Quantity

	return w, nil
}

func (w *Wizard) Flow() Flow { return w.flow }

// StepIndex is zero-based.
func (w *Wizard) StepIndex() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

func (w *Wizard) CurrentStep() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flow.Steps[w.step]
}

func (w *Wizard) Phase() Phase {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.phase
}

func (w *Wizard) Form() Form {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.form
}

func (w *Wizard) SubmissionID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.submissionID
}

func (w *Wizard) Busy(a Action) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch a {
	case ActionSubmit:
		return w.submitting
	case ActionPay:
		return w.paying
	}
	return false
}

// OnLastDataStep reports whether SubmitOrder is allowed from here.
func (w *Wizard) OnLastDataStep() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step == w.flow.LastDataStep()
}

// TotalPrice is derived from the current fabric and quantity on every call.
func (w *Wizard) TotalPrice() (decimal.Decimal, error) {
	w.mu.Lock()
	fabric, qty := w.form.Order.Fabric, w.form.Order.Quantity
	w.mu.Unlock()
	return w.catalog.TotalPrice(fabric, qty)
}

// SetField merges one raw value into the form. Values are checked when
// leaving the step, except quantity which must parse immediately.
func (w *Wizard) SetField(field Field, raw string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.phase == PhaseConfirmed {
		return ErrOrderClosed
	}
	if w.flow.StepOf(field) < 0 {
		if _, known := fieldInfo[field]; !known {
			return fmt.Errorf("%w: %q", ErrUnknownField, field)
		}
		return fmt.Errorf("%w: %q", ErrFieldNotInFlow, field)
	}
	if field == FieldQuantity {
		q, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || q < 1 {
			return &ValidationError{Step: w.flow.Steps[w.step].ID, Field: field, Message: "Quantity must be at least 1."}
		}
		w.form.Order.Quantity = q
		return nil
	}

	p := w.form.ref(field)
	if p == nil {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	*p = strings.TrimSpace(raw)
	return nil
}

// ApplySelection replaces the fabric and quantity with a product selection
// made after the wizard started. It works for every flow, including ones
// that never ask for these fields.
func (w *Wizard) ApplySelection(seed selection.Seed) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch {
	case w.phase == PhaseConfirmed:
		return ErrOrderClosed
	case w.submissionID != "":
		return ErrAlreadySubmitted
	}
	fabric, ok := w.catalog.Lookup(seed.Fabric)
	if !ok {
		return &ValidationError{Step: w.flow.Steps[w.step].ID, Field: FieldFabric, Message: "Please choose a fabric from the catalog."}
	}
	if seed.Quantity < 1 {
		return &ValidationError{Step: w.flow.Steps[w.step].ID, Field: FieldQuantity, Message: "Quantity must be at least 1."}
	}
	w.form.Order.Fabric = fabric.Name
	w.form.Order.Quantity = seed.Quantity
	return nil
}

// ValidateField checks one field of the current step.
func (w *Wizard) ValidateField(field Field) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if msg := w.rules.checkField(&w.form, field); msg != "" {
		return &ValidationError{Step: w.flow.Steps[w.step].ID, Field: field, Message: msg}
	}
	return nil
}

// Next advances one step if the current one is valid. It stays put on the
// last step.
func (w *Wizard) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.phase == PhaseConfirmed {
		return ErrOrderClosed
	}
	step := w.flow.Steps[w.step]
	if err := w.rules.checkStep(&w.form, step); err != nil {
		return err
	}
	// Payment is only reachable through a successful submission.
	next := w.step + 1
	if next >= len(w.flow.Steps) || (w.flow.Steps[next].Kind == StepPayment && w.submissionID == "") {
		return nil
	}
	w.step = next
	return nil
}

// Previous goes back one step without validating. All input is kept.
func (w *Wizard) Previous() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.phase == PhaseConfirmed {
		return ErrOrderClosed
	}
	if w.step == 0 {
		return ErrFirstStep
	}
	w.step--
	return nil
}

// SubmitOrder validates the whole form, sends it and, on success, moves to
// the payment step. Failures leave the wizard where it was.
func (w *Wizard) SubmitOrder(ctx context.Context) (api.SubmissionResponse, error) {
	w.mu.Lock()
	switch {
	case w.submitting:
		w.mu.Unlock()
		return api.SubmissionResponse{}, ErrBusy
	case w.submissionID != "":
		w.mu.Unlock()
		return api.SubmissionResponse{}, ErrAlreadySubmitted
	case w.step != w.flow.LastDataStep():
		w.mu.Unlock()
		return api.SubmissionResponse{}, ErrNotReady
	}
	if err := w.rules.checkStep(&w.form, w.flow.Steps[w.step]); err != nil {
		w.mu.Unlock()
		return api.SubmissionResponse{}, err
	}
	if err := w.rules.checkGroups(&w.form, GroupIdentity, GroupProfile, GroupCore, GroupGarment, GroupOrder); err != nil {
		w.mu.Unlock()
		return api.SubmissionResponse{}, err
	}

	req := buildSubmission(w.form, w.uploadedImages(), w.sessionToken)
	w.submitting = true
	w.mu.Unlock()

	resp, err := w.orders.SubmitMeasurements(ctx, req)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.submitting = false

	if err != nil {
		w.logger.Error("Failed to submit order",
			zap.String("session_id", req.SessionID),
			zap.Error(err))
		return api.SubmissionResponse{}, &SubmissionError{Err: err}
	}

	w.submissionID = resp.SubmissionID
	if p := w.flow.PaymentStep(); p >= 0 {
		w.step = p
	} else {
		w.phase = PhaseSubmitted
	}

	w.logger.Info("Order submitted",
		zap.String("submission_id", resp.SubmissionID),
		zap.String("session_id", req.SessionID))
	return resp, nil
}
