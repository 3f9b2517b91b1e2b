package wizard

import (
	"errors"
	"fmt"
	"net/http"

	"tailoring-bot/pkg/api"
)

var (
	// ErrBusy is returned when the same action is already in flight.
	ErrBusy = errors.New("wizard: action already in progress")

	// ErrPaymentCancelled means the customer closed the checkout. It is a
	// normal exit, not a failure.
	ErrPaymentCancelled = errors.New("wizard: payment cancelled")

	ErrFirstStep        = errors.New("wizard: already on the first step")
	ErrNotReady         = errors.New("wizard: order can only be submitted from the last step")
	ErrAlreadySubmitted = errors.New("wizard: order already submitted")
	ErrOrderClosed      = errors.New("wizard: order already confirmed")
	ErrNoSubmission     = errors.New("wizard: no submission id")
	ErrUnknownField     = errors.New("wizard: unknown field")
	ErrFieldNotInFlow   = errors.New("wizard: field is not collected by this flow")
)

type ValidationError struct {
	Step    string
	Field   Field
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string { return "submit order: " + e.Err.Error() }

func (e *SubmissionError) Unwrap() error { return e.Err }

type UploadError struct {
	Slot api.ImageType
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Slot, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

type PaymentInitiationError struct {
	Err error
}

func (e *PaymentInitiationError) Error() string { return "initiate payment: " + e.Err.Error() }

func (e *PaymentInitiationError) Unwrap() error { return e.Err }

type PaymentVerificationError struct {
	Err error
}

func (e *PaymentVerificationError) Error() string { return "verify payment: " + e.Err.Error() }

func (e *PaymentVerificationError) Unwrap() error { return e.Err }

// Notice turns a wizard error into a short message for the customer.
func Notice(err error) string {
	var (
		validationErr *ValidationError
		submissionErr *SubmissionError
		uploadErr     *UploadError
		initErr       *PaymentInitiationError
		verifyErr     *PaymentVerificationError
	)

	switch {
	case err == nil:
		return ""
	case errors.As(err, &validationErr):
		return validationErr.Message
	case errors.Is(err, ErrBusy):
		return "Please wait, the previous action is still running."
	case errors.Is(err, ErrPaymentCancelled):
		return "Payment cancelled. You can try again whenever you are ready."
	case errors.Is(err, ErrAlreadySubmitted):
		return "This order has already been submitted."
	case errors.Is(err, ErrOrderClosed):
		return "This order is already paid and confirmed."
	case errors.Is(err, ErrNotReady):
		return "Please complete all steps before submitting."
	case errors.As(err, &submissionErr):
		var statusErr *api.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode < http.StatusInternalServerError && statusErr.Message != "" {
			return "We could not accept your order: " + statusErr.Message
		}
		return "We could not submit your order. Please try again."
	case errors.As(err, &uploadErr):
		return "Photo upload failed. Please try again."
	case errors.As(err, &initErr):
		if errors.Is(err, ErrNoSubmission) {
			return "Please submit your order before paying."
		}
		return "We could not start the payment. Please try again."
	case errors.As(err, &verifyErr):
		return "We could not verify your payment. If you were charged, contact us with your order number."
	}
	return "Something went wrong. Please try again."
}
