package api

import (
	"fmt"
	"time"
)

// MockPaymentKey marks a payment order issued by a test double.
const MockPaymentKey = "rzp_test_mock"

type ImageType string

const (
	ImageFrontView    ImageType = "front_view"
	ImageSideView     ImageType = "side_view"
	ImageReferenceFit ImageType = "reference_fit"
)

func (t ImageType) Valid() bool {
	switch t {
	case ImageFrontView, ImageSideView, ImageReferenceFit:
		return true
	}
	return false
}

type CustomerInfo struct {
	FirstName             string  `json:"first_name" validate:"required,max=50"`
	LastName              string  `json:"last_name" validate:"required,max=50"`
	Email                 string  `json:"email" validate:"required,basic_email"`
	Phone                 *string `json:"phone" validate:"omitempty,phone"`
	Age                   *int    `json:"age" validate:"omitempty,gte=18,lte=120"`
	BodyType              *string `json:"body_type" validate:"omitempty,max=50"`
	SpecialConsiderations *string `json:"special_considerations" validate:"omitempty,max=1000"`
}

// Measurements are always centimetres. Optional values are sent as null.
type Measurements struct {
	Height        float64  `json:"height" validate:"gte=100,lte=250"`
	Weight        float64  `json:"weight" validate:"gte=30,lte=300"`
	Outseam       *float64 `json:"outseam" validate:"omitempty,gt=0"`
	Waist         *float64 `json:"waist" validate:"omitempty,gt=0"`
	HipSeat       *float64 `json:"hip_seat" validate:"omitempty,gt=0"`
	Thigh         *float64 `json:"thigh" validate:"omitempty,gt=0"`
	CrotchRise    *float64 `json:"crotch_rise" validate:"omitempty,gt=0"`
	BottomOpening *float64 `json:"bottom_opening" validate:"omitempty,gt=0"`
	Unit          string   `json:"unit" validate:"eq=cm"`
}

type Images struct {
	FrontView    *string `json:"front_view"`
	SideView     *string `json:"side_view"`
	ReferenceFit *string `json:"reference_fit"`
}

type SubmissionRequest struct {
	CustomerInfo     CustomerInfo `json:"customer_info" validate:"required"`
	Measurements     Measurements `json:"measurements" validate:"required"`
	FabricChoice     string       `json:"fabric_choice" validate:"required"`
	StylePreferences *string      `json:"style_preferences,omitempty" validate:"omitempty,max=1000"`
	Notes            *string      `json:"notes,omitempty" validate:"omitempty,max=500"`
	Quantity         int          `json:"quantity,omitempty" validate:"omitempty,gte=1,lte=50"`
	Images           *Images      `json:"images,omitempty"`
	SessionID        string       `json:"session_id" validate:"required"`
}

type SubmissionResponse struct {
	Status        string    `json:"status"`
	Message       string    `json:"message"`
	SubmissionID  string    `json:"submission_id"`
	Timestamp     time.Time `json:"timestamp"`
	CustomerEmail string    `json:"customer_email"`
}

// Submission is a stored submission as returned by GET /api/measurements/{id}.
type Submission struct {
	ID              string       `json:"id"`
	CustomerInfo    CustomerInfo `json:"customer_info"`
	Measurements    Measurements `json:"measurements"`
	ProductSelected string       `json:"product_selected"`
	FabricChoice    string       `json:"fabric_choice"`
	StylePreference *string      `json:"style_preferences"`
	Notes           *string      `json:"notes"`
	Quantity        int          `json:"quantity"`
	Images          Images       `json:"images"`
	SessionID       string       `json:"session_id"`
	OrderStatus     string       `json:"order_status"`
	CreatedAt       time.Time    `json:"created_at"`
}

type FittingRequest struct {
	CustomerInfo  CustomerInfo `json:"customer_info" validate:"required"`
	PreferredDate string       `json:"preferred_date" validate:"required"`
	PreferredTime string       `json:"preferred_time" validate:"required"`
	FittingType   string       `json:"fitting_type" validate:"required,oneof=virtual_consultation measurement_guidance fabric_selection styling_advice"`
	Notes         *string      `json:"notes" validate:"omitempty,max=500"`
}

type FittingResponse struct {
	Status        string    `json:"status"`
	Message       string    `json:"message"`
	BookingID     string    `json:"booking_id"`
	Timestamp     time.Time `json:"timestamp"`
	CustomerEmail string    `json:"customer_email"`
}

// ImageUpload is one photo for a named slot.
type ImageUpload struct {
	Type        ImageType
	FileName    string
	ContentType string
	Content     []byte
}

type UploadResponse struct {
	Status  string `json:"status"`
	FileURL string `json:"file_url"`
}

type PaymentOrderRequest struct {
	SubmissionID string `json:"submission_id" validate:"required"`
	Quantity     int    `json:"quantity" validate:"gte=1,lte=50"`
}

// PaymentOrder is what the checkout widget is opened with. Amount is in minor units.
type PaymentOrder struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Key      string `json:"key"`
	IsMock   bool   `json:"is_mock,omitempty"`
}

// Mock reports whether the order came from a gateway test double.
func (o PaymentOrder) Mock() bool {
	return o.IsMock || o.Key == MockPaymentKey
}

// PaymentProviderTelegram marks payments taken through a Telegram invoice.
// They carry Telegram's charge id instead of a gateway signature and are
// verified by looking the payment up at the gateway.
const PaymentProviderTelegram = "telegram"

type VerifyPaymentRequest struct {
	GatewayOrderID   string `json:"razorpay_order_id" validate:"required"`
	GatewayPaymentID string `json:"razorpay_payment_id" validate:"required"`
	GatewaySignature string `json:"razorpay_signature" validate:"required"`
	SubmissionID     string `json:"submission_id" validate:"required"`
	Provider         string `json:"provider,omitempty" validate:"omitempty,oneof=telegram"`
}

type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       int64    `json:"price"`
	Currency    string   `json:"currency"`
	Fabrics     []Fabric `json:"fabrics"`
	Available   bool     `json:"available"`
}

type Fabric struct {
	Name        string   `json:"name"`
	Price       int64    `json:"price"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
}

type ProductsResponse struct {
	Products []Product `json:"products"`
}

// ErrorResponse is the error envelope written by the order service.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// StatusError is returned for any non-2xx answer.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("unexpected status: %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("unexpected status: %d", e.StatusCode)
}

// Temporary reports whether retrying later may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}
