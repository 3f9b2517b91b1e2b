// Package events carries confirmed-order notifications between the order
// service and the bot over Kafka.
package events

import "time"

// OrderConfirmed is published once a payment has been verified.
type OrderConfirmed struct {
	SubmissionID  string    `json:"submission_id" validate:"required"`
	SessionID     string    `json:"session_id"`
	GatewayOrder  string    `json:"gateway_order_id" validate:"required"`
	PaymentID     string    `json:"payment_id" validate:"required"`
	CustomerName  string    `json:"customer_name" validate:"required"`
	CustomerEmail string    `json:"customer_email" validate:"required,email"`
	CustomerPhone string    `json:"customer_phone,omitempty"`
	Fabric        string    `json:"fabric" validate:"required"`
	Quantity      int       `json:"quantity" validate:"gte=1"`
	Amount        int64     `json:"amount" validate:"gt=0"`
	Currency      string    `json:"currency" validate:"required,len=3"`
	Mock          bool      `json:"mock"`
	ConfirmedAt   time.Time `json:"confirmed_at" validate:"required"`
}
