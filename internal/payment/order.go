// Package payment drives the gateway round trip and turns verified outcomes
// into in-channel confirmation records.
package payment

import (
	"errors"
	"time"
)

var (
	ErrInvalidAmount      = errors.New("invalid payment amount")
	ErrInvalidRecipient   = errors.New("missing recipient fields")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrVerificationFailed = errors.New("payment verification failed")
	ErrOrderTerminal      = errors.New("order already finished")
	ErrDismissed          = errors.New("checkout dismissed")
)

type OrderStatus string

const (
	StatusCreated   OrderStatus = "created"
	StatusVerifying OrderStatus = "verifying"
	StatusVerified  OrderStatus = "verified"
	StatusFailed    OrderStatus = "failed"
)

// Order is the local record of an amount requested for transfer. Amount is
// in minor units. Once an order reaches verified or failed it never changes
// again.
type Order struct {
	ID            string
	Amount        int64
	Currency      string
	RecipientName string
	RecipientUPI  string
	Status        OrderStatus
	CreatedAt     time.Time
}

func (o *Order) Terminal() bool {
	return o.Status == StatusVerified || o.Status == StatusFailed
}

// AmountMajor converts the stored minor units back to the major-unit value
// the order was placed in.
func (o *Order) AmountMajor() float64 {
	return float64(o.Amount) / 100
}

// Outcome is the verified, trusted result of a completed payment. It is
// immutable once constructed and is the only input the confirmation emitter
// accepts. SignatureVerified is set in exactly one place: a successful
// Orchestrator.Verify.
type Outcome struct {
	OrderID           string
	PaymentID         string
	SignatureVerified bool
	Amount            int64
	RecipientName     string
	RecipientUPI      string
	SenderName        string
	Timestamp         time.Time
}

func (o *Outcome) AmountMajor() float64 {
	return float64(o.Amount) / 100
}
