package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/google/uuid"
)

var ErrGatewayNotConfigured = errors.New("payment gateway credentials not configured")

// GatewayOrder is what the gateway returns for a created order.
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// CheckoutResult is what the client-side checkout hands back when the user
// completes payment. Nothing in it is trusted until the signature is
// recomputed server-side.
type CheckoutResult struct {
	OrderID   string `json:"gateway_order_id"`
	PaymentID string `json:"gateway_payment_id"`
	Signature string `json:"signature"`
}

// Gateway is the payment collaborator: order creation and server-side
// verification of a checkout result.
type Gateway interface {
	CreateOrder(ctx context.Context, amount int64, currency string) (GatewayOrder, error)
	Verify(ctx context.Context, res CheckoutResult) (bool, error)
}

// Signature computes the gateway's checkout signature: hex HMAC-SHA256 of
// "orderID|paymentID" under the gateway key secret.
func Signature(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// SimGateway is an in-process gateway with the same shape and signature
// scheme as the hosted one. It backs local runs and tests.
type SimGateway struct {
	keyID  string
	secret string
}

func NewSimGateway(keyID, secret string) (*SimGateway, error) {
	if keyID == "" || secret == "" {
		return nil, ErrGatewayNotConfigured
	}
	return &SimGateway{keyID: keyID, secret: secret}, nil
}

func (g *SimGateway) KeyID() string { return g.keyID }

func (g *SimGateway) CreateOrder(_ context.Context, amount int64, currency string) (GatewayOrder, error) {
	return GatewayOrder{
		ID:       "order_" + uuid.NewString(),
		Amount:   amount,
		Currency: currency,
	}, nil
}

// Checkout simulates the user completing the hosted checkout for an order.
func (g *SimGateway) Checkout(orderID string) CheckoutResult {
	paymentID := "pay_" + uuid.NewString()
	return CheckoutResult{
		OrderID:   orderID,
		PaymentID: paymentID,
		Signature: Signature(g.secret, orderID, paymentID),
	}
}

func (g *SimGateway) Verify(_ context.Context, res CheckoutResult) (bool, error) {
	want := Signature(g.secret, res.OrderID, res.PaymentID)
	return hmac.Equal([]byte(want), []byte(res.Signature)), nil
}
