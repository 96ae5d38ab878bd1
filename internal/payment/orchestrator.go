package payment

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
)

// OrderStore persists order lifecycle transitions. A nil store is allowed;
// orchestration then runs unpersisted.
type OrderStore interface {
	SaveOrder(ctx context.Context, o *Order) error
	UpdateOrderStatus(ctx context.Context, id string, status OrderStatus) error
}

// Orchestrator drives one payment from order creation through verification.
// Each order is created and consumed within a single invocation, so the
// orchestrator itself carries no per-order locks.
type Orchestrator struct {
	gw    Gateway
	store OrderStore
	log   *slog.Logger
	now   func() time.Time
}

func NewOrchestrator(gw Gateway, store OrderStore, log *slog.Logger) *Orchestrator {
	return &Orchestrator{gw: gw, store: store, log: log, now: time.Now}
}

// CreateOrder validates the request locally and creates the order at the
// gateway. Amount is in major units; invalid input fails before any network
// call is made.
func (o *Orchestrator) CreateOrder(ctx context.Context, amount float64, currency, recipientName, recipientUPI string) (*Order, error) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}
	if strings.TrimSpace(recipientName) == "" || strings.TrimSpace(recipientUPI) == "" {
		return nil, ErrInvalidRecipient
	}
	minor := int64(math.Round(amount * 100))

	gwOrder, err := o.gw.CreateOrder(ctx, minor, currency)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
	}

	order := &Order{
		ID:            gwOrder.ID,
		Amount:        gwOrder.Amount,
		Currency:      gwOrder.Currency,
		RecipientName: strings.TrimSpace(recipientName),
		RecipientUPI:  strings.TrimSpace(recipientUPI),
		Status:        StatusCreated,
		CreatedAt:     o.now(),
	}
	if o.store != nil {
		if err := o.store.SaveOrder(ctx, order); err != nil {
			return nil, fmt.Errorf("save order: %w", err)
		}
	}
	o.log.Info("payment order created", "order", order.ID, "amount", order.Amount, "currency", order.Currency)
	return order, nil
}

// AwaitCheckout blocks until the external checkout reports a result or the
// caller dismisses it. Dismissal (ctx cancellation) fails the order and
// releases the invocation; no outcome will ever arrive for it.
func (o *Orchestrator) AwaitCheckout(ctx context.Context, order *Order, results <-chan CheckoutResult) (CheckoutResult, error) {
	if order.Terminal() {
		return CheckoutResult{}, ErrOrderTerminal
	}
	select {
	case <-ctx.Done():
		o.failOrder(order)
		o.log.Info("checkout dismissed", "order", order.ID)
		return CheckoutResult{}, fmt.Errorf("%w: %w", ErrDismissed, ctx.Err())
	case res, ok := <-results:
		if !ok {
			o.failOrder(order)
			return CheckoutResult{}, fmt.Errorf("%w: checkout closed", ErrGatewayUnavailable)
		}
		return res, nil
	}
}

// Verify recomputes the gateway signature for the checkout result. It is the
// sole code path that constructs an Outcome with SignatureVerified set. A
// failed check is terminal for the order: retrying a signature check cannot
// change its result. Verification, once started, always runs to completion
// even if the caller has gone away.
func (o *Orchestrator) Verify(ctx context.Context, order *Order, res CheckoutResult, senderName string) (*Outcome, error) {
	if order == nil {
		return nil, ErrOrderTerminal
	}
	if order.Terminal() {
		return nil, fmt.Errorf("%w: %s is %s", ErrOrderTerminal, order.ID, order.Status)
	}
	if res.OrderID != order.ID {
		o.failOrder(order)
		return nil, fmt.Errorf("%w: checkout result for %s does not match order %s", ErrVerificationFailed, res.OrderID, order.ID)
	}

	ctx = context.WithoutCancel(ctx)
	o.setStatus(ctx, order, StatusVerifying)

	ok, err := o.gw.Verify(ctx, res)
	if err != nil {
		o.failOrder(order)
		return nil, fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
	}
	if !ok {
		o.failOrder(order)
		o.log.Warn("signature check failed", "order", order.ID, "payment", res.PaymentID)
		return nil, fmt.Errorf("%w: order %s", ErrVerificationFailed, order.ID)
	}

	o.setStatus(ctx, order, StatusVerified)
	o.log.Info("payment verified", "order", order.ID, "payment", res.PaymentID)
	return &Outcome{
		OrderID:           order.ID,
		PaymentID:         res.PaymentID,
		SignatureVerified: true,
		Amount:            order.Amount,
		RecipientName:     order.RecipientName,
		RecipientUPI:      order.RecipientUPI,
		SenderName:        senderName,
		Timestamp:         o.now(),
	}, nil
}

func (o *Orchestrator) failOrder(order *Order) {
	o.setStatus(context.Background(), order, StatusFailed)
}

func (o *Orchestrator) setStatus(ctx context.Context, order *Order, status OrderStatus) {
	order.Status = status
	if o.store == nil {
		return
	}
	if err := o.store.UpdateOrderStatus(ctx, order.ID, status); err != nil {
		o.log.Warn("order status not persisted", "order", order.ID, "status", status, "err", err)
	}
}
