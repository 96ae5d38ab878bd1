package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/Ujjwal250802/chatapplication/internal/chat"
)

// ErrEmitUnverified means someone tried to build confirmation records from
// an outcome that never passed signature verification.
var ErrEmitUnverified = errors.New("refusing to emit confirmation for unverified outcome")

// ErrSendCancelled reports a scheduled send cancelled before it fired.
var ErrSendCancelled = errors.New("scheduled send cancelled")

// DeliveryDegradedError reports that the payment itself is settled but a
// confirmation record could not be delivered. It is deliberately distinct
// from any payment failure: money was not lost, only the in-chat record of
// it is missing.
type DeliveryDegradedError struct {
	Record  string // chat.TypePaymentConfirmation or chat.TypePaymentNotification
	OrderID string
	Err     error
}

func (e *DeliveryDegradedError) Error() string {
	return fmt.Sprintf("payment settled but %s not delivered for order %s: %v", e.Record, e.OrderID, e.Err)
}

func (e *DeliveryDegradedError) Unwrap() error { return e.Err }

// Sender is the slice of a channel handle the emitter needs.
type Sender interface {
	SendMessage(msg chat.Message) error
}

// Emitter turns one verified outcome into the pair of confirmation records:
// the sender-facing record immediately, the recipient-facing record after a
// short fixed delay.
type Emitter struct {
	delay    time.Duration
	attempts int
	backoff  time.Duration
	log      *slog.Logger
}

func NewEmitter(delay time.Duration, log *slog.Logger) *Emitter {
	return &Emitter{delay: delay, attempts: 3, backoff: 200 * time.Millisecond, log: log}
}

// EmitResult reports the two delivery legs. The recipient leg is a task the
// caller can await, cancel, or inspect rather than a fire-and-forget timer.
type EmitResult struct {
	SenderSent bool
	Recipient  *ScheduledSend
}

// Emit sends the sender-facing record and schedules the recipient-facing
// one. The sender send is always issued before the recipient send is
// scheduled; both records share the outcome's order and transaction ids. A
// sender leg that exhausts its retries returns a DeliveryDegradedError, but
// the recipient leg is still scheduled: the two sends are independent.
func (e *Emitter) Emit(ctx context.Context, ch Sender, out *Outcome) (*EmitResult, error) {
	if out == nil || !out.SignatureVerified {
		return nil, ErrEmitUnverified
	}

	res := &EmitResult{}
	sendErr := e.sendWithRetry(ctx, ch, BuildRecord(out, chat.DirectionSent))
	res.SenderSent = sendErr == nil

	res.Recipient = e.schedule(ctx, ch, BuildRecord(out, chat.DirectionReceived), out.OrderID)

	if sendErr != nil {
		degraded := &DeliveryDegradedError{Record: chat.TypePaymentConfirmation, OrderID: out.OrderID, Err: sendErr}
		e.log.Warn("confirmation delivery degraded", "order", out.OrderID, "err", sendErr)
		return res, degraded
	}
	return res, nil
}

func (e *Emitter) sendWithRetry(ctx context.Context, ch Sender, msg chat.Message) error {
	var err error
	for attempt := 1; attempt <= e.attempts; attempt++ {
		if err = ch.SendMessage(msg); err == nil {
			return nil
		}
		if attempt == e.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.backoff):
		}
	}
	return fmt.Errorf("after %d attempts: %w", e.attempts, err)
}

func (e *Emitter) schedule(ctx context.Context, ch Sender, msg chat.Message, orderID string) *ScheduledSend {
	s := &ScheduledSend{done: make(chan struct{})}
	s.timer = time.AfterFunc(e.delay, func() {
		if err := e.sendWithRetry(ctx, ch, msg); err != nil {
			s.finish(&DeliveryDegradedError{Record: chat.TypePaymentNotification, OrderID: orderID, Err: err})
			e.log.Warn("notification delivery degraded", "order", orderID, "err", err)
			return
		}
		s.finish(nil)
	})
	return s
}

// ScheduledSend is an owned delayed send: awaitable, cancellable,
// inspectable.
type ScheduledSend struct {
	timer *time.Timer
	once  sync.Once
	done  chan struct{}

	mu  sync.Mutex
	err error
}

func (s *ScheduledSend) finish(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.once.Do(func() { close(s.done) })
}

// Done is closed once the send completed, failed, or was cancelled.
func (s *ScheduledSend) Done() <-chan struct{} { return s.done }

// Err reports the terminal result; call it after Done is closed.
func (s *ScheduledSend) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Wait blocks until the send finishes or ctx expires.
func (s *ScheduledSend) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return s.Err()
	}
}

// Cancel stops the send if it has not fired yet.
func (s *ScheduledSend) Cancel() {
	if s.timer.Stop() {
		s.finish(ErrSendCancelled)
	}
}

// BuildRecord constructs a confirmation record from a verified outcome. One
// builder serves both directions so the sender and recipient copies can
// never drift apart.
func BuildRecord(out *Outcome, direction string) chat.Message {
	amount := strconv.FormatFloat(out.AmountMajor(), 'f', -1, 64)

	msgType := chat.TypePaymentConfirmation
	text := fmt.Sprintf("Payment sent: ₹%s to %s (txn %s)", amount, out.RecipientName, out.PaymentID)
	if direction == chat.DirectionReceived {
		msgType = chat.TypePaymentNotification
		text = fmt.Sprintf("Payment received: ₹%s from %s (txn %s)", amount, out.SenderName, out.PaymentID)
	}

	return chat.Message{
		Type: msgType,
		Text: text,
		PaymentDetails: &chat.PaymentDetails{
			Amount:        out.AmountMajor(),
			RecipientName: out.RecipientName,
			RecipientUPI:  out.RecipientUPI,
			TransactionID: out.PaymentID,
			OrderID:       out.OrderID,
			SenderName:    out.SenderName,
			Timestamp:     out.Timestamp.UTC().Format(time.RFC3339),
			Status:        chat.StatusCompleted,
			Type:          direction,
		},
	}
}
