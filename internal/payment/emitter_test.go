package payment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ujjwal250802/chatapplication/internal/chat"
)

type recordingSender struct {
	mu       sync.Mutex
	sent     []chat.Message
	failNext int // fail this many sends before succeeding
	failAll  bool
}

func (s *recordingSender) SendMessage(msg chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return errors.New("transport down")
	}
	if s.failNext > 0 {
		s.failNext--
		return errors.New("transient send failure")
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) messages() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]chat.Message, len(s.sent))
	copy(out, s.sent)
	return out
}

func verifiedOutcome() *Outcome {
	return &Outcome{
		OrderID:           "order_1",
		PaymentID:         "pay_1",
		SignatureVerified: true,
		Amount:            50000,
		RecipientName:     "Priya",
		RecipientUPI:      "priya@upi",
		SenderName:        "Arjun",
		Timestamp:         time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
	}
}

func TestEmitSenderBeforeRecipient(t *testing.T) {
	sender := &recordingSender{}
	e := NewEmitter(10*time.Millisecond, discard())

	res, err := e.Emit(context.Background(), sender, verifiedOutcome())
	require.NoError(t, err)
	assert.True(t, res.SenderSent)

	require.NoError(t, res.Recipient.Wait(context.Background()))

	msgs := sender.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, chat.TypePaymentConfirmation, msgs[0].Type)
	assert.Equal(t, chat.TypePaymentNotification, msgs[1].Type)
	assert.Equal(t, chat.DirectionSent, msgs[0].PaymentDetails.Type)
	assert.Equal(t, chat.DirectionReceived, msgs[1].PaymentDetails.Type)

	// both records carry the same transaction and order ids
	assert.Equal(t, "pay_1", msgs[0].PaymentDetails.TransactionID)
	assert.Equal(t, msgs[0].PaymentDetails.TransactionID, msgs[1].PaymentDetails.TransactionID)
	assert.Equal(t, msgs[0].PaymentDetails.OrderID, msgs[1].PaymentDetails.OrderID)
	assert.Equal(t, float64(500), msgs[0].PaymentDetails.Amount)
}

func TestEmitRefusesUnverifiedOutcome(t *testing.T) {
	sender := &recordingSender{}
	e := NewEmitter(time.Millisecond, discard())

	out := verifiedOutcome()
	out.SignatureVerified = false

	_, err := e.Emit(context.Background(), sender, out)
	assert.ErrorIs(t, err, ErrEmitUnverified)
	assert.Empty(t, sender.messages())

	_, err = e.Emit(context.Background(), sender, nil)
	assert.ErrorIs(t, err, ErrEmitUnverified)
}

func TestEmitRetriesTransientFailure(t *testing.T) {
	sender := &recordingSender{failNext: 2}
	e := NewEmitter(time.Millisecond, discard())
	e.backoff = time.Millisecond

	res, err := e.Emit(context.Background(), sender, verifiedOutcome())
	require.NoError(t, err)
	assert.True(t, res.SenderSent)
}

func TestEmitExhaustedRetriesIsDeliveryDegraded(t *testing.T) {
	sender := &recordingSender{failAll: true}
	e := NewEmitter(time.Millisecond, discard())
	e.backoff = time.Millisecond

	res, err := e.Emit(context.Background(), sender, verifiedOutcome())
	require.Error(t, err)

	var degraded *DeliveryDegradedError
	require.ErrorAs(t, err, &degraded)
	assert.Equal(t, chat.TypePaymentConfirmation, degraded.Record)
	assert.Equal(t, "order_1", degraded.OrderID)
	assert.NotErrorIs(t, err, ErrVerificationFailed)
	assert.False(t, res.SenderSent)

	// the recipient leg was still scheduled, and degrades independently
	require.NotNil(t, res.Recipient)
	err = res.Recipient.Wait(context.Background())
	require.ErrorAs(t, err, &degraded)
	assert.Equal(t, chat.TypePaymentNotification, degraded.Record)
}

func TestScheduledSendCancel(t *testing.T) {
	sender := &recordingSender{}
	e := NewEmitter(time.Hour, discard()) // would fire far in the future

	res, err := e.Emit(context.Background(), sender, verifiedOutcome())
	require.NoError(t, err)

	res.Recipient.Cancel()
	assert.ErrorIs(t, res.Recipient.Wait(context.Background()), ErrSendCancelled)
	assert.Len(t, sender.messages(), 1, "cancelled send must not fire")
}

func TestBuildRecordBothDirections(t *testing.T) {
	out := verifiedOutcome()

	sent := BuildRecord(out, chat.DirectionSent)
	recv := BuildRecord(out, chat.DirectionReceived)

	assert.Equal(t, chat.RenderPaymentConfirmation, chat.Classify(sent))
	assert.Equal(t, chat.RenderPaymentNotification, chat.Classify(recv))
	assert.Contains(t, sent.Text, "₹500")
	assert.Contains(t, sent.Text, "Priya")
	assert.Contains(t, recv.Text, "Arjun")
	assert.Equal(t, chat.StatusCompleted, sent.PaymentDetails.Status)
	assert.Equal(t, "2024-01-15T10:00:00Z", sent.PaymentDetails.Timestamp)
	assert.Equal(t, sent.PaymentDetails.TransactionID, recv.PaymentDetails.TransactionID)
}
