package payment

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ujjwal250802/chatapplication/internal/chat"
	"github.com/Ujjwal250802/chatapplication/internal/transport"
)

// Full flow: order through simulated checkout and verification, confirmation
// records delivered over a live hub channel.
func TestEndToEndVerifiedPaymentProducesBothRecords(t *testing.T) {
	creds := transport.Credentials{APIKey: "k", APISecret: "s"}
	hub := transport.NewHub(creds, discard())

	recipient := transport.Identity{ID: "b", Name: "Priya"}
	tok, err := creds.IssueToken("b", time.Minute)
	require.NoError(t, err)
	cb, err := hub.Connect(recipient, tok)
	require.NoError(t, err)
	hb, err := cb.Channel("messaging", "a-b", transport.ChannelOptions{})
	require.NoError(t, err)
	require.NoError(t, hb.Watch())

	gw, err := NewSimGateway("rzp_test_key", "rzp_test_secret")
	require.NoError(t, err)
	orch := NewOrchestrator(gw, nil, discard())

	order, err := orch.CreateOrder(context.Background(), 500, "INR", "Priya", "priya@upi")
	require.NoError(t, err)

	results := make(chan CheckoutResult, 1)
	results <- gw.Checkout(order.ID)
	res, err := orch.AwaitCheckout(context.Background(), order, results)
	require.NoError(t, err)

	out, err := orch.Verify(context.Background(), order, res, "Arjun")
	require.NoError(t, err)
	require.True(t, out.SignatureVerified)

	emitter := NewEmitter(10*time.Millisecond, discard())
	pub := hub.Publisher("messaging", "a-b", transport.Identity{ID: "a", Name: "Arjun"}, nil)
	emitRes, err := emitter.Emit(context.Background(), pub, out)
	require.NoError(t, err)
	require.NoError(t, emitRes.Recipient.Wait(context.Background()))

	var got []chat.Message
	for i := 0; i < 2; i++ {
		select {
		case data := <-cb.Deliveries():
			var m chat.Message
			require.NoError(t, json.Unmarshal(data, &m))
			got = append(got, m)
		case <-time.After(time.Second):
			t.Fatal("confirmation records not delivered")
		}
	}

	require.Len(t, got, 2)
	assert.Equal(t, chat.TypePaymentConfirmation, got[0].Type)
	assert.Equal(t, float64(500), got[0].PaymentDetails.Amount)
	assert.Equal(t, chat.DirectionSent, got[0].PaymentDetails.Type)

	assert.Equal(t, chat.TypePaymentNotification, got[1].Type)
	assert.Equal(t, chat.DirectionReceived, got[1].PaymentDetails.Type)
	assert.Equal(t, got[0].PaymentDetails.TransactionID, got[1].PaymentDetails.TransactionID)
	assert.Equal(t, StatusVerified, order.Status)
}

// Tampered signature: verification fails, order is failed, and nothing is
// ever emitted.
func TestEndToEndTamperedSignature(t *testing.T) {
	gw, err := NewSimGateway("rzp_test_key", "rzp_test_secret")
	require.NoError(t, err)
	orch := NewOrchestrator(gw, nil, discard())

	order, err := orch.CreateOrder(context.Background(), 500, "INR", "Priya", "priya@upi")
	require.NoError(t, err)

	res := gw.Checkout(order.ID)
	res.Signature = Signature("attacker_secret", res.OrderID, res.PaymentID)

	out, err := orch.Verify(context.Background(), order, res, "Arjun")
	assert.ErrorIs(t, err, ErrVerificationFailed)
	assert.Nil(t, out)
	assert.Equal(t, StatusFailed, order.Status)

	// nothing to emit: the emitter rejects anything but a verified outcome,
	// so no confirmation record can exist for this order
	sender := &recordingSender{}
	emitter := NewEmitter(time.Millisecond, discard())
	_, err = emitter.Emit(context.Background(), sender, nil)
	assert.ErrorIs(t, err, ErrEmitUnverified)
	assert.Empty(t, sender.messages())
}

// Negative amount: rejected locally, no order, no gateway traffic, no
// messages.
func TestEndToEndInvalidAmount(t *testing.T) {
	gw := &fakeGateway{}
	orch := NewOrchestrator(gw, nil, discard())

	order, err := orch.CreateOrder(context.Background(), -5, "INR", "Priya", "priya@upi")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Nil(t, order)
	assert.Zero(t, gw.createCalls)
}

// A degraded delivery must leave the order verified: the money moved even if
// the chat record did not.
func TestEndToEndDegradedDeliveryKeepsOrderVerified(t *testing.T) {
	gw, err := NewSimGateway("rzp_test_key", "rzp_test_secret")
	require.NoError(t, err)
	orch := NewOrchestrator(gw, nil, discard())

	order, err := orch.CreateOrder(context.Background(), 100, "INR", "Priya", "priya@upi")
	require.NoError(t, err)
	out, err := orch.Verify(context.Background(), order, gw.Checkout(order.ID), "Arjun")
	require.NoError(t, err)

	emitter := NewEmitter(time.Millisecond, discard())
	emitter.backoff = time.Millisecond
	sender := &recordingSender{failAll: true}

	_, err = emitter.Emit(context.Background(), sender, out)
	var degraded *DeliveryDegradedError
	require.ErrorAs(t, err, &degraded)
	assert.Equal(t, StatusVerified, order.Status)
}
