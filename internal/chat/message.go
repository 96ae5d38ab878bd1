package chat

// Message type tags carried on the wire. A message without a type tag is
// plain text.
const (
	TypePaymentConfirmation = "payment_confirmation" // sender-facing record
	TypePaymentNotification = "payment_notification" // recipient-facing record
)

// Direction values inside payment_details.
const (
	DirectionSent     = "sent"
	DirectionReceived = "received"
)

// StatusCompleted is the only status a confirmation record ever carries:
// records are written once, after settlement, and never edited.
const StatusCompleted = "completed"

type Message struct {
	Type string `json:"type,omitempty"` // "", payment_confirmation, payment_notification
	Text string `json:"text"`

	PaymentDetails *PaymentDetails `json:"payment_details,omitempty"`

	// filled by the transport before delivery
	SenderID   string `json:"sender_id,omitempty"`
	SenderName string `json:"sender_name,omitempty"`
	ChannelKey string `json:"channel_key,omitempty"`
	Seq        int64  `json:"seq,omitempty"`
}

// PaymentDetails is the denormalized copy of a verified payment outcome that
// rides inside a confirmation record. Amount is in major units, matching what
// the order was placed in.
type PaymentDetails struct {
	Amount        float64 `json:"amount"`
	RecipientName string  `json:"recipient_name"`
	RecipientUPI  string  `json:"recipient_upi"`
	TransactionID string  `json:"transaction_id"`
	OrderID       string  `json:"order_id"`
	SenderName    string  `json:"sender_name"`
	Timestamp     string  `json:"timestamp"`
	Status        string  `json:"status"`
	Type          string  `json:"type"` // sent | received
}
