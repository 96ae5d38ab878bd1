package chat

// RenderAs tells the delivery path how an inbound message should be handled.
type RenderAs int

const (
	RenderPlainText RenderAs = iota
	RenderPaymentConfirmation
	RenderPaymentNotification
	RenderSuppressed
)

func (r RenderAs) String() string {
	switch r {
	case RenderPlainText:
		return "plain_text"
	case RenderPaymentConfirmation:
		return "payment_confirmation"
	case RenderPaymentNotification:
		return "payment_notification"
	case RenderSuppressed:
		return "suppressed"
	}
	return "unknown"
}

// Classify routes a message by its declared type tag. It is a pure function:
// a malformed payment-typed message classifies as Suppressed rather than
// failing, since a bad historical message must never take down the channel
// view.
func Classify(m Message) RenderAs {
	switch m.Type {
	case "":
		return RenderPlainText
	case TypePaymentConfirmation:
		if !validPaymentDetails(m.PaymentDetails) {
			return RenderSuppressed
		}
		return RenderPaymentConfirmation
	case TypePaymentNotification:
		if !validPaymentDetails(m.PaymentDetails) {
			return RenderSuppressed
		}
		return RenderPaymentNotification
	default:
		// Unknown non-payment tags degrade to plain text.
		return RenderPlainText
	}
}

func validPaymentDetails(d *PaymentDetails) bool {
	if d == nil {
		return false
	}
	if d.Amount <= 0 || d.TransactionID == "" || d.OrderID == "" {
		return false
	}
	switch d.Type {
	case DirectionSent, DirectionReceived:
		return true
	}
	return false
}
