package notify

import "context"

// Message is a single outbound mail.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Result describes what Send did with a message.
type Result struct {
	// Skipped is true when no transport is configured and the message was
	// dropped rather than handed off.
	Skipped bool

	// MessageID is the Message-ID header of the delivered mail, empty for
	// skipped deliveries.
	MessageID string
}

// INotifier delivers purchase receipts and operator reports. Delivery is
// best-effort: callers treat a failed or skipped send as a degraded outcome,
// never as a reason to roll back the purchase itself.
type INotifier interface {
	// Send delivers the message. A nil error means the message was accepted
	// by the transport (or knowingly skipped, see Result), not that it
	// reached the recipient.
	Send(ctx context.Context, msg Message) (Result, error)

	// Name returns a short identifier for logging.
	Name() string
}
