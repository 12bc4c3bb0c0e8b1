package payment

import "context"

// Order is a created but not yet captured payment order.
type Order struct {
	ID string `json:"id"`
}

// Capture is the outcome of capturing an approved order.
type Capture struct {
	OrderID string
	// Status is the provider's capture status, e.g. "COMPLETED".
	Status string
	// PayerEmail is the buyer address reported by the provider. May be empty
	// when the provider withholds it; callers then fall back to the address
	// submitted with the capture request.
	PayerEmail string
}

// Completed reports whether the capture finished successfully.
func (c Capture) Completed() bool {
	return c.Status == "COMPLETED"
}

// ICaptureProvider creates and captures payment orders with an external
// processor. Implementations are safe for concurrent use.
type ICaptureProvider interface {
	// CreateOrder creates an order over value units of the given currency
	// and returns its provider-side id.
	CreateOrder(ctx context.Context, value, currency string) (Order, error)

	// CaptureOrder captures a previously approved order.
	CaptureOrder(ctx context.Context, orderID string) (Capture, error)

	// Name returns a short identifier for logging.
	Name() string
}
