package allocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/xtruelegend/keymint/lib/ledger"
	"github.com/xtruelegend/keymint/lib/logging"
	"github.com/xtruelegend/keymint/lib/notify"
	"github.com/xtruelegend/keymint/lib/payment"
	"github.com/xtruelegend/keymint/lib/pool"
	"github.com/xtruelegend/keymint/lib/pricing"
)

var allocationLogger = logging.GetLogger("allocation")

var (
	ordersCreatedTotal   = metrics.NewCounter(`keymint_orders_created_total`)
	capturesTotal        = metrics.NewCounter(`keymint_captures_completed_total`)
	keysIssuedTotal      = metrics.NewCounter(`keymint_keys_issued_total`)
	poolExhaustedTotal   = metrics.NewCounter(`keymint_pool_exhausted_total`)
	persistFailuresTotal = metrics.NewCounter(`keymint_ledger_persist_failures_total`)
	mailFailuresTotal    = metrics.NewCounter(`keymint_mail_failures_total`)
)

// Outcome is the terminal state of a purchase flow.
type Outcome string

const (
	// OutcomeNotified is the fully successful path: captured, key issued,
	// recorded and receipt mail accepted.
	OutcomeNotified Outcome = "NOTIFIED"

	// OutcomeRecorded means the purchase completed but the receipt mail was
	// not accepted by the transport. The key is in the response body.
	OutcomeRecorded Outcome = "RECORDED"

	// OutcomeFailedNoKey means payment was captured but the pool had no
	// unissued key left. The buyer paid and must be made whole manually.
	OutcomeFailedNoKey Outcome = "FAILED_NO_KEY"

	// OutcomeFailedPersist means a key was issued but writing the purchase
	// record failed. The key is valid and delivered; the ledger row is
	// missing until the backend recovers.
	OutcomeFailedPersist Outcome = "FAILED_PERSIST"
)

// Result describes how a capture ended.
type Result struct {
	Outcome    Outcome
	Email      string
	LicenseKey string
	OrderID    string
}

// Service orchestrates the purchase flow from order creation through capture,
// key allocation, ledger persistence and receipt delivery.
type Service struct {
	provider payment.ICaptureProvider
	alloc    *pool.Allocator
	ledger   *ledger.Ledger
	pricing  *pricing.Engine
	notifier notify.INotifier

	product     string
	currency    string
	downloadURL string
}

// NewService wires the purchase flow.
func NewService(
	provider payment.ICaptureProvider,
	alloc *pool.Allocator,
	l *ledger.Ledger,
	engine *pricing.Engine,
	notifier notify.INotifier,
	product, currency, downloadURL string,
) *Service {
	return &Service{
		provider:    provider,
		alloc:       alloc,
		ledger:      l,
		pricing:     engine,
		notifier:    notifier,
		product:     product,
		currency:    currency,
		downloadURL: downloadURL,
	}
}

// CreateOrder opens a payment order over the current tier price.
func (s *Service) CreateOrder(ctx context.Context) (payment.Order, error) {
	price := s.pricing.CurrentPrice()
	order, err := s.provider.CreateOrder(ctx, price, s.currency)
	if err != nil {
		return payment.Order{}, err
	}

	ordersCreatedTotal.Inc()
	allocationLogger.Infof("order %s created over %s %s", order.ID, price, s.currency)
	return order, nil
}

// HandleCapture drives a capture to its terminal state. The returned error is
// non-nil only when the payment itself did not complete; once money has
// moved, every downstream failure is encoded in the Result outcome instead,
// because the buyer must get a key or an actionable failure state, never a
// bare error that hides whether they paid.
func (s *Service) HandleCapture(ctx context.Context, orderID, email string) (Result, error) {
	capture, err := s.provider.CaptureOrder(ctx, orderID)
	if err != nil {
		return Result{}, err
	}
	if !capture.Completed() {
		return Result{}, fmt.Errorf("capture of order %s ended with status %s", orderID, capture.Status)
	}
	capturesTotal.Inc()

	email = ledger.NormalizeEmail(email)
	if email == "" {
		email = ledger.NormalizeEmail(capture.PayerEmail)
	}

	// the sale happened, so the tier counter advances no matter how the
	// rest of the flow goes
	if err := s.pricing.IncrementCounter(); err != nil {
		allocationLogger.Errorf("advancing sales counter failed: %v", err)
	}

	res := Result{Email: email, OrderID: capture.OrderID}

	key, err := s.alloc.Next(ctx)
	if err != nil {
		if errors.Is(err, pool.ErrPoolExhausted) {
			poolExhaustedTotal.Inc()
			allocationLogger.Errorf("order %s paid but pool is exhausted", capture.OrderID)
			res.Outcome = OutcomeFailedNoKey
			return res, nil
		}
		res.Outcome = OutcomeFailedNoKey
		allocationLogger.Errorf("order %s paid but allocation failed: %v", capture.OrderID, err)
		return res, nil
	}
	keysIssuedTotal.Inc()
	res.LicenseKey = key

	rec := ledger.Record{
		Email:      email,
		LicenseKey: key,
		Product:    s.product,
		OrderID:    capture.OrderID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.ledger.Append(ctx, rec); err != nil {
		persistFailuresTotal.Inc()
		allocationLogger.Errorf("recording purchase for order %s failed: %v", capture.OrderID, err)
		res.Outcome = OutcomeFailedPersist
		return res, nil
	}

	res.Outcome = OutcomeNotified
	sent, err := s.notifier.Send(ctx, notify.KeyDelivery(email, s.product, key, s.downloadURL))
	switch {
	case err != nil:
		mailFailuresTotal.Inc()
		allocationLogger.Errorf("receipt mail for order %s failed: %v", capture.OrderID, err)
		res.Outcome = OutcomeRecorded
	case sent.Skipped:
		res.Outcome = OutcomeRecorded
	}

	allocationLogger.Infof("order %s completed with outcome %s", capture.OrderID, res.Outcome)
	return res, nil
}

// Resend mails the most recent purchase's key to its owner again.
func (s *Service) Resend(ctx context.Context, email string) (ledger.Record, error) {
	email = ledger.NormalizeEmail(email)
	records, err := s.ledger.ListFor(ctx, email)
	if err != nil {
		return ledger.Record{}, err
	}
	if len(records) == 0 {
		return ledger.Record{}, fmt.Errorf("no purchases for %s", email)
	}

	rec := records[len(records)-1]
	msg := notify.KeyDelivery(email, rec.Product, rec.LicenseKey, s.downloadURL)
	if _, err := s.notifier.Send(ctx, msg); err != nil {
		mailFailuresTotal.Inc()
		return ledger.Record{}, err
	}
	return rec, nil
}

// Issue allocates a key and records a purchase outside any payment flow.
// Used by the operator surface to hand out complimentary keys.
func (s *Service) Issue(ctx context.Context, email, orderID string) (Result, error) {
	email = ledger.NormalizeEmail(email)
	if email == "" {
		return Result{}, fmt.Errorf("empty email")
	}
	if orderID == "" {
		orderID = fmt.Sprintf("MANUAL-%d", time.Now().UnixMilli())
	}

	key, err := s.alloc.Next(ctx)
	if err != nil {
		if errors.Is(err, pool.ErrPoolExhausted) {
			poolExhaustedTotal.Inc()
		}
		return Result{}, err
	}
	keysIssuedTotal.Inc()

	rec := ledger.Record{
		Email:      email,
		LicenseKey: key,
		Product:    s.product,
		OrderID:    orderID,
		CreatedAt:  time.Now().UTC(),
	}
	res := Result{Email: email, LicenseKey: key, OrderID: orderID}
	if err := s.ledger.Append(ctx, rec); err != nil {
		persistFailuresTotal.Inc()
		res.Outcome = OutcomeFailedPersist
		return res, nil
	}

	res.Outcome = OutcomeNotified
	sent, err := s.notifier.Send(ctx, notify.KeyDelivery(email, s.product, key, s.downloadURL))
	if err != nil {
		mailFailuresTotal.Inc()
		res.Outcome = OutcomeRecorded
	} else if sent.Skipped {
		res.Outcome = OutcomeRecorded
	}
	return res, nil
}
