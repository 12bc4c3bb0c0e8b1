package notify

import "context"

type noopNotifierImpl struct{}

// NewNoopNotifier creates a notifier that logs instead of sending. Used when
// no mail transport is configured so purchases still complete.
func NewNoopNotifier() INotifier {
	return &noopNotifierImpl{}
}

func (n *noopNotifierImpl) Name() string { return "noop" }

func (n *noopNotifierImpl) Send(_ context.Context, msg Message) (Result, error) {
	notifyLogger.Warnf("mail transport not configured, dropping mail to %s (%s)", msg.To, msg.Subject)
	return Result{Skipped: true}, nil
}
