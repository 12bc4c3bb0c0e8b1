package notify

import "github.com/xtruelegend/keymint/lib/config"

// Select picks the mail transport for the given configuration: SMTP when
// host and sender are set, otherwise the logging noop transport.
func Select(cfg *config.Config) INotifier {
	if cfg.SMTPHost != "" && cfg.SMTPFrom != "" {
		n := NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
		notifyLogger.Infof("using mail transport: %s", n.Name())
		return n
	}
	notifyLogger.Warnf("no mail transport configured, receipts will be dropped")
	return NewNoopNotifier()
}
