package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/google/uuid"

	"github.com/xtruelegend/keymint/lib/logging"
)

var notifyLogger = logging.GetLogger("notify")

type smtpNotifierImpl struct {
	host string
	port int
	user string
	pass string
	from string
}

// NewSMTPNotifier creates a notifier that delivers mail over plain
// SMTP with AUTH PLAIN. from is the envelope and header sender.
func NewSMTPNotifier(host string, port int, user, pass, from string) INotifier {
	return &smtpNotifierImpl{
		host: host,
		port: port,
		user: user,
		pass: pass,
		from: from,
	}
}

func (n *smtpNotifierImpl) Name() string {
	return fmt.Sprintf("smtp(%s:%d)", n.host, n.port)
}

func (n *smtpNotifierImpl) Send(ctx context.Context, msg Message) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if msg.To == "" {
		return Result{}, fmt.Errorf("empty recipient")
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), n.host)

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", n.from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Message-ID: %s\r\n", messageID)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)

	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	auth := smtp.PlainAuth("", n.user, n.pass, n.host)

	if err := smtp.SendMail(addr, auth, n.from, []string{msg.To}, []byte(b.String())); err != nil {
		return Result{}, fmt.Errorf("send mail via %s: %w", addr, err)
	}

	notifyLogger.Debugf("mail sent to %s (%s)", msg.To, msg.Subject)
	return Result{MessageID: messageID}, nil
}
