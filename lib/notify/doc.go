/*
Package notify delivers outbound mail: purchase receipts carrying the license
key, replacement-key notices and operator key reports.

The package defines the INotifier interface together with two
implementations:

  - SMTP transport over net/smtp with AUTH PLAIN
  - a noop transport that logs and drops, used when no mail server is
    configured

Delivery is best-effort by contract. A purchase whose receipt mail fails is
still a completed purchase; callers surface the degraded state instead of
rolling back. Send returns a Result marking skipped drops so a dropped
receipt is never mistaken for a delivered one.
*/
package notify
