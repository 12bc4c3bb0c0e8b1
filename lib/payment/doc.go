/*
Package payment wraps the external payment processor behind the
ICaptureProvider interface: create an order for the current unit price, then
capture it once the buyer has approved.

The PayPal implementation speaks the orders v2 api with a cached
client-credentials OAuth token. Captures are idempotent on the provider side,
so retrying a capture after a transport error is safe.
*/
package payment
