/*
Package api exposes the storefront over HTTP.

Two surfaces share one chi router:

  - the public api under /api: checkout configuration, tier pricing, order
    creation and capture, purchase lookup, key resend and verification,
    reviews and issue reports
  - the operator api under /api/admin, protected by a rolling HMAC token:
    manual key issuance, the active key listing, key reports, revocation
    with reissue, full rotation, review moderation and issue reading

Prometheus metrics are served on /metrics in plain text.

Handlers translate domain outcomes to status codes but never invent domain
logic of their own; everything of substance lives in the lib packages.
*/
package api
