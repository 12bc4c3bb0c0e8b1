/*
Package allocation drives a purchase from payment capture to key delivery.

The flow is strictly ordered: capture the order, advance the sales counter,
allocate the next unissued pool key, append the purchase record, mail the
receipt. Once the capture completes, downstream failures never surface as
plain errors; they become explicit outcomes (FAILED_NO_KEY, FAILED_PERSIST,
RECORDED) so the caller always knows whether money moved and whether a key
was handed out.

The sales counter advances exactly once per completed capture, including
captures whose later steps fail. A paid sale is a sale for pricing purposes
even when the ledger write did not stick.
*/
package allocation
