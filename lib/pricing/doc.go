/*
Package pricing implements tiered launch pricing over a JSON tier document.

The document holds a cumulative sales counter and an ordered list of tiers,
each granting maxCopies sales at a fixed price. The active tier is the one
whose capacity range contains the counter; past the schedule the last tier's
price keeps applying, and with no document at all a flat base price is used.

The counter only ever advances via IncrementCounter, once per completed
purchase. Price lookups never mutate the document, so repeated reads between
sales are stable.
*/
package pricing
