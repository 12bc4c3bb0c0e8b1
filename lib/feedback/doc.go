/*
Package feedback stores customer reviews and issue reports in the key-value
backend, each concern as a single JSON list.

Reviews go through moderation: new submissions are unapproved and only show
up on the public surface after an operator approves them. Issue reports are
operator-only reading material from the start.
*/
package feedback
