package ledger

import (
	"strings"
	"time"
)

// Record is one purchase: which key went to whom for which product. Records
// are created at allocation time, mutated in place only by the lifecycle
// manager (key swap during reissue/rotation), and never deleted.
type Record struct {
	Email      string    `json:"email"`
	LicenseKey string    `json:"licenseKey"`
	Product    string    `json:"product"`
	OrderID    string    `json:"orderId"`
	CreatedAt  time.Time `json:"date"`
}

// NormalizeEmail returns the canonical owner key for a buyer: lower-cased,
// trimmed. Every ledger lookup and write goes through this.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// purchasesKeyPrefix is the backend namespace of the per-email record lists.
const purchasesKeyPrefix = "purchases:"

// purchasesKey returns the backend key of the record list for an email
// (already normalized).
func purchasesKey(normalizedEmail string) string {
	return purchasesKeyPrefix + normalizedEmail
}

// emailFromKey recovers the normalized email from a backend key.
func emailFromKey(key string) string {
	return strings.TrimPrefix(key, purchasesKeyPrefix)
}
