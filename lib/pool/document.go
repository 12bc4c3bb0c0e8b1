package pool

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// --------------------------------------------------------------------------
// Pool Document
// --------------------------------------------------------------------------

// Format tags the shape the key-pool document had on disk or on the wire.
// The shape is decided exactly once, at parse time; nothing downstream
// re-inspects the payload.
type Format string

const (
	// FormatList is a bare JSON array of key strings.
	FormatList Format = "list"
	// FormatWrapped is a JSON object with a "keys" field.
	FormatWrapped Format = "wrapped"
)

// Document is the parsed key pool: the externally provisioned, finite list of
// valid license keys, in provisioning order. Keys are stored case-normalized.
type Document struct {
	Format Format
	Keys   []string
}

// ErrMalformedDocument marks a key-pool payload that is neither a list nor a
// wrapped object. Callers treat a malformed document like an absent pool.
var ErrMalformedDocument = errors.New("malformed key pool document")

// wrappedDocument is the object form of the pool payload.
type wrappedDocument struct {
	Keys []string `json:"keys"`
}

// ParseDocument parses a key-pool payload. The payload may be a plain list of
// key strings or an object with a "keys" field; both are accepted and tagged.
func ParseDocument(raw []byte) (*Document, error) {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return &Document{Format: FormatList, Keys: normalizeAll(list)}, nil
	}

	var wrapped wrappedDocument
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Keys != nil {
		return &Document{Format: FormatWrapped, Keys: normalizeAll(wrapped.Keys)}, nil
	}

	return nil, ErrMalformedDocument
}

// Contains reports whether the normalized key is part of the pool.
func (d *Document) Contains(key string) bool {
	normalized := Normalize(key)
	for _, k := range d.Keys {
		if k == normalized {
			return true
		}
	}
	return false
}

// --------------------------------------------------------------------------
// Key helpers
// --------------------------------------------------------------------------

// Normalize returns the canonical form of a license key: trimmed, uppercase.
// Keys are case-insensitive identifiers; every comparison goes through here.
func Normalize(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

func normalizeAll(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if n := Normalize(k); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// NextUnissued returns the first pool entry not present in the issued set,
// preserving pool order (first-available policy, not random). The boolean is
// false when the pool is fully issued or empty: pool exhaustion, which
// callers must surface distinctly rather than swallow.
func NextUnissued(doc *Document, issued map[string]struct{}) (string, bool) {
	if doc == nil {
		return "", false
	}
	for _, key := range doc.Keys {
		if _, taken := issued[key]; !taken {
			return key, true
		}
	}
	return "", false
}

// GenerateKey creates a fresh key of the form XXXX-XXXX-XXXX-XXXX. Only used
// for local/offline fallback generation, never for paid issuance: paid keys
// come exclusively from the provisioned pool.
func GenerateKey() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("%s-%s-%s-%s", raw[0:4], raw[4:8], raw[8:12], raw[12:16])
}
