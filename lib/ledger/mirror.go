package ledger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/xtruelegend/keymint/lib/pool"
)

// Mirror is the lagging, best-effort duplicate of the purchase ledger in a
// local file. It exists for offline/development parity: when no backend is
// configured the mirror is the only record, and when one is configured the
// mirror still feeds the issued-key union so a dev deployment cannot re-issue
// keys already handed out. It is never authoritative.
type Mirror struct {
	path string
	mu   sync.Mutex
}

func NewMirror(path string) *Mirror {
	return &Mirror{path: path}
}

// Records reads all mirrored records. A missing or unreadable file is an
// empty mirror, not an error.
func (m *Mirror) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read()
}

// Append adds a record to the mirror file, creating it (and its directory)
// on first use.
func (m *Mirror) Append(rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return err
	}

	records := append(m.read(), rec)
	raw, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, raw, 0o644)
}

// IssuedKeys returns the normalized set of keys present in the mirror.
func (m *Mirror) IssuedKeys() map[string]struct{} {
	issued := make(map[string]struct{})
	for _, rec := range m.Records() {
		if key := pool.Normalize(rec.LicenseKey); key != "" {
			issued[key] = struct{}{}
		}
	}
	return issued
}

// Find returns the mirrored records owned by the given email.
func (m *Mirror) Find(email string) []Record {
	normalized := NormalizeEmail(email)
	var out []Record
	for _, rec := range m.Records() {
		if NormalizeEmail(rec.Email) == normalized {
			out = append(out, rec)
		}
	}
	return out
}

// FindByKey returns the first mirrored record holding the given key.
func (m *Mirror) FindByKey(key string) (Record, bool) {
	normalized := pool.Normalize(key)
	for _, rec := range m.Records() {
		if pool.Normalize(rec.LicenseKey) == normalized {
			return rec, true
		}
	}
	return Record{}, false
}

func (m *Mirror) read() []Record {
	raw, err := os.ReadFile(m.path)
	if err != nil {
		return nil
	}
	var records []Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil
	}
	return records
}
