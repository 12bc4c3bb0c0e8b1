package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/xtruelegend/keymint/lib/pool"
)

// Verdict is the outcome of a key validity check. Source names the link of
// the chain that decided: "deactivated", "issued", "pool", "remote" or
// "unknown".
type Verdict struct {
	Valid  bool   `json:"valid"`
	Source string `json:"source"`
}

// Verifier checks license keys against the revocation list, the issued set,
// the pool document and optionally an external validation service.
type Verifier struct {
	mgr         *Manager
	validateURL string
	client      *http.Client
}

// NewVerifier creates a verifier. validateURL may be empty; the remote link
// of the chain is then skipped.
func NewVerifier(mgr *Manager, validateURL string) *Verifier {
	return &Verifier{
		mgr:         mgr,
		validateURL: validateURL,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

// Verify walks the validation chain. Revocation always wins: a deactivated
// key is invalid no matter what any later link would say.
func (v *Verifier) Verify(ctx context.Context, key string) (Verdict, error) {
	key = pool.Normalize(key)
	if key == "" {
		return Verdict{Valid: false, Source: "unknown"}, nil
	}

	revoked, err := v.mgr.IsDeactivated(ctx, key)
	if err != nil {
		return Verdict{}, err
	}
	if revoked {
		return Verdict{Valid: false, Source: "deactivated"}, nil
	}

	issued, err := v.mgr.ledger.IssuedKeys(ctx)
	if err != nil {
		lifecycleLogger.Warnf("issued set unavailable during verification: %v", err)
	} else if _, ok := issued[key]; ok {
		return Verdict{Valid: true, Source: "issued"}, nil
	}

	if doc, err := v.mgr.alloc.Source().Load(ctx); err == nil && doc.Contains(key) {
		return Verdict{Valid: true, Source: "pool"}, nil
	}

	if v.validateURL != "" {
		valid, err := v.remote(ctx, key)
		if err != nil {
			lifecycleLogger.Errorf("remote validation failed: %v", err)
		} else {
			return Verdict{Valid: valid, Source: "remote"}, nil
		}
	}

	return Verdict{Valid: false, Source: "unknown"}, nil
}

// remote asks the external validation service about the key.
func (v *Verifier) remote(ctx context.Context, key string) (bool, error) {
	u := v.validateURL + "?key=" + url.QueryEscape(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, err
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return false, fmt.Errorf("validation service returned %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		Valid bool `json:"valid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return false, err
	}
	return payload.Valid, nil
}
