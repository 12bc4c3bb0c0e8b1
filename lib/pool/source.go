package pool

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/xtruelegend/keymint/lib/logging"
)

var poolLogger = logging.GetLogger("pool")

// ErrPoolUnavailable marks a pool that could not be loaded from any source.
// Alloc paths treat it like exhaustion; operator paths report it.
var ErrPoolUnavailable = fmt.Errorf("key pool unavailable")

// Source loads the key-pool document, preferring a local file if present and
// falling back to a remote fetch. A malformed payload from either source is
// treated like an absent one.
type Source struct {
	localPath string
	remoteURL string
	client    *http.Client
}

func NewSource(localPath, remoteURL string) *Source {
	return &Source{
		localPath: localPath,
		remoteURL: remoteURL,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Load reads and parses the pool document. Local file first, remote URL as
// fallback; errors on one source only log and move on to the next.
func (s *Source) Load(ctx context.Context) (*Document, error) {
	if s.localPath != "" {
		if raw, err := os.ReadFile(s.localPath); err == nil {
			doc, parseErr := ParseDocument(raw)
			if parseErr == nil {
				return doc, nil
			}
			poolLogger.Errorf("error parsing %s: %v", s.localPath, parseErr)
		} else if !os.IsNotExist(err) {
			poolLogger.Errorf("error reading %s: %v", s.localPath, err)
		}
	}

	if s.remoteURL != "" {
		doc, err := s.fetchRemote(ctx)
		if err == nil {
			return doc, nil
		}
		poolLogger.Errorf("error fetching %s: %v", s.remoteURL, err)
	}

	return nil, ErrPoolUnavailable
}

func (s *Source) fetchRemote(ctx context.Context) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.remoteURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return ParseDocument(raw)
}
