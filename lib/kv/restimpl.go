package kv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// NewRESTStore creates a store backed by a REST key-value service
// (Upstash-style HTTP API with a bearer credential).
//
// baseURL must not end with a slash. The store is stateless; every operation
// is a single HTTP call.
func NewRESTStore(baseURL, token string) IKVStore {
	return &restStoreImpl{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type restStoreImpl struct {
	baseURL string
	token   string
	client  *http.Client
}

// restResult is the response envelope of the REST key-value service.
type restResult struct {
	Result *string `json:"result"`
}

// restKeysResult is the response envelope for key listing.
type restKeysResult struct {
	Result []string `json:"result"`
}

// --------------------------------------------------------------------------
// Interface Methods (docu see kv.IKVStore)
// --------------------------------------------------------------------------

func (s *restStoreImpl) Get(ctx context.Context, key string) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint("get", key), nil)
	if err != nil {
		return "", false, NewError(RetCInternalError, err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", false, NewError(RetCBackendUnavailable, fmt.Sprintf("get %s: %v", key, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false, NewError(RetCBackendUnavailable, fmt.Sprintf("get %s: status %d", key, resp.StatusCode))
	}

	var body restResult
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", false, NewError(RetCInternalError, fmt.Sprintf("get %s: decode: %v", key, err))
	}
	if body.Result == nil {
		return "", false, nil
	}
	return *body.Result, true, nil
}

func (s *restStoreImpl) Set(ctx context.Context, key string, value string) (bool, error) {
	payload, err := json.Marshal(map[string]string{"value": value})
	if err != nil {
		return false, NewError(RetCInternalError, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint("set", key), bytes.NewReader(payload))
	if err != nil {
		return false, NewError(RetCInternalError, err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return false, NewError(RetCBackendUnavailable, fmt.Sprintf("set %s: %v", key, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, NewError(RetCBackendUnavailable, fmt.Sprintf("set %s: status %d", key, resp.StatusCode))
	}
	return true, nil
}

func (s *restStoreImpl) Keys(ctx context.Context, prefix string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint("keys", prefix+"*"), nil)
	if err != nil {
		return nil, NewError(RetCInternalError, err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, NewError(RetCBackendUnavailable, fmt.Sprintf("keys %s: %v", prefix, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, NewError(RetCBackendUnavailable, fmt.Sprintf("keys %s: status %d", prefix, resp.StatusCode))
	}

	var body restKeysResult
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, NewError(RetCInternalError, fmt.Sprintf("keys %s: decode: %v", prefix, err))
	}
	return body.Result, nil
}

func (s *restStoreImpl) Name() string {
	return "rest"
}

// endpoint builds a request URL of the form <base>/<op>/<arg>.
func (s *restStoreImpl) endpoint(op, arg string) string {
	return fmt.Sprintf("%s/%s/%s", s.baseURL, op, url.PathEscape(arg))
}
