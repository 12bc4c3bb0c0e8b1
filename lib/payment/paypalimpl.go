package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/xtruelegend/keymint/lib/logging"
)

var paymentLogger = logging.GetLogger("payment")

const (
	sandboxBase = "https://api-m.sandbox.paypal.com"
	liveBase    = "https://api-m.paypal.com"

	// tokens are refreshed this long before their reported expiry
	tokenSlack = 60 * time.Second
)

type paypalProviderImpl struct {
	base         string
	clientID     string
	clientSecret string
	client       *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewPayPalProvider creates a capture provider against the PayPal orders v2
// api. env selects the endpoint: "live" targets production, anything else
// the sandbox.
func NewPayPalProvider(clientID, clientSecret, env string) ICaptureProvider {
	base := sandboxBase
	if strings.EqualFold(env, "live") || strings.EqualFold(env, "production") {
		base = liveBase
	}
	return &paypalProviderImpl{
		base:         base,
		clientID:     clientID,
		clientSecret: clientSecret,
		client:       &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *paypalProviderImpl) Name() string {
	return fmt.Sprintf("paypal(%s)", p.base)
}

// token returns a cached OAuth access token, fetching a fresh one via the
// client-credentials grant when the cached one is missing or near expiry.
// The mutex is held across the fetch so concurrent callers share one attempt.
func (p *paypalProviderImpl) token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.accessToken != "" && time.Now().Before(p.tokenExpiry) {
		return p.accessToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.base+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(p.clientID, p.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request oauth token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("oauth token request failed with %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode oauth token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("oauth token response carried no token")
	}

	p.accessToken = payload.AccessToken
	p.tokenExpiry = time.Now().Add(time.Duration(payload.ExpiresIn)*time.Second - tokenSlack)
	return p.accessToken, nil
}

func (p *paypalProviderImpl) CreateOrder(ctx context.Context, value, currency string) (Order, error) {
	body := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{
			{"amount": map[string]string{
				"currency_code": currency,
				"value":         value,
			}},
		},
	}

	var order Order
	if err := p.call(ctx, "/v2/checkout/orders", body, &order); err != nil {
		return Order{}, fmt.Errorf("create order: %w", err)
	}
	if order.ID == "" {
		return Order{}, fmt.Errorf("create order: response carried no order id")
	}

	paymentLogger.Debugf("created order %s over %s %s", order.ID, value, currency)
	return order, nil
}

func (p *paypalProviderImpl) CaptureOrder(ctx context.Context, orderID string) (Capture, error) {
	if orderID == "" {
		return Capture{}, fmt.Errorf("empty order id")
	}

	var payload struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Payer  struct {
			EmailAddress string `json:"email_address"`
		} `json:"payer"`
	}
	path := "/v2/checkout/orders/" + url.PathEscape(orderID) + "/capture"
	if err := p.call(ctx, path, struct{}{}, &payload); err != nil {
		return Capture{}, fmt.Errorf("capture order %s: %w", orderID, err)
	}

	paymentLogger.Debugf("captured order %s with status %s", orderID, payload.Status)
	return Capture{
		OrderID:    payload.ID,
		Status:     payload.Status,
		PayerEmail: payload.Payer.EmailAddress,
	}, nil
}

// call POSTs a JSON body to the given api path with a bearer token and
// decodes the JSON response into out.
func (p *paypalProviderImpl) call(ctx context.Context, path string, body, out interface{}) error {
	token, err := p.token(ctx)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.base+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("api returned %d: %s", resp.StatusCode, errBody)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
