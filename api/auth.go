package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"time"
)

// operatorTokenHeader carries the operator credential on protected routes.
const operatorTokenHeader = "X-Operator-Token"

// IOperatorVerifier checks operator credentials on the protected surface.
type IOperatorVerifier interface {
	// Verify reports whether the presented token grants operator access.
	Verify(token string) bool
}

type hmacVerifierImpl struct {
	secret []byte
	now    func() time.Time
}

// NewHMACVerifier creates a verifier for daily rolling operator tokens.
// A token is the hex HMAC-SHA256 of the UTC date under the shared secret;
// yesterday's token is also accepted so a token minted just before midnight
// keeps working. The raw secret itself is accepted too, for interactive use.
func NewHMACVerifier(secret string) IOperatorVerifier {
	return &hmacVerifierImpl{secret: []byte(secret), now: time.Now}
}

func (v *hmacVerifierImpl) Verify(token string) bool {
	if len(v.secret) == 0 || token == "" {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(token), v.secret) == 1 {
		return true
	}

	today := v.now().UTC()
	for _, day := range []time.Time{today, today.AddDate(0, 0, -1)} {
		if subtle.ConstantTimeCompare([]byte(token), []byte(TokenFor(string(v.secret), day))) == 1 {
			return true
		}
	}
	return false
}

// TokenFor computes the operator token valid on the given day.
func TokenFor(secret string, day time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(day.UTC().Format("2006-01-02")))
	return hex.EncodeToString(mac.Sum(nil))
}

// handleOperatorLogin exchanges the operator secret for today's rolling
// token, so the secret itself never has to live in a browser session.
func (s *Server) handleOperatorLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	secret := s.cfg.OperatorSecret
	if secret == "" || subtle.ConstantTimeCompare([]byte(body.Password), []byte(secret)) != 1 {
		apiLogger.Warnf("failed operator login from %s", r.RemoteAddr)
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"token": TokenFor(secret, time.Now()),
	})
}

// requireOperator rejects requests without a valid operator token.
func (s *Server) requireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(operatorTokenHeader)
		if token == "" {
			// support curl-style usage via basic auth password
			if _, pass, ok := r.BasicAuth(); ok {
				token = pass
			}
		}
		if !s.verifier.Verify(token) {
			apiLogger.Warnf("rejected operator request to %s from %s", r.URL.Path, r.RemoteAddr)
			respondError(w, http.StatusUnauthorized, "invalid operator token")
			return
		}
		next.ServeHTTP(w, r)
	})
}
