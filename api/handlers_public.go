package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/xtruelegend/keymint/lib/allocation"
	"github.com/xtruelegend/keymint/lib/ledger"
)

// --------------------------------------------------------------------------
// Info endpoints
// --------------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"backend": s.store.Name(),
	})
}

// handleConfig serves the public checkout configuration consumed by the
// storefront page. No secrets, the PayPal client id is public by design of
// the provider's browser SDK.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"price":          s.pricing.CurrentPrice(),
		"tier":           s.pricing.CurrentTierLabel(),
		"currency":       s.cfg.Currency,
		"paypalClientId": s.cfg.PayPalClientID,
		"paypalEnv":      s.cfg.PayPalEnv,
	})
}

func (s *Server) handlePricing(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.pricing.Snapshot())
}

// --------------------------------------------------------------------------
// Purchase flow
// --------------------------------------------------------------------------

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.purchases.CreateOrder(r.Context())
	if err != nil {
		apiLogger.Errorf("create order failed: %v", err)
		respondError(w, http.StatusBadGateway, "could not create payment order")
		return
	}
	respondJSON(w, http.StatusCreated, order)
}

func (s *Server) handleCaptureOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var body struct {
		Email string `json:"email"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	res, err := s.purchases.HandleCapture(r.Context(), orderID, body.Email)
	if err != nil {
		apiLogger.Errorf("capture of order %s failed: %v", orderID, err)
		respondError(w, http.StatusBadGateway, "payment capture failed")
		return
	}

	switch res.Outcome {
	case allocation.OutcomeFailedNoKey:
		respondJSON(w, http.StatusConflict, map[string]string{
			"status": string(res.Outcome),
			"error":  "payment received but no license key is available, support will contact you",
		})
	case allocation.OutcomeFailedPersist:
		respondJSON(w, http.StatusOK, map[string]string{
			"status":     string(res.Outcome),
			"licenseKey": res.LicenseKey,
			"warning":    "key issued but the purchase record could not be saved yet",
		})
	default:
		respondJSON(w, http.StatusOK, map[string]string{
			"status":     string(res.Outcome),
			"licenseKey": res.LicenseKey,
			"orderId":    res.OrderID,
		})
	}
}

// --------------------------------------------------------------------------
// Self service
// --------------------------------------------------------------------------

func (s *Server) handleLookupPurchases(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	email := ledger.NormalizeEmail(body.Email)
	if email == "" {
		respondError(w, http.StatusBadRequest, "email is required")
		return
	}

	records, err := s.ledger.ListFor(r.Context(), email)
	if err != nil {
		apiLogger.Errorf("purchase lookup for %s failed: %v", email, err)
		respondError(w, http.StatusServiceUnavailable, "purchase records unavailable")
		return
	}
	if records == nil {
		records = []ledger.Record{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"purchases": records})
}

func (s *Server) handleResendKey(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if ledger.NormalizeEmail(body.Email) == "" {
		respondError(w, http.StatusBadRequest, "email is required")
		return
	}

	// the response never reveals whether the address has purchases
	if _, err := s.purchases.Resend(r.Context(), body.Email); err != nil {
		apiLogger.Warnf("resend for %s: %v", body.Email, err)
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "if purchases exist for this address, the key has been mailed",
	})
}

func (s *Server) handleVerifyKey(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Key string `json:"key"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	verdict, err := s.verify.Verify(r.Context(), body.Key)
	if err != nil {
		apiLogger.Errorf("key verification failed: %v", err)
		respondError(w, http.StatusServiceUnavailable, "verification unavailable")
		return
	}
	respondJSON(w, http.StatusOK, verdict)
}

// --------------------------------------------------------------------------
// Feedback
// --------------------------------------------------------------------------

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := s.feedback.ApprovedReviews(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "reviews unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"reviews": reviews})
}

func (s *Server) handleSubmitReview(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name   string `json:"name"`
		Rating int    `json:"rating"`
		Text   string `json:"text"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	review, err := s.feedback.SubmitReview(r.Context(), body.Name, body.Rating, body.Text)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "could not store review")
		return
	}
	respondJSON(w, http.StatusCreated, review)
}

func (s *Server) handleReportIssue(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email   string `json:"email"`
		Message string `json:"message"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Message) == "" {
		respondError(w, http.StatusBadRequest, "message is required")
		return
	}

	issue, err := s.feedback.ReportIssue(r.Context(), body.Email, body.Message)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "could not store issue report")
		return
	}
	respondJSON(w, http.StatusCreated, issue)
}

// handlePaymentReturn completes a provider-hosted checkout. The buyer lands
// here via redirect rather than an XHR, so the outcome travels back to the
// storefront as query parameters instead of a JSON body. The buyer email is
// taken from the capture itself.
func (s *Server) handlePaymentReturn(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("token")
	if orderID == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	res, err := s.purchases.HandleCapture(r.Context(), orderID, "")
	if err != nil {
		apiLogger.Errorf("return capture of order %s failed: %v", orderID, err)
		http.Redirect(w, r, "/?order="+url.QueryEscape(orderID)+"&status=FAILED", http.StatusFound)
		return
	}

	target := "/?order=" + url.QueryEscape(orderID) + "&status=" + url.QueryEscape(string(res.Outcome))
	http.Redirect(w, r, target, http.StatusFound)
}
