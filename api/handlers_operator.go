package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/xtruelegend/keymint/lib/feedback"
	"github.com/xtruelegend/keymint/lib/ledger"
	"github.com/xtruelegend/keymint/lib/lifecycle"
	"github.com/xtruelegend/keymint/lib/notify"
)

// --------------------------------------------------------------------------
// Key management
// --------------------------------------------------------------------------

// handleSendKey issues a complimentary key to an address outside any payment
// flow.
func (s *Server) handleSendKey(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email   string `json:"email"`
		OrderID string `json:"orderId"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if ledger.NormalizeEmail(body.Email) == "" {
		respondError(w, http.StatusBadRequest, "email is required")
		return
	}

	res, err := s.purchases.Issue(r.Context(), body.Email, body.OrderID)
	if err != nil {
		apiLogger.Errorf("manual key issue for %s failed: %v", body.Email, err)
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status":     string(res.Outcome),
		"email":      res.Email,
		"licenseKey": res.LicenseKey,
		"orderId":    res.OrderID,
	})
}

// handleActiveKeys lists every purchase record together with the revoked
// keys, the operator's full view of the key population.
func (s *Server) handleActiveKeys(w http.ResponseWriter, r *http.Request) {
	all, err := s.ledger.All(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "purchase records unavailable")
		return
	}
	deactivated, err := s.lifecycle.Deactivated(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "revocation list unavailable")
		return
	}

	records := flattenRecords(all)
	if deactivated == nil {
		deactivated = []string{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"purchases":   records,
		"deactivated": deactivated,
	})
}

func (s *Server) handleSendKeyReport(w http.ResponseWriter, r *http.Request) {
	if s.cfg.AdminReportEmail == "" {
		respondError(w, http.StatusBadRequest, "no report address configured")
		return
	}

	all, err := s.ledger.All(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "purchase records unavailable")
		return
	}

	records := flattenRecords(all)
	lines := make([]string, 0, len(records))
	for _, rec := range records {
		lines = append(lines, fmt.Sprintf("%s  %s  (order %s, %s)",
			rec.LicenseKey, rec.Email, rec.OrderID, rec.CreatedAt.Format("2006-01-02")))
	}

	if _, err := s.notifier.Send(r.Context(), notify.KeyReport(s.cfg.AdminReportEmail, lines)); err != nil {
		apiLogger.Errorf("key report mail failed: %v", err)
		respondError(w, http.StatusBadGateway, "report mail failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "sent",
		"keys":   len(lines),
	})
}

// handleDeactivateKey revokes a key and issues its owner a replacement.
func (s *Server) handleDeactivateKey(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Key   string `json:"key"`
		Email string `json:"email"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Key == "" {
		respondError(w, http.StatusBadRequest, "key is required")
		return
	}

	repl, err := s.lifecycle.Reissue(r.Context(), body.Key, body.Email)
	if err != nil {
		if errors.Is(err, lifecycle.ErrNoPurchaseRecord) {
			respondError(w, http.StatusNotFound,
				"key belongs to no purchase, supply an email to attach a replacement to")
			return
		}
		apiLogger.Errorf("reissue of %s failed: %v", body.Key, err)
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, repl)
}

func (s *Server) handleRotateKeys(w http.ResponseWriter, r *http.Request) {
	// body is optional; sendEmails defaults to off
	var body struct {
		SendEmails bool `json:"sendEmails"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	defer r.Body.Close()

	rot, err := s.lifecycle.RotateAll(r.Context())
	if err != nil {
		apiLogger.Errorf("rotation failed: %v", err)
		respondError(w, http.StatusConflict, err.Error())
		return
	}

	if body.SendEmails && rot.Rotated > 0 {
		s.mailRotatedKeys(r.Context())
	}
	respondJSON(w, http.StatusOK, rot)
}

// mailRotatedKeys mails every owner their post-rotation key. Best effort,
// failures are logged per owner.
func (s *Server) mailRotatedKeys(ctx context.Context) {
	all, err := s.ledger.All(ctx)
	if err != nil {
		apiLogger.Errorf("cannot mail rotated keys, ledger unavailable: %v", err)
		return
	}
	for email, records := range all {
		for _, rec := range records {
			msg := notify.KeyReplacement(email, rec.Product, rec.LicenseKey)
			if _, err := s.notifier.Send(ctx, msg); err != nil {
				apiLogger.Errorf("rotation mail to %s failed: %v", email, err)
			}
		}
	}
}

// --------------------------------------------------------------------------
// Review moderation and issues
// --------------------------------------------------------------------------

func (s *Server) handleAllReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := s.feedback.AllReviews(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "reviews unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"reviews": reviews})
}

func (s *Server) handleApproveReview(w http.ResponseWriter, r *http.Request) {
	s.moderateReview(w, r, true)
}

func (s *Server) handleRejectReview(w http.ResponseWriter, r *http.Request) {
	s.moderateReview(w, r, false)
}

func (s *Server) moderateReview(w http.ResponseWriter, r *http.Request, approve bool) {
	review, err := s.feedback.SetReviewApproval(r.Context(), chi.URLParam(r, "reviewID"), approve)
	if err != nil {
		if errors.Is(err, feedback.ErrNotFound) {
			respondError(w, http.StatusNotFound, "review not found")
			return
		}
		respondError(w, http.StatusServiceUnavailable, "could not update review")
		return
	}
	respondJSON(w, http.StatusOK, review)
}

func (s *Server) handleUpdateReview(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name   string `json:"name"`
		Rating int    `json:"rating"`
		Text   string `json:"text"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	review, err := s.feedback.UpdateReview(r.Context(), chi.URLParam(r, "reviewID"),
		body.Name, body.Rating, body.Text)
	if err != nil {
		if errors.Is(err, feedback.ErrNotFound) {
			respondError(w, http.StatusNotFound, "review not found")
			return
		}
		respondError(w, http.StatusServiceUnavailable, "could not update review")
		return
	}
	respondJSON(w, http.StatusOK, review)
}

func (s *Server) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	if err := s.feedback.DeleteReview(r.Context(), chi.URLParam(r, "reviewID")); err != nil {
		if errors.Is(err, feedback.ErrNotFound) {
			respondError(w, http.StatusNotFound, "review not found")
			return
		}
		respondError(w, http.StatusServiceUnavailable, "could not delete review")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleListIssues(w http.ResponseWriter, r *http.Request) {
	issues, err := s.feedback.Issues(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "issues unavailable")
		return
	}
	if issues == nil {
		issues = []feedback.Issue{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"issues": issues})
}

func (s *Server) handleResolveIssue(w http.ResponseWriter, r *http.Request) {
	if err := s.feedback.ResolveIssue(r.Context(), chi.URLParam(r, "issueID")); err != nil {
		if errors.Is(err, feedback.ErrNotFound) {
			respondError(w, http.StatusNotFound, "issue not found")
			return
		}
		respondError(w, http.StatusServiceUnavailable, "could not resolve issue")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}

// flattenRecords turns the per-email map into a single list ordered by
// purchase date, oldest first.
func flattenRecords(all map[string][]ledger.Record) []ledger.Record {
	records := make([]ledger.Record, 0, len(all))
	for _, list := range all {
		records = append(records, list...)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records
}
