package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/xtruelegend/keymint/lib/allocation"
	"github.com/xtruelegend/keymint/lib/config"
	"github.com/xtruelegend/keymint/lib/feedback"
	"github.com/xtruelegend/keymint/lib/kv"
	"github.com/xtruelegend/keymint/lib/ledger"
	"github.com/xtruelegend/keymint/lib/lifecycle"
	"github.com/xtruelegend/keymint/lib/logging"
	"github.com/xtruelegend/keymint/lib/notify"
	"github.com/xtruelegend/keymint/lib/pricing"
)

var apiLogger = logging.GetLogger("api")

// Server is the HTTP surface of the storefront: the public checkout api and
// the token-protected operator api.
type Server struct {
	cfg *config.Config

	store     kv.IKVStore
	purchases *allocation.Service
	lifecycle *lifecycle.Manager
	verify    *lifecycle.Verifier
	pricing   *pricing.Engine
	ledger    *ledger.Ledger
	feedback  *feedback.Store
	notifier  notify.INotifier
	verifier  IOperatorVerifier
}

// NewServer wires the HTTP surface. All dependencies are required except the
// verifier, which defaults to an HMAC verifier over the configured operator
// secret.
func NewServer(
	cfg *config.Config,
	store kv.IKVStore,
	purchases *allocation.Service,
	lcm *lifecycle.Manager,
	verify *lifecycle.Verifier,
	engine *pricing.Engine,
	l *ledger.Ledger,
	fb *feedback.Store,
	notifier notify.INotifier,
) *Server {
	return &Server{
		cfg:       cfg,
		store:     store,
		purchases: purchases,
		lifecycle: lcm,
		verify:    verify,
		pricing:   engine,
		ledger:    l,
		feedback:  fb,
		notifier:  notifier,
		verifier:  NewHMACVerifier(cfg.OperatorSecret),
	}
}

// Router builds the chi router with all public and operator routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/config", s.handleConfig)
		r.Get("/pricing", s.handlePricing)

		r.Post("/orders", s.handleCreateOrder)
		r.Post("/orders/{orderID}/capture", s.handleCaptureOrder)

		r.Post("/lookup-purchases", s.handleLookupPurchases)
		r.Post("/resend-key", s.handleResendKey)
		r.Post("/verify-key", s.handleVerifyKey)

		r.Get("/reviews", s.handleListReviews)
		r.Post("/reviews", s.handleSubmitReview)
		r.Post("/report-issue", s.handleReportIssue)

		r.Post("/admin-login", s.handleOperatorLogin)

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireOperator)

			r.Post("/send-key", s.handleSendKey)
			r.Get("/active-keys", s.handleActiveKeys)
			r.Post("/send-key-report", s.handleSendKeyReport)
			r.Post("/deactivate-key", s.handleDeactivateKey)
			r.Post("/rotate-keys", s.handleRotateKeys)

			r.Get("/reviews", s.handleAllReviews)
			r.Post("/reviews/{reviewID}/approve", s.handleApproveReview)
			r.Post("/reviews/{reviewID}/reject", s.handleRejectReview)
			r.Put("/reviews/{reviewID}", s.handleUpdateReview)
			r.Delete("/reviews/{reviewID}", s.handleDeleteReview)
			r.Get("/issues", s.handleListIssues)
			r.Post("/issues/{issueID}/resolve", s.handleResolveIssue)
		})
	})

	// provider-hosted checkout sends the buyer back here after approval
	r.Get("/return", s.handlePaymentReturn)

	r.Get("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	return r
}

// ListenAndServe runs the HTTP server until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Endpoint,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		apiLogger.Infof("listening on %s", s.cfg.Endpoint)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		apiLogger.Infof("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// --------------------------------------------------------------------------
// Response helpers
// --------------------------------------------------------------------------

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		apiLogger.Errorf("writing response failed: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// decodeBody parses a JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}

// --------------------------------------------------------------------------
// Middleware (logging)
// --------------------------------------------------------------------------

// requestLogger logs method, path, status and duration of every request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		apiLogger.Debugf("%s %s -> %d (%s)",
			r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}
