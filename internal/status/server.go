// Package status serves a small health/status HTTP endpoint for operating
// the bridge. It is optional; the relay runs fine without it.
package status

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/voximity/omegga-discord-lite/internal/dependencies/clock"
	"github.com/voximity/omegga-discord-lite/internal/services/verify"
)

// Handler reports bridge health.
type Handler struct {
	logger  *slog.Logger
	clock   clock.Clock
	verify  *verify.Service
	started time.Time
}

// Report is the /status response body.
type Report struct {
	UptimeSeconds        int64 `json:"uptime_seconds"`
	PendingVerifications int   `json:"pending_verifications"`
}

// NewHandler creates a status handler.
func NewHandler(logger *slog.Logger, clk clock.Clock, v *verify.Service) *Handler {
	return &Handler{
		logger:  logger,
		clock:   clk,
		verify:  v,
		started: clk.Now(),
	}
}

// Router builds the HTTP routes.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	r.HandleFunc("/status", h.status).Methods(http.MethodGet)
	return r
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) status(w http.ResponseWriter, _ *http.Request) {
	report := Report{
		UptimeSeconds:        int64(h.clock.Now().Sub(h.started) / time.Second),
		PendingVerifications: h.verify.PendingCount(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(report); err != nil {
		h.logger.Error("writing status response", slog.String("error", err.Error()))
	}
}

// Serve listens on addr until the server fails. Intended to run on its own
// goroutine; errors are logged, not fatal to the relay.
func (h *Handler) Serve(addr string) {
	server := &http.Server{
		Addr:              addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		h.logger.Error("status server failed", slog.String("error", err.Error()))
	}
}
