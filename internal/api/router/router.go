// Package router assembles the HTTP surface: public voice webhooks, liveness
// and metrics, and the JWT-protected operator endpoints.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/scratchieapp/booking-agent/internal/booking"
	httpmiddleware "github.com/scratchieapp/booking-agent/internal/http/middleware"
	"github.com/scratchieapp/booking-agent/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	BookingHandler     *booking.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	AdminAuthSecret    string
}

// New creates the chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public: the voice platform calls these mid-call, so them and only them
	// carry the always-200 contract.
	r.Group(func(public chi.Router) {
		public.Get("/health", cfg.BookingHandler.HealthCheck)
		public.Route("/webhooks/voice", func(r chi.Router) {
			r.Post("/submit-times", cfg.BookingHandler.HandleSubmitTimes)
			r.Post("/patient-confirm", cfg.BookingHandler.HandlePatientConfirm)
			r.Post("/patient-reschedule", cfg.BookingHandler.HandlePatientReschedule)
			r.Post("/confirm-final", cfg.BookingHandler.HandleConfirmFinal)
			r.Post("/booking-failed", cfg.BookingHandler.HandleBookingFailed)
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Operator reads; real status codes behind admin JWT auth.
	r.Route("/admin", func(admin chi.Router) {
		admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
		admin.Get("/workflows/{workflowID}", cfg.BookingHandler.HandleGetWorkflow)
	})

	return r
}
