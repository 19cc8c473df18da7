package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"eventsignup/internal/delivery/http/controllers"
	"eventsignup/internal/delivery/http/helpers"
	"eventsignup/internal/delivery/http/middleware"
)

// RouterConfig carries the controllers and cross-cutting dependencies of the HTTP API.
// Limiter and Metrics are optional; Limiter must be a nil interface when rate limiting is off.
type RouterConfig struct {
	Logger        *slog.Logger
	Auth          middleware.Authenticator
	Limiter       middleware.RateLimiter
	Metrics       Metrics
	CORSOrigins   []string
	Accounts      *controllers.AccountController
	Events        *controllers.EventController
	Registrations *controllers.RegistrationController
	Reports       *controllers.ReportController
	Announcements *controllers.AnnouncementController
	// Ready reports whether the backing stores are reachable. Nil means always ready.
	Ready func(r *http.Request) error
}

// Metrics is the observer behind /metrics and the request logger.
type Metrics interface {
	middleware.HTTPObserver
	Handler() http.Handler
}

// NewRouter initializes the HTTP router with all application routes
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	auth := cfg.Auth.Require
	limit := middleware.RateLimit(cfg.Limiter, cfg.Logger)

	// Auth
	mux.HandleFunc("POST /api/v1/auth/signup", limit(cfg.Accounts.SignUp))
	mux.HandleFunc("POST /api/v1/auth/identity", limit(cfg.Accounts.ExchangeIdentity))

	// Accounts
	mux.HandleFunc("GET /api/v1/me", auth(cfg.Accounts.GetMe))
	mux.HandleFunc("PATCH /api/v1/me", auth(cfg.Accounts.UpdateMe))
	mux.HandleFunc("GET /api/v1/accounts", auth(cfg.Accounts.ListAccounts))
	mux.HandleFunc("DELETE /api/v1/accounts/{id}", auth(cfg.Accounts.DeleteAccount))

	// Events
	mux.HandleFunc("POST /api/v1/events", auth(cfg.Events.CreateEvent))
	mux.HandleFunc("GET /api/v1/events", cfg.Events.ListEvents)
	mux.HandleFunc("GET /api/v1/events/search", cfg.Events.SearchEvents)
	mux.HandleFunc("GET /api/v1/events/stats", auth(cfg.Events.EventStats))
	mux.HandleFunc("GET /api/v1/events/{id}", cfg.Events.GetEventByID)
	mux.HandleFunc("PATCH /api/v1/events/{id}", auth(cfg.Events.UpdateEvent))
	mux.HandleFunc("DELETE /api/v1/events/{id}", auth(cfg.Events.DeleteEvent))
	mux.HandleFunc("GET /api/v1/me/events/stats", auth(cfg.Events.MyEventStats))

	// Registrations
	mux.HandleFunc("POST /api/v1/events/{id}/registrations", auth(limit(cfg.Registrations.Register)))
	mux.HandleFunc("DELETE /api/v1/registrations/{id}", auth(limit(cfg.Registrations.Cancel)))
	mux.HandleFunc("GET /api/v1/registrations/search", auth(cfg.Registrations.SearchRegistrations))
	mux.HandleFunc("GET /api/v1/registrations/stats", auth(cfg.Registrations.RegistrationStats))
	mux.HandleFunc("GET /api/v1/registrations/{id}", auth(cfg.Registrations.GetRegistration))
	mux.HandleFunc("GET /api/v1/me/registrations", auth(cfg.Registrations.ListMyRegistrations))

	// Reports
	mux.HandleFunc("GET /api/v1/events/{id}/registrations", auth(cfg.Reports.ListEventRegistrations))
	mux.HandleFunc("GET /api/v1/events/{id}/registration-info", cfg.Reports.RegistrationInfo)
	mux.HandleFunc("GET /api/v1/events/{id}/registration-stats", auth(cfg.Reports.EventRegistrationStats))
	mux.HandleFunc("GET /api/v1/events/{id}/registrations/export", auth(cfg.Reports.ExportRegistrations))
	mux.HandleFunc("POST /api/v1/events/{id}/registrations/export/email", auth(limit(cfg.Reports.EmailExport)))

	// Announcements
	mux.HandleFunc("POST /api/v1/announcements", auth(cfg.Announcements.CreateAnnouncement))
	mux.HandleFunc("GET /api/v1/announcements", cfg.Announcements.ListAnnouncements)
	mux.HandleFunc("GET /api/v1/announcements/search", cfg.Announcements.SearchAnnouncements)
	mux.HandleFunc("GET /api/v1/announcements/{id}", cfg.Announcements.GetAnnouncement)
	mux.HandleFunc("PATCH /api/v1/announcements/{id}", auth(cfg.Announcements.UpdateAnnouncement))
	mux.HandleFunc("DELETE /api/v1/announcements/{id}", auth(cfg.Announcements.DeleteAnnouncement))

	// Ops
	mux.HandleFunc("GET /healthz", healthz(cfg))
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics.Handler())
	}

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	var observer middleware.HTTPObserver
	if cfg.Metrics != nil {
		observer = cfg.Metrics
	}
	return middleware.LoggingMiddleware(cfg.Logger, observer, middleware.CORS(cfg.CORSOrigins, mux))
}

func healthz(cfg RouterConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Ready != nil {
			if err := cfg.Ready(r); err != nil {
				cfg.Logger.WarnContext(r.Context(), "readiness check failed", "err", err)
				helpers.WriteJSONError(w, http.StatusServiceUnavailable, helpers.ErrCodeInternalError, "unavailable")
				return
			}
		}
		helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
