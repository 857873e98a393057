package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mvaldezh/whisperlink-backend/api/controllers"
	"github.com/mvaldezh/whisperlink-backend/api/middleware"
	"github.com/mvaldezh/whisperlink-backend/internal/feedback"
	"github.com/mvaldezh/whisperlink-backend/internal/messages"
	"github.com/mvaldezh/whisperlink-backend/internal/notifications"
	"github.com/mvaldezh/whisperlink-backend/internal/realtime"
	"github.com/mvaldezh/whisperlink-backend/pkg/auth/session"
	"github.com/mvaldezh/whisperlink-backend/pkg/config"
	"github.com/mvaldezh/whisperlink-backend/pkg/db"
	"github.com/mvaldezh/whisperlink-backend/pkg/logger"
	"github.com/mvaldezh/whisperlink-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    redis.Pinger
	Sessions session.AccessSessionChecker

	Notifications notifications.Service
	Messages      messages.Service
	Feedback      feedback.Service
	Authorizer    *realtime.Authorizer
	Hub           *realtime.Hub

	Metrics prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Post("/u/{username}/messages", controllers.PublicSendMessage(deps.Messages, logg))
		r.Post("/f/{slug}/feedback", controllers.PublicSubmitFeedback(deps.Feedback, logg))
	})

	// The websocket upgrade authenticates inside the hub via a query token;
	// browsers cannot attach Authorization headers to upgrade requests.
	r.Get("/api/v1/realtime/ws", controllers.RealtimeWS(deps.Hub, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Patch("/", controllers.MarkNotificationsViewed(deps.Notifications, logg))
			r.Delete("/", controllers.DeleteNotifications(deps.Notifications, logg))
			r.Put("/clear", controllers.ClearNotifications(deps.Notifications, logg))
		})

		r.Post("/realtime/auth", controllers.RealtimeAuth(deps.Authorizer, logg))
	})

	return r
}
