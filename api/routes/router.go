package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/rgalindo-dev/storely-backend/api/controllers"
	webhookcontrollers "github.com/rgalindo-dev/storely-backend/api/controllers/webhooks"
	"github.com/rgalindo-dev/storely-backend/api/middleware"
	"github.com/rgalindo-dev/storely-backend/internal/events"
	"github.com/rgalindo-dev/storely-backend/pkg/config"
	"github.com/rgalindo-dev/storely-backend/pkg/db"
	"github.com/rgalindo-dev/storely-backend/pkg/logger"
	"github.com/rgalindo-dev/storely-backend/pkg/metrics"
)

// RouterParams carries everything the HTTP edge needs. Redis and PubSub
// pingers are optional; the webhook pipeline is not.
type RouterParams struct {
	Config         *config.Config
	Logger         *logger.Logger
	DBPinger       db.Pinger
	RedisPinger    controllers.Pinger
	PubSubPinger   controllers.Pinger
	GatewayService webhookcontrollers.GatewayEventService
	EventsRepo     events.Repository
	WebhookMetrics *metrics.WebhookMetrics
	MetricsHandler http.Handler
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	checks := map[string]controllers.Pinger{
		"database": params.DBPinger,
		"redis":    params.RedisPinger,
		"pubsub":   params.PubSubPinger,
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, checks))
	})

	if params.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", params.MetricsHandler)
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/gateway", webhookcontrollers.GatewayWebhook(
			params.GatewayService,
			params.EventsRepo,
			cfg.Gateway,
			validator.New(),
			params.WebhookMetrics,
			logg,
		))
	})

	return r
}
