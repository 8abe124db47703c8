package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/zohosync-backend/api/controllers"
	"github.com/angelmondragon/zohosync-backend/api/middleware"
	"github.com/angelmondragon/zohosync-backend/pkg/config"
	"github.com/angelmondragon/zohosync-backend/pkg/logger"
	"github.com/angelmondragon/zohosync-backend/pkg/metrics"
)

// RouterParams wires the HTTP surface.
type RouterParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	Sync     controllers.SyncRunner
	Logs     controllers.SyncLogLister
	Ready    map[string]controllers.Pinger
	Gatherer prometheus.Gatherer
	// HTTPMetrics is optional; nil disables request metrics.
	HTTPMetrics *metrics.HTTPMetrics
}

func NewRouter(p RouterParams) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, p.HTTPMetrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Ready))
	})
	r.Get("/ping", controllers.PublicPing(cfg))

	if p.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/sync", func(r chi.Router) {
		r.Post("/full", controllers.SyncFull(p.Sync, logg))
		r.Get("/status", controllers.SyncStatus(p.Sync, cfg.Cron.StaleAfter(), logg))
		r.Get("/logs/{entity}", controllers.SyncLogs(p.Logs, logg))
		r.Post("/{entity}", controllers.SyncOne(p.Sync, logg))
	})

	return r
}
