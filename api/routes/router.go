package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/gigbridge-backend/api/controllers"
	"github.com/angelmondragon/gigbridge-backend/api/middleware"
	"github.com/angelmondragon/gigbridge-backend/internal/discussions"
	"github.com/angelmondragon/gigbridge-backend/internal/engagements"
	"github.com/angelmondragon/gigbridge-backend/internal/notifications"
	"github.com/angelmondragon/gigbridge-backend/internal/uploads"
	"github.com/angelmondragon/gigbridge-backend/pkg/config"
	"github.com/angelmondragon/gigbridge-backend/pkg/enums"
	"github.com/angelmondragon/gigbridge-backend/pkg/logger"
	"github.com/angelmondragon/gigbridge-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/gigbridge-backend/pkg/redis"
)

// RouterParams carries everything the HTTP surface needs.
type RouterParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            controllers.Pinger
	Redis         controllers.Pinger
	ObjectStore   controllers.Pinger
	Tokens        middleware.TokenVerifier
	Idempotency   pkgredis.IdempotencyStore
	Gatherer      prometheus.Gatherer
	HTTPMetrics   *metrics.HTTPMetrics
	Engagements   engagements.Service
	Discussions   discussions.Service
	Uploads       uploads.Service
	Notifications notifications.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, p.HTTPMetrics),
		middleware.CORS(cfg.HTTP.AllowedOrigins),
	)

	ready := map[string]controllers.Pinger{}
	if p.DB != nil {
		ready["database"] = p.DB
	}
	if p.Redis != nil {
		ready["redis"] = p.Redis
	}
	if p.ObjectStore != nil {
		ready["object_storage"] = p.ObjectStore
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, ready))
	})

	gatherer := p.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.HTTP.RequestTimeout > 0 {
			r.Use(chimiddleware.Timeout(cfg.HTTP.RequestTimeout))
		}
		r.Use(middleware.Auth(p.Tokens, logg))
		if p.Idempotency != nil {
			r.Use(middleware.Idempotency(p.Idempotency, logg))
		}

		r.With(middleware.RequireRole(logg, enums.UserRoleFreelancer)).
			Post("/projects/{projectId}/engagements", controllers.ApplyToProject(p.Engagements, logg))

		r.Route("/engagements", func(r chi.Router) {
			r.Get("/", controllers.ListEngagements(p.Engagements, logg))
			r.Route("/{engagementId}", func(r chi.Router) {
				r.Get("/", controllers.GetEngagement(p.Engagements, logg))
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(logg, enums.UserRoleClient, enums.UserRoleAdmin))
					r.Post("/status", controllers.TransitionEngagementStatus(p.Engagements, logg))
					r.Post("/reject", controllers.RejectEngagement(p.Engagements, logg))
				})
				r.With(middleware.RequireRole(logg, enums.UserRoleFreelancer)).
					Post("/content", controllers.AppendEngagementContent(p.Engagements, logg))
				r.Get("/discussions", controllers.ListDiscussions(p.Discussions, logg))
				r.Post("/discussions", controllers.PostDiscussion(p.Discussions, logg))
			})
		})

		r.Patch("/discussions/{entryId}/attachments", controllers.BackfillDiscussionAttachments(p.Discussions, logg))
		r.Post("/uploads/presign", controllers.PresignUpload(p.Uploads, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(p.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(p.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(p.Notifications, logg))
		})
	})

	return r
}
