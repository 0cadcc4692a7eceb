package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/Guilhem-Bonnet/series-notifier/internal/app"
	"github.com/Guilhem-Bonnet/series-notifier/internal/ports"
)

type Server struct {
	logger  zerolog.Logger
	svc     *app.NotificationService
	reports ports.ReportRepository
	bus     ports.EventBus
}

// NewServer: reports et bus sont optionnels (routes correspondantes en 404/placeholder).
func NewServer(logger zerolog.Logger, svc *app.NotificationService, reports ports.ReportRepository, bus ports.EventBus) *Server {
	return &Server{logger: logger, svc: svc, reports: reports, bus: bus}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(hlog.NewHandler(s.logger))
	r.Use(hlog.RequestIDHandler("request_id", "Request-Id"))
	r.Use(hlog.RemoteAddrHandler("remote_ip"))
	r.Use(hlog.UserAgentHandler("user_agent"))
	r.Use(hlog.AccessHandler(accessLogFn))

	r.Route("/api/v1", func(r chi.Router) {
		// Le flux SSE échappe au timeout global.
		r.Get("/events", s.handleEvents)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(defaultRequestTimeout))
			r.Get("/health", s.handleHealth)
			r.Get("/version", s.handleVersion)
			r.Get("/openapi.json", s.handleOpenAPI)

			if s.svc != nil {
				NewSeriesHandler(s.svc, s.reports).Routes(r)
			}
		})
	})

	return r
}
