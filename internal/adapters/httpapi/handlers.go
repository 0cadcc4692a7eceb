package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/Guilhem-Bonnet/series-notifier/internal/buildinfo"
	"github.com/Guilhem-Bonnet/series-notifier/internal/domain"
	"github.com/Guilhem-Bonnet/series-notifier/internal/httpjson"
	"github.com/Guilhem-Bonnet/series-notifier/internal/ports"
	"github.com/rs/zerolog/hlog"
)

// Une passe de réconciliation peut parcourir tout le catalogue distant.
const defaultRequestTimeout = 2 * time.Minute

type healthResponse struct {
	Status      string            `json:"status"`
	Deployment  domain.Deployment `json:"deployment"`
	Reconciling bool              `json:"reconciling"`
	// LastReconcile est absent tant qu'aucune passe n'a abouti.
	LastReconcile *time.Time `json:"lastReconcile,omitempty"`
	LastFailures  int        `json:"lastFailures"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	resp.Deployment, resp.Reconciling = s.svc.Status()
	if s.reports != nil {
		report, err := s.reports.Last(r.Context())
		switch {
		case err == nil:
			resp.LastReconcile = &report.FinishedAt
			resp.LastFailures = report.Failures
		case !errors.Is(err, ports.ErrNotFound):
			hlog.FromRequest(r).Warn().Err(err).Msg("last report unavailable")
		}
	}
	httpjson.Write(w, http.StatusOK, resp)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusOK, buildinfo.Current())
}

func accessLogFn(r *http.Request, status, size int, duration time.Duration) {
	logger := hlog.FromRequest(r)
	logger.Info().
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("http")
}
