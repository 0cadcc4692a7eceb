package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Guilhem-Bonnet/series-notifier/internal/app"
	"github.com/Guilhem-Bonnet/series-notifier/internal/domain"
	"github.com/Guilhem-Bonnet/series-notifier/internal/httpjson"
	"github.com/Guilhem-Bonnet/series-notifier/internal/ports"
	"github.com/go-chi/chi/v5"
)

type SeriesHandler struct {
	svc     *app.NotificationService
	reports ports.ReportRepository
}

func NewSeriesHandler(svc *app.NotificationService, reports ports.ReportRepository) *SeriesHandler {
	return &SeriesHandler{svc: svc, reports: reports}
}

func (h *SeriesHandler) Routes(r chi.Router) {
	r.Get("/digest/{window}", h.digest)
	r.Get("/wanted", h.wanted)
	r.Route("/reconcile", func(r chi.Router) {
		r.Post("/", h.reconcile)
		r.Get("/last", h.lastReport)
	})
}

type digestResponse struct {
	app.Digest
	Text string `json:"text"`
}

func wantsText(r *http.Request) bool {
	return r.URL.Query().Get("format") == "text"
}

func writeText(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}

func (h *SeriesHandler) digest(w http.ResponseWriter, r *http.Request) {
	window, err := domain.ParseWindow(chi.URLParam(r, "window"))
	if err != nil {
		httpjson.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	d, err := h.svc.Digest(r.Context(), window)
	if err != nil {
		httpjson.WriteError(w, http.StatusBadGateway, err.Error())
		return
	}
	if wantsText(r) {
		writeText(w, d.Text())
		return
	}
	httpjson.Write(w, http.StatusOK, digestResponse{Digest: d, Text: d.Text()})
}

func (h *SeriesHandler) wanted(w http.ResponseWriter, r *http.Request) {
	text, err := h.svc.Wanted(r.Context())
	if err != nil {
		httpjson.WriteError(w, http.StatusBadGateway, err.Error())
		return
	}
	if wantsText(r) {
		writeText(w, text)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]string{"text": text})
}

// reconcile: ?rebuild=true vide d'abord le miroir.
func (h *SeriesHandler) reconcile(w http.ResponseWriter, r *http.Request) {
	rebuild, _ := strconv.ParseBool(r.URL.Query().Get("rebuild"))
	var (
		report domain.ReconcileReport
		err    error
	)
	if rebuild {
		report, err = h.svc.Rebuild(r.Context())
	} else {
		report, err = h.svc.Reconcile(r.Context())
	}
	if err != nil {
		if errors.Is(err, app.ErrMirrorNotConfigured) {
			httpjson.WriteError(w, http.StatusConflict, err.Error())
			return
		}
		httpjson.WriteError(w, http.StatusBadGateway, err.Error())
		return
	}
	httpjson.Write(w, http.StatusOK, report)
}

func (h *SeriesHandler) lastReport(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		httpjson.WriteError(w, http.StatusNotFound, "not found")
		return
	}
	report, err := h.reports.Last(r.Context())
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			httpjson.WriteError(w, http.StatusNotFound, "not found")
			return
		}
		httpjson.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httpjson.Write(w, http.StatusOK, report)
}
