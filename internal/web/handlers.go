// Package web exposes the JSON API over the collection pipeline and
// the incident ledger.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"opsintel/db"
	"opsintel/internal/auth"
	"opsintel/internal/config"
	"opsintel/internal/export"
	"opsintel/internal/observability"
	"opsintel/internal/pipeline"
	"opsintel/middleware"
)

type WebHandler struct {
	cfg       *config.Config
	pipeline  *pipeline.Pipeline
	incidents db.IncidentRepository
	auth      *auth.AuthHandlers
	mw        *middleware.Middleware
	readiness *observability.Readiness
	logger    *zerolog.Logger
}

func NewWebHandler(
	cfg *config.Config,
	pipe *pipeline.Pipeline,
	incidents db.IncidentRepository,
	readiness *observability.Readiness,
	logger *zerolog.Logger,
) *WebHandler {
	if readiness == nil {
		readiness = &observability.Readiness{}
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &WebHandler{
		cfg:       cfg,
		pipeline:  pipe,
		incidents: incidents,
		auth:      auth.NewAuthHandlers(cfg),
		mw:        middleware.NewMiddleware(cfg),
		readiness: readiness,
		logger:    logger,
	}
}

type textRequest struct {
	Pais string `json:"pais"`
	Text string `json:"text"`
}

func (h *WebHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *WebHandler) Ready(w http.ResponseWriter, _ *http.Request) {
	if !h.readiness.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// IngestFeed appends a raw text block to the country's day archive and
// rebuilds that day.
func (h *WebHandler) IngestFeed(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	summary, err := h.pipeline.IngestText(r.Context(), req.Pais, req.Text)
	if err != nil {
		h.writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// RegisterReport registers a pre-categorized report into the ledger
// without touching the archive.
func (h *WebHandler) RegisterReport(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	inserted, err := h.pipeline.RegisterReport(r.Context(), req.Pais, req.Text)
	if err != nil {
		h.writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"inserted": inserted})
}

// RunBatch triggers one collection batch. The body is optional.
func (h *WebHandler) RunBatch(w http.ResponseWriter, r *http.Request) {
	var req pipeline.BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.pipeline.Run(r.Context(), req)
	if err != nil {
		h.writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *WebHandler) ListIncidents(w http.ResponseWriter, r *http.Request) {
	filter, err := parseIncidentFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	incidents, err := h.incidents.FindAll(r.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("incident query failed")
		writeError(w, http.StatusInternalServerError, "failed to query incidents")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(incidents),
		"incidents": incidents,
	})
}

// ResolveIncidents re-runs coordinate resolution over ledger rows that
// still lack them.
func (h *WebHandler) ResolveIncidents(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resolved, err := h.pipeline.ResolvePending(r.Context(), req.Pais)
	if err != nil {
		h.writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"resolved": resolved})
}

// ExportLedgerCSV streams the filtered ledger as the 15-column incident
// CSV.
func (h *WebHandler) ExportLedgerCSV(w http.ResponseWriter, r *http.Request) {
	filter, err := parseIncidentFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	incidents, err := h.incidents.FindAll(r.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("incident query failed")
		writeError(w, http.StatusInternalServerError, "failed to query incidents")
		return
	}

	records := export.RecordsFromLedger(incidents)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="incidentes.csv"`)
	if err := export.WriteIncidentsCSV(w, records); err != nil {
		h.logger.Error().Err(err).Msg("csv export failed")
	}
}

// ExportDayCSV rebuilds the broad per-message dump for one archived day
// and returns it as a download.
func (h *WebHandler) ExportDayCSV(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	path, _, err := h.pipeline.ExportDayRecords(r.Context(), q.Get("pais"), q.Get("fecha"))
	if err != nil {
		h.writePipelineError(w, err)
		return
	}
	h.serveFile(w, r, path)
}

func (h *WebHandler) DownloadFeedCSV(w http.ResponseWriter, r *http.Request) {
	h.serveArtifact(w, r, pipeline.ArtifactFeedCSV)
}

func (h *WebHandler) DownloadSICUCSV(w http.ResponseWriter, r *http.Request) {
	h.serveArtifact(w, r, pipeline.ArtifactSICUCSV)
}

func (h *WebHandler) DownloadSICUTXT(w http.ResponseWriter, r *http.Request) {
	h.serveArtifact(w, r, pipeline.ArtifactSICUTXT)
}

func (h *WebHandler) DownloadReportTXT(w http.ResponseWriter, r *http.Request) {
	h.serveArtifact(w, r, pipeline.ArtifactReport)
}

func (h *WebHandler) serveArtifact(w http.ResponseWriter, r *http.Request, kind string) {
	q := r.URL.Query()
	path, err := h.pipeline.ArtifactPath(kind, q.Get("pais"), q.Get("fecha"))
	if err != nil {
		h.writePipelineError(w, err)
		return
	}
	h.serveFile(w, r, path)
}

func (h *WebHandler) serveFile(w http.ResponseWriter, r *http.Request, path string) {
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "artifact not built yet")
		return
	}
	if strings.HasSuffix(path, ".csv") {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}

func (h *WebHandler) writePipelineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pipeline.ErrBadDay), errors.Is(err, pipeline.ErrEmptyFeed):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, pipeline.ErrNoArchive):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func parseIncidentFilter(q url.Values) (db.IncidentFilter, error) {
	filter := db.IncidentFilter{
		Pais:      strings.TrimSpace(q.Get("pais")),
		Categoria: strings.TrimSpace(q.Get("categoria")),
	}
	if v := strings.TrimSpace(q.Get("desde")); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filter, fmt.Errorf("invalid desde %q", v)
		}
		filter.Since = &t
	}
	if v := strings.TrimSpace(q.Get("hasta")); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filter, fmt.Errorf("invalid hasta %q", v)
		}
		end := t.Add(24 * time.Hour)
		filter.Until = &end
	}
	if q.Get("pendientes") == "true" {
		filter.Pending = true
	}
	if q.Get("con_coords") == "true" {
		filter.GeocodedOnly = true
	}
	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, fmt.Errorf("invalid limit %q", v)
		}
		filter.Limit = n
	}
	return filter, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
