package web

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (h *WebHandler) SetupRoutes() *mux.Router {
	r := mux.NewRouter()

	// Operational endpoints, left open for probes and scrapers
	r.HandleFunc("/healthz", h.Health).Methods("GET")
	r.HandleFunc("/readyz", h.Ready).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/login", h.auth.LoginHandler).Methods("POST")
	api.HandleFunc("/auth/check", h.auth.CheckAuthHandler).Methods("GET")

	// Collection endpoints
	api.HandleFunc("/feeds/ingest", h.mw.AuthMiddleware(h.IngestFeed)).Methods("POST")
	api.HandleFunc("/reports/ingest", h.mw.AuthMiddleware(h.RegisterReport)).Methods("POST")
	api.HandleFunc("/batch/run", h.mw.AuthMiddleware(h.RunBatch)).Methods("POST")

	// Ledger endpoints
	api.HandleFunc("/incidents", h.mw.AuthMiddleware(h.ListIncidents)).Methods("GET")
	api.HandleFunc("/incidents/resolve", h.mw.AuthMiddleware(h.ResolveIncidents)).Methods("POST")

	// Export downloads
	api.HandleFunc("/export/incidents.csv", h.mw.AuthMiddleware(h.ExportLedgerCSV)).Methods("GET")
	api.HandleFunc("/export/mensajes.csv", h.mw.AuthMiddleware(h.ExportDayCSV)).Methods("GET")
	api.HandleFunc("/export/feed.csv", h.mw.AuthMiddleware(h.DownloadFeedCSV)).Methods("GET")
	api.HandleFunc("/export/sicu.csv", h.mw.AuthMiddleware(h.DownloadSICUCSV)).Methods("GET")
	api.HandleFunc("/export/sicu.txt", h.mw.AuthMiddleware(h.DownloadSICUTXT)).Methods("GET")
	api.HandleFunc("/reports/sicu.txt", h.mw.AuthMiddleware(h.DownloadReportTXT)).Methods("GET")

	r.NotFoundHandler = http.HandlerFunc(h.NotFound)

	return r
}

func (h *WebHandler) NotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "not found")
}
