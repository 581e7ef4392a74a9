// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danielhkuo/screenstudy/cliparse"
	"github.com/danielhkuo/screenstudy/handlers"
	"github.com/danielhkuo/screenstudy/middleware"
)

// NewRouter builds the endpoint-name dispatch table and mounts it at
// /api/{endpoint}. Unknown endpoint names answer 404 with an empty body.
func NewRouter(db *sql.DB, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	subjectHandler := handlers.NewSubjectHandler(db, cfg)
	reportHandler := handlers.NewReportHandler(db, cfg)
	usageHandler := handlers.NewUsageHandler(db, cfg)
	crashHandler := handlers.NewCrashHandler(db, cfg)
	datesHandler := handlers.NewDatesHandler(db, cfg)

	table := map[string]http.HandlerFunc{
		"identify":          middleware.PostOnly(subjectHandler.Identify),
		"add-subject":       middleware.PostOnly(subjectHandler.AddSubject),
		"get-subject":       middleware.GetOnly(subjectHandler.GetSubject),
		"get-all-subjects":  middleware.GetOnly(subjectHandler.GetAllSubjects),
		"get-test-params":   middleware.GetOnly(subjectHandler.GetTestParams),
		"get-test-group":    middleware.GetOnly(subjectHandler.GetTestGroup),
		"set-test-params":   middleware.PostOnly(subjectHandler.SetTestParams),
		"submit-report":     middleware.PostOnly(reportHandler.SubmitReport),
		"get-all-reports":   middleware.GetOnly(reportHandler.GetAllReports),
		"submit-usage":      middleware.PostOnly(usageHandler.SubmitUsage),
		"get-all-usage":     middleware.GetOnly(usageHandler.GetAllUsage),
		"get-usage-summary": middleware.GetOnly(usageHandler.GetUsageSummary),
		"acra":              middleware.PostOnly(crashHandler.Submit),
		"get-dates":         middleware.GetOnly(datesHandler.GetDates),
		"get-all-dates":     middleware.GetOnly(datesHandler.GetAllDates),
	}

	// No method pattern here: the guard inside each entry owns method
	// handling, including OPTIONS preflight.
	mux.HandleFunc("/api/{endpoint}", func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("endpoint")
		endpoint, ok := table[name]
		if !ok {
			middleware.NotFound(w)
			return
		}
		middleware.WithLogging(middleware.WithMetrics(name, endpoint))(w, r)
	})

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus scrape target
	mux.Handle("GET /metrics", promhttp.Handler())

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("screenstudy API v1"))
	})

	return mux
}
