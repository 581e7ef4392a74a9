// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/screenstudy/auth"
	"github.com/danielhkuo/screenstudy/cliparse"
	"github.com/danielhkuo/screenstudy/db"
	"github.com/danielhkuo/screenstudy/middleware"
	"github.com/danielhkuo/screenstudy/models"
)

type UsageHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewUsageHandler(db *sql.DB, cfg cliparse.Config) *UsageHandler {
	return &UsageHandler{db: db, cfg: cfg}
}

// SubmitUsage handles submit-usage (admin or subject-self). The body maps
// date strings to seconds; entries are batch-inserted with the same
// first-write-wins policy as reports.
func (h *UsageHandler) SubmitUsage(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitUsageRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.BadRequest(w, models.CodeMissingField, "Invalid JSON body.")
		return
	}

	if req.SubjectID == "" {
		middleware.BadRequest(w, models.CodeMissingField, "Missing subject ID.")
		return
	}
	if len(req.Usage) == 0 {
		middleware.BadRequest(w, models.CodeMissingField, "Missing usage map.")
		return
	}

	principal, err := auth.Resolve(h.db, h.cfg.AdminToken, middleware.BearerToken(r), req.SubjectID)
	if err != nil {
		middleware.ServerError(w, err)
		return
	}
	if principal == auth.PrincipalNone {
		middleware.Forbidden(w)
		return
	}

	entries := make([]models.UsageEntry, 0, len(req.Usage))
	for date, seconds := range req.Usage {
		entries = append(entries, models.UsageEntry{
			SubjectID:    req.SubjectID,
			DateReported: date,
			UsageSeconds: seconds,
		})
	}

	if err := db.AddUsage(h.db, entries); err != nil {
		middleware.ServerError(w, err)
		return
	}

	slog.Info("usage submitted", "subject_id", req.SubjectID, "days", len(entries))

	middleware.DataResponse(w, struct{}{})
}

// GetAllUsage handles get-all-usage (admin). Optional subject_id, from,
// and to query filters.
func (h *UsageHandler) GetAllUsage(w http.ResponseWriter, r *http.Request) {
	if !auth.TokenEqual(middleware.BearerToken(r), h.cfg.AdminToken) {
		middleware.Forbidden(w)
		return
	}

	q := r.URL.Query()
	entries, err := db.GetUsage(h.db, q.Get("subject_id"), q.Get("from"), q.Get("to"))
	if err != nil {
		middleware.ServerError(w, err)
		return
	}

	middleware.DataResponse(w, entries)
}

// GetUsageSummary handles get-usage-summary (admin): per-subject day
// counts and second totals.
func (h *UsageHandler) GetUsageSummary(w http.ResponseWriter, r *http.Request) {
	if !auth.TokenEqual(middleware.BearerToken(r), h.cfg.AdminToken) {
		middleware.Forbidden(w)
		return
	}

	summaries, err := db.GetUsageSummary(h.db)
	if err != nil {
		middleware.ServerError(w, err)
		return
	}

	middleware.DataResponse(w, summaries)
}
