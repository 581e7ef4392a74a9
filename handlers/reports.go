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

type ReportHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewReportHandler(db *sql.DB, cfg cliparse.Config) *ReportHandler {
	return &ReportHandler{db: db, cfg: cfg}
}

// SubmitReport handles submit-report (admin or subject-self). Reports are
// append-only: resubmitting an overlapping batch succeeds and the
// duplicates vanish silently.
func (h *ReportHandler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitReportRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.BadRequest(w, models.CodeMissingField, "Invalid JSON body.")
		return
	}

	if req.SubjectID == "" {
		middleware.BadRequest(w, models.CodeMissingField, "Missing subject ID.")
		return
	}
	if req.Period == "" {
		middleware.BadRequest(w, models.CodeMissingField, "Missing report period.")
		return
	}
	if req.Day == "" {
		middleware.BadRequest(w, models.CodeMissingField, "Missing report day.")
		return
	}
	if len(req.Reports) == 0 {
		middleware.BadRequest(w, models.CodeMissingField, "Empty report batch.")
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

	reports := make([]models.Report, len(req.Reports))
	for i, raw := range req.Reports {
		reports[i] = models.Report{
			SubjectID:       req.SubjectID,
			ApplicationName: raw.ApplicationName,
			Period:          req.Period,
			Day:             req.Day,
			Usage:           raw.Usage,
		}
	}

	if err := db.AddReports(h.db, reports); err != nil {
		middleware.ServerError(w, err)
		return
	}

	slog.Info("reports submitted", "subject_id", req.SubjectID, "period", req.Period, "day", req.Day, "count", len(reports))

	middleware.DataResponse(w, struct{}{})
}

// GetAllReports handles get-all-reports (admin).
func (h *ReportHandler) GetAllReports(w http.ResponseWriter, r *http.Request) {
	if !auth.TokenEqual(middleware.BearerToken(r), h.cfg.AdminToken) {
		middleware.Forbidden(w)
		return
	}

	reports, err := db.GetReports(h.db)
	if err != nil {
		middleware.ServerError(w, err)
		return
	}

	middleware.DataResponse(w, reports)
}
