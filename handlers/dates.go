// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"net/http"

	"github.com/danielhkuo/screenstudy/auth"
	"github.com/danielhkuo/screenstudy/cliparse"
	"github.com/danielhkuo/screenstudy/db"
	"github.com/danielhkuo/screenstudy/middleware"
	"github.com/danielhkuo/screenstudy/models"
)

type DatesHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewDatesHandler(db *sql.DB, cfg cliparse.Config) *DatesHandler {
	return &DatesHandler{db: db, cfg: cfg}
}

// GetDates handles get-dates (admin or subject-self): the phase dates for
// the subject's assigned test group.
func (h *DatesHandler) GetDates(w http.ResponseWriter, r *http.Request) {
	subjectID := r.URL.Query().Get("subject_id")
	if subjectID == "" {
		middleware.BadRequest(w, models.CodeMissingField, "Missing subject ID.")
		return
	}

	principal, err := auth.Resolve(h.db, h.cfg.AdminToken, middleware.BearerToken(r), subjectID)
	if err != nil {
		middleware.ServerError(w, err)
		return
	}
	if principal == auth.PrincipalNone {
		middleware.Forbidden(w)
		return
	}

	dates, err := db.GetStudyDates(h.db, subjectID)
	if err != nil {
		middleware.ServerError(w, err)
		return
	}
	if dates == nil {
		middleware.DataResponse(w, struct{}{})
		return
	}

	middleware.DataResponse(w, dates)
}

// GetAllDates handles get-all-dates (admin): phase dates for every group.
func (h *DatesHandler) GetAllDates(w http.ResponseWriter, r *http.Request) {
	if !auth.TokenEqual(middleware.BearerToken(r), h.cfg.AdminToken) {
		middleware.Forbidden(w)
		return
	}

	dates, err := db.GetAllStudyDates(h.db)
	if err != nil {
		middleware.ServerError(w, err)
		return
	}

	middleware.DataResponse(w, dates)
}
