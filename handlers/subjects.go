// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/danielhkuo/screenstudy/auth"
	"github.com/danielhkuo/screenstudy/cliparse"
	"github.com/danielhkuo/screenstudy/db"
	"github.com/danielhkuo/screenstudy/identity"
	"github.com/danielhkuo/screenstudy/middleware"
	"github.com/danielhkuo/screenstudy/models"
)

type SubjectHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewSubjectHandler(db *sql.DB, cfg cliparse.Config) *SubjectHandler {
	return &SubjectHandler{db: db, cfg: cfg}
}

// Identify handles the identify endpoint (public). Resolves a subject's
// credential idempotently, creating the subject for unknown emails.
func (h *SubjectHandler) Identify(w http.ResponseWriter, r *http.Request) {
	var req models.IdentifyRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.BadRequest(w, models.CodeMissingField, "Invalid JSON body.")
		return
	}

	if req.SubjectID == "" && req.Email == "" {
		middleware.BadRequest(w, models.CodeMissingField, "Missing subject ID or email.")
		return
	}

	result, err := identity.Identify(h.db, req.SubjectID, req.Email)
	if errors.Is(err, identity.ErrNotFound) {
		middleware.BadRequest(w, models.CodeSubjectNotFound, "Subject with that ID does not exist.")
		return
	}
	if errors.Is(err, identity.ErrInvalidEmail) {
		middleware.BadRequest(w, models.CodeInvalidEmail, "Email address is not valid.")
		return
	}
	if err != nil {
		middleware.ServerError(w, err)
		return
	}

	middleware.DataResponse(w, models.IdentifyResponse{
		AuthToken: result.Secret,
		SubjectID: result.SubjectID,
	})
}

// AddSubject handles add-subject (admin or provisioning token).
func (h *SubjectHandler) AddSubject(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if !auth.TokenEqual(token, h.cfg.AdminToken) &&
		!(h.cfg.ProvisionToken != "" && auth.TokenEqual(token, h.cfg.ProvisionToken)) {
		middleware.Forbidden(w)
		return
	}

	var req models.AddSubjectRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.BadRequest(w, models.CodeMissingField, "Invalid JSON body.")
		return
	}

	if req.Email == "" {
		middleware.BadRequest(w, models.CodeMissingField, "Missing email.")
		return
	}

	subjectID, err := identity.Provision(h.db, req.SubjectID, req.Email)
	if errors.Is(err, identity.ErrInvalidEmail) {
		middleware.BadRequest(w, models.CodeInvalidEmail, "Email address is not valid.")
		return
	}
	if err != nil {
		middleware.ServerError(w, err)
		return
	}

	slog.Info("subject added", "subject_id", subjectID)

	middleware.JSONResponse(w, http.StatusOK, models.AddSubjectResponse{SubjectID: subjectID})
}

// GetSubject handles get-subject (admin or subject-self). Under admin, a
// missing subject is an empty success body, not an error.
func (h *SubjectHandler) GetSubject(w http.ResponseWriter, r *http.Request) {
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

	subject, err := db.GetSubjectByID(h.db, subjectID)
	if err != nil {
		middleware.ServerError(w, err)
		return
	}
	if subject == nil {
		// Subject principals only resolve for existing rows, so this is
		// the admin case.
		middleware.DataResponse(w, struct{}{})
		return
	}

	middleware.DataResponse(w, subject)
}

// GetAllSubjects handles get-all-subjects (admin), with an optional
// group filter.
func (h *SubjectHandler) GetAllSubjects(w http.ResponseWriter, r *http.Request) {
	if !auth.TokenEqual(middleware.BearerToken(r), h.cfg.AdminToken) {
		middleware.Forbidden(w)
		return
	}

	var group *int
	if g := r.URL.Query().Get("group"); g != "" {
		n, err := strconv.Atoi(g)
		if err != nil {
			middleware.BadRequest(w, models.CodeMissingField, "group filter must be an integer.")
			return
		}
		group = &n
	}

	subjects, err := db.GetSubjects(h.db, group)
	if err != nil {
		middleware.ServerError(w, err)
		return
	}

	middleware.DataResponse(w, subjects)
}

// GetTestParams handles get-test-params (admin or subject-self).
func (h *SubjectHandler) GetTestParams(w http.ResponseWriter, r *http.Request) {
	subject, done := h.loadAuthorizedSubject(w, r)
	if done {
		return
	}

	middleware.DataResponse(w, models.TestParamsResponse{
		TestGroup:          subject.TestGroup,
		TreatmentIntensity: subject.TreatmentIntensity,
		TreatmentLimit:     subject.TreatmentLimit,
	})
}

// GetTestGroup handles get-test-group (admin or subject-self). Kept for
// clients that predate the intensity/limit fields.
func (h *SubjectHandler) GetTestGroup(w http.ResponseWriter, r *http.Request) {
	subject, done := h.loadAuthorizedSubject(w, r)
	if done {
		return
	}

	middleware.DataResponse(w, models.TestGroupResponse{TestGroup: subject.TestGroup})
}

// loadAuthorizedSubject resolves the principal for the query's subject_id
// and loads the row. Returns done=true when a response was already written.
func (h *SubjectHandler) loadAuthorizedSubject(w http.ResponseWriter, r *http.Request) (*models.Subject, bool) {
	subjectID := r.URL.Query().Get("subject_id")
	if subjectID == "" {
		middleware.BadRequest(w, models.CodeMissingField, "Missing subject ID.")
		return nil, true
	}

	principal, err := auth.Resolve(h.db, h.cfg.AdminToken, middleware.BearerToken(r), subjectID)
	if err != nil {
		middleware.ServerError(w, err)
		return nil, true
	}
	if principal == auth.PrincipalNone {
		middleware.Forbidden(w)
		return nil, true
	}

	subject, err := db.GetSubjectByID(h.db, subjectID)
	if err != nil {
		middleware.ServerError(w, err)
		return nil, true
	}
	if subject == nil {
		middleware.DataResponse(w, struct{}{})
		return nil, true
	}
	return subject, false
}

// SetTestParams handles set-test-params (admin). The body is an array of
// [subject_id, group, intensity, limit] tuples applied in one batch
// statement; tuples naming unknown subjects are silently ignored.
func (h *SubjectHandler) SetTestParams(w http.ResponseWriter, r *http.Request) {
	if !auth.TokenEqual(middleware.BearerToken(r), h.cfg.AdminToken) {
		middleware.Forbidden(w)
		return
	}

	var updates []models.TestParamsUpdate
	if err := middleware.ParseJSONBody(r, &updates); err != nil {
		middleware.BadRequest(w, models.CodeMissingField, "Body must be an array of [subject_id, group, intensity, limit] tuples.")
		return
	}
	if len(updates) == 0 {
		middleware.BadRequest(w, models.CodeMissingField, "Empty test params batch.")
		return
	}

	if err := db.SetTestParams(h.db, updates); err != nil {
		middleware.ServerError(w, err)
		return
	}

	slog.Info("test params updated", "count", len(updates))

	middleware.DataResponse(w, struct{}{})
}
