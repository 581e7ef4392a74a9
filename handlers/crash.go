// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/danielhkuo/screenstudy/cliparse"
	"github.com/danielhkuo/screenstudy/db"
	"github.com/danielhkuo/screenstudy/middleware"
	"github.com/danielhkuo/screenstudy/models"
)

// maxCrashReportBytes caps ACRA payloads; stack traces plus logcat fit
// comfortably under this.
const maxCrashReportBytes = 1 << 20

type CrashHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewCrashHandler(db *sql.DB, cfg cliparse.Config) *CrashHandler {
	return &CrashHandler{db: db, cfg: cfg}
}

// Submit handles acra (public). The payload is stored verbatim; a
// subject_id field is extracted when present but never required - crashing
// devices may not know who they belong to.
func (h *CrashHandler) Submit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCrashReportBytes))
	r.Body.Close()
	if err != nil {
		middleware.BadRequest(w, models.CodeMissingField, "Could not read crash payload.")
		return
	}
	if len(body) == 0 {
		middleware.BadRequest(w, models.CodeMissingField, "Empty crash payload.")
		return
	}

	var subjectID *string
	var envelope models.CrashReportEnvelope
	if json.Unmarshal(body, &envelope) == nil && envelope.SubjectID != "" {
		subjectID = &envelope.SubjectID
	}

	if err := db.AddCrashReport(h.db, uuid.NewString(), subjectID, string(body)); err != nil {
		middleware.ServerError(w, err)
		return
	}

	slog.Info("crash report stored", "has_subject", subjectID != nil, "bytes", len(body))

	middleware.DataResponse(w, struct{}{})
}
