// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/danielhkuo/screenstudy/models"
)

// pq error code for unique constraint violations; the authoritative
// race-resolution signal during concurrent subject creation.
const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a postgres unique-constraint
// violation. Callers treat this as "another writer got there first" and
// re-read rather than failing.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation
}

const subjectColumns = `subject_id, email, secret, test_group, treatment_intensity, treatment_limit, identified, created_at`

func scanSubject(row interface{ Scan(...any) error }) (*models.Subject, error) {
	var s models.Subject
	var secret sql.NullString
	err := row.Scan(
		&s.SubjectID, &s.Email, &secret, &s.TestGroup,
		&s.TreatmentIntensity, &s.TreatmentLimit, &s.Identified, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if secret.Valid {
		s.Secret = &secret.String
	}
	return &s, nil
}

// AddSubject inserts a new subject row. secret may be nil for rows that will
// receive their credential on first identify. A unique violation (duplicate
// subject_id or email) is returned unwrapped so callers can detect it with
// IsUniqueViolation.
func AddSubject(db *sql.DB, subjectID, email string, secret *string) error {
	_, err := db.Exec(`
		INSERT INTO subjects (subject_id, email, secret)
		VALUES ($1, $2, $3)
	`, subjectID, email, secret)
	return err
}

// GetSubjectByID returns the subject or nil when no row matches.
func GetSubjectByID(db *sql.DB, subjectID string) (*models.Subject, error) {
	row := db.QueryRow(`SELECT `+subjectColumns+` FROM subjects WHERE subject_id = $1`, subjectID)
	s, err := scanSubject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get subject by id: %w", err)
	}
	return s, nil
}

// GetSubjectByEmail returns the subject or nil when no row matches. The
// lookup is case-insensitive.
func GetSubjectByEmail(db *sql.DB, email string) (*models.Subject, error) {
	row := db.QueryRow(`SELECT `+subjectColumns+` FROM subjects WHERE LOWER(email) = LOWER($1)`, email)
	s, err := scanSubject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get subject by email: %w", err)
	}
	return s, nil
}

// GetSubjects returns all subjects, optionally filtered to one test group.
func GetSubjects(db *sql.DB, group *int) ([]models.Subject, error) {
	var rows *sql.Rows
	var err error
	if group != nil {
		rows, err = db.Query(`SELECT `+subjectColumns+` FROM subjects WHERE test_group = $1 ORDER BY subject_id`, *group)
	} else {
		rows, err = db.Query(`SELECT ` + subjectColumns + ` FROM subjects ORDER BY subject_id`)
	}
	if err != nil {
		return nil, fmt.Errorf("get subjects: %w", err)
	}
	defer rows.Close()

	subjects := []models.Subject{}
	for rows.Next() {
		s, err := scanSubject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		subjects = append(subjects, *s)
	}
	return subjects, rows.Err()
}

// SubjectIDExists checks whether a candidate subject ID is taken.
func SubjectIDExists(db *sql.DB, subjectID string) (bool, error) {
	var exists bool
	err := db.QueryRow(`SELECT EXISTS (SELECT 1 FROM subjects WHERE subject_id = $1)`, subjectID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check subject id: %w", err)
	}
	return exists, nil
}

// CheckSecret returns the stored secret for a subject, or nil when the
// subject does not exist or has no secret yet. This is a fixed accessor:
// column names are never taken from callers.
func CheckSecret(db *sql.DB, subjectID string) (*string, error) {
	var secret sql.NullString
	err := db.QueryRow(`SELECT secret FROM subjects WHERE subject_id = $1`, subjectID).Scan(&secret)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("check secret: %w", err)
	}
	if !secret.Valid {
		return nil, nil
	}
	return &secret.String, nil
}

// SetSecret stores a subject's credential and marks the subject identified.
// The secret IS NULL guard makes issuance first-write-wins: once a subject
// has a secret it is never replaced. Returns false when no row was updated
// (subject missing or secret already set).
func SetSecret(db *sql.DB, subjectID, secret string) (bool, error) {
	res, err := db.Exec(`
		UPDATE subjects SET secret = $1, identified = TRUE
		WHERE subject_id = $2 AND secret IS NULL
	`, secret, subjectID)
	if err != nil {
		return false, fmt.Errorf("set secret: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set secret: %w", err)
	}
	return n > 0, nil
}

// MarkIdentified records that the subject completed the identify flow.
// Idempotent; re-identification leaves the flag untouched.
func MarkIdentified(db *sql.DB, subjectID string) error {
	_, err := db.Exec(`UPDATE subjects SET identified = TRUE WHERE subject_id = $1 AND NOT identified`, subjectID)
	if err != nil {
		return fmt.Errorf("mark identified: %w", err)
	}
	return nil
}

// UpdateSubjectID rekeys the subject registered under email to a new
// subject ID. Used by admin provisioning when an external system reassigns
// IDs. A unique violation on the new ID is returned unwrapped.
func UpdateSubjectID(db *sql.DB, email, newSubjectID string) error {
	_, err := db.Exec(`UPDATE subjects SET subject_id = $1 WHERE LOWER(email) = LOWER($2)`, newSubjectID, email)
	return err
}

// SetTestParams applies a batch of experiment-assignment updates in one
// statement via a VALUES table expression joined against subjects.
// Rows whose subject_id matches nothing are silently ignored.
func SetTestParams(db *sql.DB, updates []models.TestParamsUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	rows := make([][]any, len(updates))
	for i, u := range updates {
		rows[i] = []any{u.SubjectID, u.TestGroup, u.TreatmentIntensity, u.TreatmentLimit}
	}

	values, args, err := BuildValues(rows, []string{"text", "int", "int", "int"}, 1)
	if err != nil {
		return fmt.Errorf("set test params: %w", err)
	}

	_, err = db.Exec(`
		UPDATE subjects s SET
			test_group = x.test_group,
			treatment_intensity = x.treatment_intensity,
			treatment_limit = x.treatment_limit
		FROM (VALUES `+values+`) AS x(subject_id, test_group, treatment_intensity, treatment_limit)
		WHERE s.subject_id = x.subject_id
	`, args...)
	if err != nil {
		return fmt.Errorf("set test params: %w", err)
	}
	return nil
}

// AddReports batch-inserts usage reports. Duplicate natural keys are
// absorbed by ON CONFLICT DO NOTHING: first write wins, resubmission of an
// overlapping set is a no-op.
func AddReports(db *sql.DB, reports []models.Report) error {
	if len(reports) == 0 {
		return nil
	}

	rows := make([][]any, len(reports))
	for i, r := range reports {
		rows[i] = []any{r.SubjectID, r.ApplicationName, r.Period, r.Day, r.Usage}
	}

	values, args, err := BuildValues(rows, []string{"", "", "", "", "int"}, 1)
	if err != nil {
		return fmt.Errorf("add reports: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO reports (subject_id, application_name, period, day, usage)
		VALUES `+values+`
		ON CONFLICT DO NOTHING
	`, args...)
	if err != nil {
		return fmt.Errorf("add reports: %w", err)
	}
	return nil
}

// GetReports returns every stored report.
func GetReports(db *sql.DB) ([]models.Report, error) {
	rows, err := db.Query(`
		SELECT subject_id, application_name, period, day, usage
		FROM reports
		ORDER BY subject_id, period, day, application_name
	`)
	if err != nil {
		return nil, fmt.Errorf("get reports: %w", err)
	}
	defer rows.Close()

	reports := []models.Report{}
	for rows.Next() {
		var r models.Report
		if err := rows.Scan(&r.SubjectID, &r.ApplicationName, &r.Period, &r.Day, &r.Usage); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// AddUsage batch-inserts daily usage entries with the same first-write-wins
// conflict policy as AddReports.
func AddUsage(db *sql.DB, entries []models.UsageEntry) error {
	if len(entries) == 0 {
		return nil
	}

	rows := make([][]any, len(entries))
	for i, e := range entries {
		rows[i] = []any{e.SubjectID, e.DateReported, e.UsageSeconds}
	}

	values, args, err := BuildValues(rows, []string{"", "", "int"}, 1)
	if err != nil {
		return fmt.Errorf("add usage: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO usage (subject_id, date_reported, usage_seconds)
		VALUES `+values+`
		ON CONFLICT DO NOTHING
	`, args...)
	if err != nil {
		return fmt.Errorf("add usage: %w", err)
	}
	return nil
}

// GetUsage returns usage entries, optionally filtered by subject and an
// inclusive date range. Empty strings disable a filter.
func GetUsage(db *sql.DB, subjectID, from, to string) ([]models.UsageEntry, error) {
	query := `SELECT subject_id, date_reported, usage_seconds FROM usage`
	clauses := []string{}
	args := []any{}
	if subjectID != "" {
		args = append(args, subjectID)
		clauses = append(clauses, fmt.Sprintf("subject_id = $%d", len(args)))
	}
	if from != "" {
		args = append(args, from)
		clauses = append(clauses, fmt.Sprintf("date_reported >= $%d", len(args)))
	}
	if to != "" {
		args = append(args, to)
		clauses = append(clauses, fmt.Sprintf("date_reported <= $%d", len(args)))
	}
	for i, c := range clauses {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY subject_id, date_reported"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("get usage: %w", err)
	}
	defer rows.Close()

	entries := []models.UsageEntry{}
	for rows.Next() {
		var e models.UsageEntry
		if err := rows.Scan(&e.SubjectID, &e.DateReported, &e.UsageSeconds); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetUsageSummary returns per-subject totals across all usage entries.
func GetUsageSummary(db *sql.DB) ([]models.UsageSummary, error) {
	rows, err := db.Query(`
		SELECT subject_id, COUNT(*), COALESCE(SUM(usage_seconds), 0)
		FROM usage
		GROUP BY subject_id
		ORDER BY subject_id
	`)
	if err != nil {
		return nil, fmt.Errorf("get usage summary: %w", err)
	}
	defer rows.Close()

	summaries := []models.UsageSummary{}
	for rows.Next() {
		var s models.UsageSummary
		if err := rows.Scan(&s.SubjectID, &s.DaysReported, &s.TotalSeconds); err != nil {
			return nil, fmt.Errorf("scan usage summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// AddCrashReport stores one crash payload. subjectID may be nil when the
// reporting device has no subject association yet.
func AddCrashReport(db *sql.DB, id string, subjectID *string, report string) error {
	_, err := db.Exec(`
		INSERT INTO crash_reports (id, subject_id, report)
		VALUES ($1, $2, $3)
	`, id, subjectID, report)
	if err != nil {
		return fmt.Errorf("add crash report: %w", err)
	}
	return nil
}

// GetStudyDates returns the phase dates for a subject's assigned test group,
// or nil when the subject is unknown or its group has no dates configured.
func GetStudyDates(db *sql.DB, subjectID string) (*models.StudyDates, error) {
	row := db.QueryRow(`
		SELECT d.test_group, d.baseline_start, d.treatment_start, d.treatment_end, d.final_survey
		FROM subjects s
		JOIN study_dates d ON d.test_group = s.test_group
		WHERE s.subject_id = $1
	`, subjectID)
	d, err := scanStudyDates(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get study dates: %w", err)
	}
	return d, nil
}

// scanStudyDates converts the DATE columns (returned as time.Time by the
// driver) into the wire format dates.
func scanStudyDates(row interface{ Scan(...any) error }) (*models.StudyDates, error) {
	var d models.StudyDates
	var baseline, start, end, survey time.Time
	if err := row.Scan(&d.TestGroup, &baseline, &start, &end, &survey); err != nil {
		return nil, err
	}
	d.BaselineStart = baseline.Format("2006-01-02")
	d.TreatmentStart = start.Format("2006-01-02")
	d.TreatmentEnd = end.Format("2006-01-02")
	d.FinalSurvey = survey.Format("2006-01-02")
	return &d, nil
}

// GetAllStudyDates returns the phase dates for every configured test group.
func GetAllStudyDates(db *sql.DB) ([]models.StudyDates, error) {
	rows, err := db.Query(`
		SELECT test_group, baseline_start, treatment_start, treatment_end, final_survey
		FROM study_dates
		ORDER BY test_group
	`)
	if err != nil {
		return nil, fmt.Errorf("get all study dates: %w", err)
	}
	defer rows.Close()

	dates := []models.StudyDates{}
	for rows.Next() {
		d, err := scanStudyDates(rows)
		if err != nil {
			return nil, fmt.Errorf("scan study dates: %w", err)
		}
		dates = append(dates, *d)
	}
	return dates, rows.Err()
}
