// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const schema = `
-- Subjects
CREATE TABLE IF NOT EXISTS subjects (
    subject_id TEXT PRIMARY KEY,
    email TEXT NOT NULL,
    secret TEXT,
    test_group INT NOT NULL DEFAULT 0,
    treatment_intensity INT NOT NULL DEFAULT 0,
    treatment_limit INT NOT NULL DEFAULT 0,
    identified BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_subjects_email ON subjects(LOWER(email));
CREATE INDEX IF NOT EXISTS idx_subjects_test_group ON subjects(test_group);

-- Reports: append-only usage facts, first write wins
CREATE TABLE IF NOT EXISTS reports (
    subject_id TEXT NOT NULL,
    application_name TEXT NOT NULL,
    period TEXT NOT NULL,
    day TEXT NOT NULL,
    usage INT NOT NULL,
    PRIMARY KEY (subject_id, application_name, period, day)
);

CREATE INDEX IF NOT EXISTS idx_reports_subject_id ON reports(subject_id);

-- Daily usage totals, same conflict policy as reports
CREATE TABLE IF NOT EXISTS usage (
    subject_id TEXT NOT NULL,
    date_reported TEXT NOT NULL,
    usage_seconds INT NOT NULL,
    PRIMARY KEY (subject_id, date_reported)
);

CREATE INDEX IF NOT EXISTS idx_usage_subject_id ON usage(subject_id);

-- Crash reports: no natural key, subject may be unknown
CREATE TABLE IF NOT EXISTS crash_reports (
    id TEXT PRIMARY KEY,
    subject_id TEXT,
    report TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);

-- Study phase dates per test group
CREATE TABLE IF NOT EXISTS study_dates (
    test_group INT PRIMARY KEY,
    baseline_start DATE NOT NULL,
    treatment_start DATE NOT NULL,
    treatment_end DATE NOT NULL,
    final_survey DATE NOT NULL
);
`
