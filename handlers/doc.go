// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the study API.

# Handler Types

Each handler is a struct with database and config dependencies:

  - SubjectHandler: identify, provisioning, subject reads, test params
  - ReportHandler: report submission and admin retrieval
  - UsageHandler: daily usage submission, listing, summary
  - CrashHandler: ACRA-style crash report intake
  - DatesHandler: study phase date reads

Handlers are created via constructor functions that accept *sql.DB and Config:

	subjectHandler := handlers.NewSubjectHandler(db, cfg)

# Authorization

Every protected handler resolves the bearer token to a principal before
touching data:

  - admin: token equals cfg.AdminToken - full access
  - subject-self: token equals the stored secret for the request's
    subject_id - access to that subject's own records only
  - none: 403 with an empty body

identify and acra are public. add-subject additionally accepts the
secondary provisioning token. The method guard (router) runs before the
principal check, which runs before any mutation.

# Write Semantics

submit-report and submit-usage batch-insert through the values builder
with ON CONFLICT DO NOTHING: the first write for a natural key wins and
resubmission is a safe no-op. set-test-params applies its whole batch in
one UPDATE ... FROM (VALUES ...) statement; tuples naming unknown
subjects are silently ignored.

# Not-Found Policy

A missing subject on an admin read is an empty {"data": {}} success, not
an error. 404 is reserved for unknown endpoint names.
*/
package handlers
