// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - IdentifyRequest: subject_id or email
  - AddSubjectRequest: optional subject_id, email
  - SubmitReportRequest: subject_id, period, day, reports
  - SubmitUsageRequest: subject_id, usage (map[string]int)
  - TestParamsUpdate: one [subject_id, group, intensity, limit] tuple

TestParamsUpdate uses a custom JSON codec because the wire format is a
positional 4-element array rather than an object, matching the CSV-derived
batches study administrators upload.

# Response Types

Types for JSON responses:

  - IdentifyResponse: auth_token, subject_id
  - AddSubjectResponse: subject_id
  - TestParamsResponse: test_group, treatment_intensity, treatment_limit
  - DataResponse: generic {"data": ...} envelope
  - ErrorResponse: code, message

# Domain Types

Internal data structures:

  - Subject: study participant row (secret never serialized)
  - Report: immutable per-application usage fact
  - UsageEntry: per-day screen time total
  - UsageSummary: per-subject aggregate
  - CrashReport: opaque crash payload, subject optional
  - StudyDates: phase dates for a test group

# Constants

Error codes used in 400/500 bodies:

	CodeWrongMethod     = "wrong-method"
	CodeMissingField    = "missing-field"
	CodeInvalidEmail    = "invalid-email"
	CodeSubjectNotFound = "subject-not-found"
	CodeInternal        = "internal"
*/
package models
