// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines the endpoint dispatch table for the study API.

# Route Registration

NewRouter creates a configured http.ServeMux:

	mux := router.NewRouter(db, cfg)

All study operations live under a single pattern, /api/{endpoint}, and are
dispatched by endpoint name. Unknown names answer 404 with an empty body.

# Endpoints

Public:

	POST /api/identify   - Resolve or create a subject's credential
	POST /api/acra       - Crash report intake

Subject-self or admin:

	GET  /api/get-subject     - Subject row
	GET  /api/get-test-params - Group, intensity, limit
	GET  /api/get-test-group  - Group only (older clients)
	GET  /api/get-dates       - Phase dates for the subject's group
	POST /api/submit-report   - Per-application usage batch
	POST /api/submit-usage    - Daily seconds batch

Admin only:

	POST /api/add-subject       - Provision a subject (also accepts the
	                              secondary provisioning token)
	GET  /api/get-all-subjects  - All subjects, optional ?group=
	POST /api/set-test-params   - Batch experiment assignment
	GET  /api/get-all-reports   - Every report row
	GET  /api/get-all-usage     - Usage entries, optional filters
	GET  /api/get-usage-summary - Per-subject totals
	GET  /api/get-all-dates     - Phase dates for every group

Operational:

	GET /health  - Liveness probe
	GET /metrics - Prometheus scrape target

# Middleware Order

Each table entry is wrapped as logging(metrics(guard(handler))). The
method guard answers OPTIONS preflights and rejects mismatched methods
before the handler - and therefore before any principal check or data
access - runs.
*/
package router
