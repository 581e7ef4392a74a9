// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Method Guards

Every boundary operation is wrapped in a method guard:

	table["get-subject"] = middleware.GetOnly(h.GetSubject)
	table["identify"] = middleware.PostOnly(h.Identify)

OPTIONS preflight probes answer 200 with no body and no authorization
check. Any other mismatched method gets a 400 wrong-method error before
the handler runs - the guard always executes ahead of principal
resolution, which always executes ahead of any data mutation.

# Request Logging

Wrap handlers with request logging:

	middleware.WithLogging(handler)

Logs request start (method, path, remote) and completion (duration_ms).

# Metrics

WithMetrics records a prometheus counter (endpoint, status) and latency
histogram per endpoint:

	middleware.WithMetrics("submit-report", handler)

Scrape at GET /metrics.

# Error Bodies

The error surface is fixed:

	middleware.BadRequest(w, code, message)  // 400 {code, message}
	middleware.Forbidden(w)                  // 403, empty body
	middleware.NotFound(w)                   // 404, empty body
	middleware.ServerError(w, err)           // 500 {code, message}

Forbidden never carries detail - it must not leak whether a subject
exists or which check failed.

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.DataResponse(w, payload)  // {"data": payload}
	middleware.ParseJSONBody(r, &req)

# Bearer Tokens

	token := middleware.BearerToken(r)

Reads Authorization: Bearer first, then the legacy Auth-Token header.

# CORS Middleware

	server := http.Server{Handler: middleware.CORS(mux)}

Allows GET, POST, OPTIONS with Content-Type, Authorization, Auth-Token.
*/
package middleware
