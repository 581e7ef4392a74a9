// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/screenstudy/models"
)

// WithLogging wraps a handler with request logging
func WithLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Log request
		slog.Info("request started",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
		)

		// Call the next handler
		next(w, r)

		// Log completion
		duration := time.Since(start)
		slog.Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", duration.Milliseconds(),
		)
	}
}

// GetOnly restricts an endpoint to GET requests. OPTIONS preflight probes
// succeed with no body and no authorization check; any other method is
// rejected before the wrapped handler runs.
func GetOnly(next http.HandlerFunc) http.HandlerFunc {
	return methodGuard(http.MethodGet, next)
}

// PostOnly restricts an endpoint to POST requests, with the same OPTIONS
// and rejection behavior as GetOnly.
func PostOnly(next http.HandlerFunc) http.HandlerFunc {
	return methodGuard(http.MethodPost, next)
}

func methodGuard(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.Method != method {
			BadRequest(w, models.CodeWrongMethod, "This endpoint accepts "+method+" requests only.")
			return
		}
		next(w, r)
	}
}

// BearerToken extracts the request's bearer token. Authorization: Bearer
// is preferred; the bare Auth-Token header is accepted for older study
// clients.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.Header.Get("Auth-Token")
}

// JSONResponse writes a JSON response
func JSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// DataResponse writes a 200 response with the payload wrapped in {"data": ...}
func DataResponse(w http.ResponseWriter, data interface{}) {
	JSONResponse(w, http.StatusOK, models.DataResponse{Data: data})
}

// BadRequest writes a 400 with a {code, message} body
func BadRequest(w http.ResponseWriter, code, message string) {
	JSONResponse(w, http.StatusBadRequest, models.ErrorResponse{Code: code, Message: message})
}

// Forbidden writes a 403 with an empty body. Deliberately no detail: the
// response never leaks whether the subject exists or which check failed.
func Forbidden(w http.ResponseWriter) {
	w.WriteHeader(http.StatusForbidden)
}

// NotFound writes a 404 with an empty body
func NotFound(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNotFound)
}

// ServerError logs the failure and writes a 500 with serialized detail.
// Acceptable for an internal research tool; a public service would hide
// the message.
func ServerError(w http.ResponseWriter, err error) {
	slog.Error("request failed", "error", err)
	JSONResponse(w, http.StatusInternalServerError, models.ErrorResponse{
		Code:    models.CodeInternal,
		Message: err.Error(),
	})
}

// ParseJSONBody parses the request body into the given struct
func ParseJSONBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return nil
}

// CORS middleware allows cross-origin requests from study tooling
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Auth-Token")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		next.ServeHTTP(w, r)
	})
}
