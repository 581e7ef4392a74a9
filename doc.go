// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the screenstudy API server.

screenstudy backs a longitudinal screen-time research study: it registers
participating subjects, issues each one a bearer credential, records
per-subject application-usage reports and study-phase dates, and exposes
admin-only aggregate views.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=postgres://... ADMIN_TOKEN=... go run main.go

Or with flags:

	go run main.go -p 3324 -d "postgres://..." --admin-token "..."

A .env file in the working directory is loaded first when present.

# Configuration

Required settings:

  - DATABASE_URL (-d): PostgreSQL connection string
  - ADMIN_TOKEN (--admin-token): Shared admin bearer token

Optional settings:

  - PORT (-p): Server port (default: 3324)
  - PROVISION_TOKEN (--provision-token): Secondary token accepted by
    add-subject only

# Architecture

The server uses a handler-based architecture with dependency injection:

  - handlers: HTTP request handlers (subjects, reports, usage, dates, crash)
  - router: Endpoint-name dispatch table at /api/{endpoint}
  - middleware: Method guards, CORS, logging, metrics, JSON helpers
  - models: Request/response types
  - auth: Credential generation and principal resolution
  - identity: Subject creation and idempotent credential issuance
  - db: Schema, batch value builder, data access
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
