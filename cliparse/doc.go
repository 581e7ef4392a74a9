// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

The Config is built once at process start and never reloaded; the secrets
inside it are immutable for the process lifetime.

# Config Fields

  - Port: Server listen port (default: 3324)
  - DatabaseURL: PostgreSQL connection string (required)
  - AdminToken: Shared admin bearer token (required)
  - ProvisionToken: Secondary provisioning token (optional; empty disables)

# CLI Flags

	-p                Server port
	-d                Database URL
	--admin-token     Admin bearer token
	--provision-token Secondary provisioning token

# Environment Variables

Flags fall back to environment variables:

	PORT            → -p
	DATABASE_URL    → -d
	ADMIN_TOKEN     → --admin-token
	PROVISION_TOKEN → --provision-token

CLI flags take precedence over environment variables. main loads a .env
file (if present) before parsing, so local development can keep secrets
out of the shell.

# Validation

ParseFlags returns an error if required values are missing:

  - DATABASE_URL must be provided
  - ADMIN_TOKEN must be provided
*/
package cliparse
