// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles schema creation, batch query construction, and all typed
data access.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - subjects: one row per study participant (secret nullable until issued)
  - reports: append-only per-application usage facts
  - usage: append-only daily screen time totals
  - crash_reports: opaque crash payloads, subject optional
  - study_dates: phase dates per test group

reports and usage have composite natural-key primary keys; inserts use
ON CONFLICT DO NOTHING, so the first write for a key wins and duplicates
vanish silently. Nothing is ever deleted.

# Batch Query Construction

BuildValues renders multi-row VALUES fragments with contiguous positional
placeholders and optional per-column casts, returning the flattened argument
list alongside:

	values, args, err := db.BuildValues(rows, []string{"", "", "int"}, 1)
	// ($1,$2,$3::int),($4,$5,$6::int) ...

The builder owns flattening, so placeholder numbering can never drift from
the argument count.

Two consumers:

  - AddReports / AddUsage: batch INSERT ... ON CONFLICT DO NOTHING
  - SetTestParams: UPDATE ... FROM (VALUES ...) AS x(...) joined on
    subject_id; batch rows matching no subject are silently ignored

# Data Access

All operations are single-statement round-trips over *sql.DB; no
transactions, no locks. Column names are never taken from callers - lookups
like CheckSecret are fixed accessor functions.

Unique-constraint violations during subject creation are the authoritative
signal that a concurrent writer won; detect them with IsUniqueViolation and
re-read instead of failing.
*/
package db
