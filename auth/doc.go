// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides credential generation and principal resolution.

# Subject Secrets

Secrets are random 24-byte (192-bit) bearer credentials:

	secret, err := auth.GenerateSecret()

URL-safe base64 without padding. A subject receives exactly one secret for
its lifetime; issuance is first-write-wins at the storage layer.

# Subject IDs

Email-keyed studies derive an 8-digit numeric ID from the registrant's
email:

	id := auth.HashSubjectID("a@x.com", 0)  // "48293716"

Deterministic for attempt 0; higher attempts salt the input so collision
recovery gets a fresh candidate. Self-contained studies use random
alphanumeric tokens instead:

	id, err := auth.GenerateSubjectToken()

# Principal Resolution

Every protected operation resolves the bearer token to one of three
principals:

		p, err := auth.Resolve(db, cfg.AdminToken, token, subjectID)

	  - PrincipalAdmin: token equals the configured admin token
	  - PrincipalSubject: token equals the stored secret of the request's
	    subject - access scoped to that subject only
	  - PrincipalNone: neither matched

Token comparisons are constant-time (TokenEqual).
*/
package auth
