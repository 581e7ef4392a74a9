// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package identity implements subject creation and idempotent credential
issuance.

# Identify

Identify resolves "who is this caller and what is their credential":

	result, err := identity.Identify(db, subjectID, email)

Calling identify twice never issues two different credentials for the same
subject. An existing secret is returned unchanged; a missing secret is
generated, persisted, and the subject marked identified; an unknown email
creates a new subject with a hash-derived ID and fresh secret.

Errors: ErrInvalidEmail for malformed emails, ErrNotFound for ID-keyed
lookups matching no subject.

# Collision Recovery

Subject IDs for email-keyed studies are 8-digit hashes, so collisions
happen. The uniqueness guarantee lives in the storage layer's constraints:
creation attempts the insert and treats a unique violation as the signal
that either a concurrent writer registered the same email (re-read and use
that row) or the hash collided with a different email (salt and retry, at
most maxIDAttempts times). The pre-insert existence check in NewSubjectID
is advisory only.

# Provisioning

Provision is the admin path:

	id, err := identity.Provision(db, subjectID, email)

New emails get a row with a fresh secret. An already-registered email is
rekeyed to the supplied subject ID - repeated calls converge to the same
subject ID, though the rekey write may run again each time.
*/
package identity
