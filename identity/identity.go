// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package identity

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/danielhkuo/screenstudy/auth"
	"github.com/danielhkuo/screenstudy/db"
)

var (
	// ErrNotFound means an ID-keyed lookup matched no subject.
	ErrNotFound = errors.New("subject not found")
	// ErrInvalidEmail means the supplied email failed the shape check.
	ErrInvalidEmail = errors.New("invalid email")
)

// maxIDAttempts bounds collision recovery during subject creation. The
// storage layer's uniqueness constraints are the real guarantee; the loop
// only regenerates candidates when an insert loses the race.
const maxIDAttempts = 5

// Result is what identify returns: the subject's stable ID and its bearer
// credential.
type Result struct {
	SubjectID string
	Secret    string
}

// NewSubjectID produces a candidate subject ID confirmed absent at the
// moment of check. Email-keyed studies get a deterministic 8-digit hash of
// the email; pass an empty email for a random alphanumeric token. The
// existence check is advisory - the caller's insert must still treat a
// unique violation as the authoritative collision signal.
func NewSubjectID(dbConn *sql.DB, email string) (string, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		var candidate string
		var err error
		if email != "" {
			candidate = auth.HashSubjectID(email, attempt)
		} else {
			candidate, err = auth.GenerateSubjectToken()
			if err != nil {
				return "", err
			}
		}

		exists, err := db.SubjectIDExists(dbConn, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free subject ID after %d attempts", maxIDAttempts)
}

// Identify resolves a caller's credential idempotently.
//
// Keyed by subject ID: the subject must exist; its secret is issued on
// first call and returned unchanged on every later call.
//
// Keyed by email: an unknown email creates a new subject with a
// hash-derived ID and fresh secret. A unique violation during creation
// means a concurrent writer registered the same email first - the email is
// re-read and that subject's credential is issued instead of retrying
// indefinitely.
func Identify(dbConn *sql.DB, subjectID, email string) (*Result, error) {
	if subjectID != "" {
		subject, err := db.GetSubjectByID(dbConn, subjectID)
		if err != nil {
			return nil, err
		}
		if subject == nil {
			return nil, ErrNotFound
		}
		return issueSecret(dbConn, subject.SubjectID, subject.Secret, subject.Identified)
	}

	if !auth.ValidEmail(email) {
		return nil, ErrInvalidEmail
	}

	subject, err := db.GetSubjectByEmail(dbConn, email)
	if err != nil {
		return nil, err
	}
	if subject != nil {
		return issueSecret(dbConn, subject.SubjectID, subject.Secret, subject.Identified)
	}

	return createByEmail(dbConn, email)
}

// issueSecret returns the existing credential unchanged, or persists a
// fresh one when none was issued yet. Losing the issuance race to a
// concurrent identify is resolved by re-reading - exactly one secret ever
// exists per subject.
func issueSecret(dbConn *sql.DB, subjectID string, existing *string, identified bool) (*Result, error) {
	if existing != nil {
		if identified {
			slog.Info("subject re-identified", "subject_id", subjectID)
		}
		if err := db.MarkIdentified(dbConn, subjectID); err != nil {
			return nil, err
		}
		return &Result{SubjectID: subjectID, Secret: *existing}, nil
	}

	secret, err := auth.GenerateSecret()
	if err != nil {
		return nil, err
	}

	ok, err := db.SetSecret(dbConn, subjectID, secret)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Concurrent identify won; the stored secret is authoritative.
		stored, err := db.CheckSecret(dbConn, subjectID)
		if err != nil {
			return nil, err
		}
		if stored == nil {
			return nil, fmt.Errorf("secret issuance race for %s left no secret", subjectID)
		}
		return &Result{SubjectID: subjectID, Secret: *stored}, nil
	}

	slog.Info("subject identified", "subject_id", subjectID)
	return &Result{SubjectID: subjectID, Secret: secret}, nil
}

func createByEmail(dbConn *sql.DB, email string) (*Result, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		subjectID := auth.HashSubjectID(email, attempt)
		secret, err := auth.GenerateSecret()
		if err != nil {
			return nil, err
		}

		err = db.AddSubject(dbConn, subjectID, email, &secret)
		if err == nil {
			if err := db.MarkIdentified(dbConn, subjectID); err != nil {
				return nil, err
			}
			slog.Info("subject created via identify", "subject_id", subjectID)
			return &Result{SubjectID: subjectID, Secret: secret}, nil
		}
		if !db.IsUniqueViolation(err) {
			return nil, err
		}

		// Either a concurrent writer registered this email, or the hash
		// collided with a different email's ID. The re-read settles which.
		subject, lookupErr := db.GetSubjectByEmail(dbConn, email)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if subject != nil {
			return issueSecret(dbConn, subject.SubjectID, subject.Secret, subject.Identified)
		}
		// ID collision with another email; next attempt salts the hash.
	}
	return nil, fmt.Errorf("could not create subject for email after %d attempts", maxIDAttempts)
}

// Provision is the admin-driven creation path. A new email gets a subject
// row with a fresh secret under the supplied ID (or a generated one). An
// already-registered email is rekeyed to the supplied subject ID, which
// supports external-system ID reassignment. Repeated calls with the same
// email converge to the same subject ID, though the rekey write may repeat.
func Provision(dbConn *sql.DB, subjectID, email string) (string, error) {
	if !auth.ValidEmail(email) {
		return "", ErrInvalidEmail
	}

	existing, err := db.GetSubjectByEmail(dbConn, email)
	if err != nil {
		return "", err
	}
	if existing != nil {
		if subjectID == "" || subjectID == existing.SubjectID {
			return existing.SubjectID, nil
		}
		if err := db.UpdateSubjectID(dbConn, email, subjectID); err != nil {
			if db.IsUniqueViolation(err) {
				return "", fmt.Errorf("subject ID %s already taken: %w", subjectID, err)
			}
			return "", err
		}
		slog.Info("subject rekeyed", "email", email, "subject_id", subjectID)
		return subjectID, nil
	}

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := subjectID
		if id == "" {
			id = auth.HashSubjectID(email, attempt)
		}

		secret, err := auth.GenerateSecret()
		if err != nil {
			return "", err
		}

		err = db.AddSubject(dbConn, id, email, &secret)
		if err == nil {
			slog.Info("subject provisioned", "subject_id", id)
			return id, nil
		}
		if !db.IsUniqueViolation(err) {
			return "", err
		}

		subject, lookupErr := db.GetSubjectByEmail(dbConn, email)
		if lookupErr != nil {
			return "", lookupErr
		}
		if subject != nil {
			// Concurrent writer registered the email; converge on its row,
			// rekeying if a specific ID was requested.
			if subjectID != "" && subjectID != subject.SubjectID {
				if err := db.UpdateSubjectID(dbConn, email, subjectID); err != nil {
					return "", err
				}
				return subjectID, nil
			}
			return subject.SubjectID, nil
		}
		if subjectID != "" {
			// The requested ID belongs to a different email.
			return "", fmt.Errorf("subject ID %s already taken: %w", subjectID, err)
		}
	}
	return "", fmt.Errorf("could not provision subject for email after %d attempts", maxIDAttempts)
}
