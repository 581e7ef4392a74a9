// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/danielhkuo/screenstudy/db"
)

// Principal is the resolved identity of a request.
type Principal int

const (
	// PrincipalNone is an unauthenticated caller.
	PrincipalNone Principal = iota
	// PrincipalSubject is a subject authenticated by its own secret,
	// scoped to that subject's records only.
	PrincipalSubject
	// PrincipalAdmin holds the shared admin token and has full access.
	PrincipalAdmin
)

// GenerateSecret creates a subject's bearer credential: 24 random bytes
// (192 bits), URL-safe base64 without padding.
func GenerateSecret() (string, error) {
	b := make([]byte, 24)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return strings.TrimRight(base64.URLEncoding.EncodeToString(b), "="), nil
}

// GenerateSubjectToken creates a random alphanumeric subject ID candidate
// for self-contained studies that do not key subjects by email.
func GenerateSubjectToken() (string, error) {
	b := make([]byte, 8)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate subject token: %w", err)
	}
	return base62Encode(b), nil
}

// HashSubjectID derives an 8-digit numeric subject ID from an email
// address. Deterministic for a given email and attempt number; attempt > 0
// salts the input so collision recovery can produce a fresh candidate.
func HashSubjectID(email string, attempt int) string {
	input := strings.ToLower(strings.TrimSpace(email))
	if attempt > 0 {
		input = fmt.Sprintf("%s#%d", input, attempt)
	}
	sum := sha256.Sum256([]byte(input))
	n := binary.BigEndian.Uint64(sum[:8]) % 100000000
	return fmt.Sprintf("%08d", n)
}

// ValidEmail applies a basic shape check: one @ with a dot somewhere after
// it. Real verification happens out of band when study staff contact the
// registrant.
func ValidEmail(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	domain := email[at+1:]
	dot := strings.Index(domain, ".")
	if dot <= 0 || dot == len(domain)-1 {
		return false
	}
	return !strings.ContainsAny(email, " \t\n")
}

// TokenEqual compares two bearer tokens in constant time.
func TokenEqual(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return hmac.Equal([]byte(a), []byte(b))
}

// Resolve maps a bearer token to a principal. adminToken comes from the
// immutable startup config; the subject path compares against the stored
// secret for the request's subject ID. No match means PrincipalNone -
// callers decide whether the operation is public.
func Resolve(dbConn *sql.DB, adminToken, token, subjectID string) (Principal, error) {
	if TokenEqual(token, adminToken) {
		return PrincipalAdmin, nil
	}
	if token == "" || subjectID == "" {
		return PrincipalNone, nil
	}
	secret, err := db.CheckSecret(dbConn, subjectID)
	if err != nil {
		return PrincipalNone, err
	}
	if secret != nil && TokenEqual(token, *secret) {
		return PrincipalSubject, nil
	}
	return PrincipalNone, nil
}

// base62Encode converts bytes to base62 (0-9, a-z, A-Z)
// This creates URL-friendly IDs without special characters
func base62Encode(data []byte) string {
	const base62Chars = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// Convert bytes to a big integer
	var num uint64
	for i := 0; i < len(data) && i < 8; i++ {
		num = num<<8 | uint64(data[i])
	}

	if num == 0 {
		return "0"
	}

	// Convert to base62
	result := make([]byte, 0, 11) // max length for uint64
	for num > 0 {
		result = append(result, base62Chars[num%62])
		num /= 62
	}

	// Reverse the string
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}

	return string(result)
}
