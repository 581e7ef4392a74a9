// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package identity

import (
	"errors"
	"testing"

	"github.com/danielhkuo/screenstudy/db"
	"github.com/danielhkuo/screenstudy/testutil"
)

func TestIdentify_BySubjectID_Idempotent(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	testutil.CreateTestSubject(t, conn, "11112222", "a@x.com", false)

	first, err := Identify(conn, "11112222", "")
	if err != nil {
		t.Fatalf("Identify() error = %v", err)
	}
	if first.Secret == "" {
		t.Fatal("Identify() issued empty secret")
	}

	second, err := Identify(conn, "11112222", "")
	if err != nil {
		t.Fatalf("Second Identify() error = %v", err)
	}

	if first.Secret != second.Secret {
		t.Errorf("Identify() issued two different secrets: %q vs %q", first.Secret, second.Secret)
	}
}

func TestIdentify_SetsIdentifiedFlag(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	testutil.CreateTestSubject(t, conn, "11112222", "a@x.com", false)

	if _, err := Identify(conn, "11112222", ""); err != nil {
		t.Fatalf("Identify() error = %v", err)
	}

	subject, err := db.GetSubjectByID(conn, "11112222")
	if err != nil {
		t.Fatalf("GetSubjectByID() error = %v", err)
	}
	if !subject.Identified {
		t.Error("Identify() should set identified flag")
	}

	// Re-identification leaves the flag set
	if _, err := Identify(conn, "11112222", ""); err != nil {
		t.Fatalf("Re-identify error = %v", err)
	}
	subject, _ = db.GetSubjectByID(conn, "11112222")
	if !subject.Identified {
		t.Error("Re-identification must not clear the identified flag")
	}
}

func TestIdentify_ExistingSecretUnchanged(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	issued := testutil.CreateTestSubject(t, conn, "11112222", "a@x.com", true)

	result, err := Identify(conn, "11112222", "")
	if err != nil {
		t.Fatalf("Identify() error = %v", err)
	}
	if result.Secret != issued {
		t.Errorf("Identify() replaced an existing secret: got %q, want %q", result.Secret, issued)
	}
}

func TestIdentify_UnknownSubjectID(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	_, err := Identify(conn, "00000000", "")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Identify() error = %v, want ErrNotFound", err)
	}
}

func TestIdentify_ByEmail_CreatesSubject(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	result, err := Identify(conn, "", "new@x.com")
	if err != nil {
		t.Fatalf("Identify() error = %v", err)
	}

	if len(result.SubjectID) != 8 {
		t.Errorf("Expected 8-digit subject ID, got %q", result.SubjectID)
	}
	if result.Secret == "" {
		t.Error("Expected a fresh secret")
	}

	subject, err := db.GetSubjectByEmail(conn, "new@x.com")
	if err != nil {
		t.Fatalf("GetSubjectByEmail() error = %v", err)
	}
	if subject == nil {
		t.Fatal("Subject row was not created")
	}
	if subject.SubjectID != result.SubjectID {
		t.Errorf("Stored subject ID %q != returned %q", subject.SubjectID, result.SubjectID)
	}
	if !subject.Identified {
		t.Error("Subject created via identify should be marked identified")
	}

	// Second identify by the same email returns the same credential
	again, err := Identify(conn, "", "new@x.com")
	if err != nil {
		t.Fatalf("Second Identify() error = %v", err)
	}
	if again.SubjectID != result.SubjectID || again.Secret != result.Secret {
		t.Error("Identify() by email is not idempotent")
	}
}

func TestIdentify_EmailCaseInsensitive(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	first, err := Identify(conn, "", "Mixed@Case.com")
	if err != nil {
		t.Fatalf("Identify() error = %v", err)
	}

	second, err := Identify(conn, "", "mixed@case.com")
	if err != nil {
		t.Fatalf("Second Identify() error = %v", err)
	}

	if first.SubjectID != second.SubjectID {
		t.Errorf("Case variants created two subjects: %q vs %q", first.SubjectID, second.SubjectID)
	}
}

func TestIdentify_InvalidEmail(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	for _, email := range []string{"not-an-email", "@x.com", "a@nodot"} {
		_, err := Identify(conn, "", email)
		if !errors.Is(err, ErrInvalidEmail) {
			t.Errorf("Identify(%q) error = %v, want ErrInvalidEmail", email, err)
		}
	}
}

func TestNewSubjectID_AvoidsExisting(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	id, err := NewSubjectID(conn, "someone@x.com")
	if err != nil {
		t.Fatalf("NewSubjectID() error = %v", err)
	}
	if len(id) != 8 {
		t.Errorf("Expected 8-digit ID, got %q", id)
	}

	testutil.CreateTestSubject(t, conn, id, "someone@x.com", false)
	next, err := NewSubjectID(conn, "someone@x.com")
	if err != nil {
		t.Fatalf("NewSubjectID() after occupation error = %v", err)
	}
	if next == id {
		t.Error("NewSubjectID() returned an occupied candidate")
	}
}

func TestNewSubjectID_RandomToken(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	id, err := NewSubjectID(conn, "")
	if err != nil {
		t.Fatalf("NewSubjectID() error = %v", err)
	}
	if id == "" {
		t.Error("Expected a non-empty random token")
	}
}

func TestProvision_CreatesWithSecret(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	id, err := Provision(conn, "", "prov@x.com")
	if err != nil {
		t.Fatalf("Provision() error = %v", err)
	}

	subject, err := db.GetSubjectByID(conn, id)
	if err != nil {
		t.Fatalf("GetSubjectByID() error = %v", err)
	}
	if subject == nil {
		t.Fatal("Provisioned subject not found")
	}
	if subject.Secret == nil {
		t.Error("Provision() should issue a fresh secret")
	}
	if subject.Identified {
		t.Error("Provisioned subject should not be identified until it identifies")
	}
}

func TestProvision_RekeysExistingEmail(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	original, err := Provision(conn, "", "rekey@x.com")
	if err != nil {
		t.Fatalf("Provision() error = %v", err)
	}

	rekeyed, err := Provision(conn, "99990000", "rekey@x.com")
	if err != nil {
		t.Fatalf("Rekey Provision() error = %v", err)
	}
	if rekeyed != "99990000" {
		t.Errorf("Expected rekeyed ID 99990000, got %q", rekeyed)
	}

	if s, _ := db.GetSubjectByID(conn, original); s != nil {
		t.Error("Old subject ID should no longer exist after rekey")
	}
	s, err := db.GetSubjectByID(conn, "99990000")
	if err != nil || s == nil {
		t.Fatalf("Rekeyed subject missing: %v", err)
	}
	if s.Email != "rekey@x.com" {
		t.Errorf("Rekeyed row has wrong email %q", s.Email)
	}
}

func TestProvision_RepeatedCallsConverge(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	first, err := Provision(conn, "12121212", "conv@x.com")
	if err != nil {
		t.Fatalf("Provision() error = %v", err)
	}
	second, err := Provision(conn, "12121212", "conv@x.com")
	if err != nil {
		t.Fatalf("Second Provision() error = %v", err)
	}
	if first != second {
		t.Errorf("Repeated provisioning diverged: %q vs %q", first, second)
	}

	n := testutil.CountRows(t, conn, `SELECT COUNT(*) FROM subjects WHERE LOWER(email) = 'conv@x.com'`)
	if n != 1 {
		t.Errorf("Expected exactly one subject row, got %d", n)
	}
}

func TestProvision_TakenSubjectID(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	testutil.CreateTestSubject(t, conn, "55556666", "other@x.com", true)

	_, err := Provision(conn, "55556666", "mine@x.com")
	if err == nil {
		t.Error("Provision() should fail when the requested ID belongs to a different email")
	}
}
