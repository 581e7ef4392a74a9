// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/screenstudy/models"
	"github.com/danielhkuo/screenstudy/testutil"
)

func TestIdentify_Endpoint_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	h := NewSubjectHandler(db, cfg)

	testutil.CreateTestSubject(t, db, "11112222", "a@x.com", false)

	req := testutil.MakeRequest("POST", "/api/identify", models.IdentifyRequest{SubjectID: "11112222"}, nil)
	w := httptest.NewRecorder()
	h.Identify(w, req)
	testutil.AssertStatus(t, w, 200)

	var first models.IdentifyResponse
	testutil.DecodeData(t, w, &first)
	if first.AuthToken == "" {
		t.Fatal("Expected an auth token")
	}
	if first.SubjectID != "11112222" {
		t.Errorf("Expected subject_id 11112222, got %q", first.SubjectID)
	}

	req = testutil.MakeRequest("POST", "/api/identify", models.IdentifyRequest{SubjectID: "11112222"}, nil)
	w = httptest.NewRecorder()
	h.Identify(w, req)
	testutil.AssertStatus(t, w, 200)

	var second models.IdentifyResponse
	testutil.DecodeData(t, w, &second)
	if second.AuthToken != first.AuthToken {
		t.Errorf("Identify issued two different tokens: %q vs %q", first.AuthToken, second.AuthToken)
	}
}

func TestIdentify_Endpoint_UnknownID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	h := NewSubjectHandler(db, testutil.GetTestConfig())

	req := testutil.MakeRequest("POST", "/api/identify", models.IdentifyRequest{SubjectID: "00000000"}, nil)
	w := httptest.NewRecorder()
	h.Identify(w, req)
	testutil.AssertStatus(t, w, 400)

	var resp models.ErrorResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Code != models.CodeSubjectNotFound {
		t.Errorf("Expected code %q, got %q", models.CodeSubjectNotFound, resp.Code)
	}
}

func TestIdentify_Endpoint_MissingFields(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	h := NewSubjectHandler(db, testutil.GetTestConfig())

	req := testutil.MakeRequest("POST", "/api/identify", models.IdentifyRequest{}, nil)
	w := httptest.NewRecorder()
	h.Identify(w, req)
	testutil.AssertStatus(t, w, 400)
}

func TestAddSubject_RequiresPrivilegedToken(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	h := NewSubjectHandler(db, cfg)

	body := models.AddSubjectRequest{Email: "a@x.com"}

	// No token
	w := httptest.NewRecorder()
	h.AddSubject(w, testutil.MakeRequest("POST", "/api/add-subject", body, nil))
	testutil.AssertStatus(t, w, 403)
	if w.Body.Len() != 0 {
		t.Errorf("403 must have empty body, got %q", w.Body.String())
	}

	// Wrong token
	w = httptest.NewRecorder()
	h.AddSubject(w, testutil.MakeRequest("POST", "/api/add-subject", body, testutil.AuthHeader("bogus")))
	testutil.AssertStatus(t, w, 403)

	// Admin token
	w = httptest.NewRecorder()
	h.AddSubject(w, testutil.MakeRequest("POST", "/api/add-subject", body, testutil.AuthHeader(cfg.AdminToken)))
	testutil.AssertStatus(t, w, 200)

	var resp models.AddSubjectResponse
	testutil.AssertJSON(t, w, &resp)
	if len(resp.SubjectID) != 8 {
		t.Errorf("Expected 8-digit subject ID, got %q", resp.SubjectID)
	}

	// Provisioning token works too
	w = httptest.NewRecorder()
	h.AddSubject(w, testutil.MakeRequest("POST", "/api/add-subject",
		models.AddSubjectRequest{Email: "b@x.com"}, testutil.AuthHeader(cfg.ProvisionToken)))
	testutil.AssertStatus(t, w, 200)
}

func TestAddSubject_ThenIdentifyReturnsSameToken(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	h := NewSubjectHandler(db, cfg)

	w := httptest.NewRecorder()
	h.AddSubject(w, testutil.MakeRequest("POST", "/api/add-subject",
		models.AddSubjectRequest{Email: "a@x.com"}, testutil.AuthHeader(cfg.AdminToken)))
	testutil.AssertStatus(t, w, 200)

	var added models.AddSubjectResponse
	testutil.AssertJSON(t, w, &added)

	var tokens [2]string
	for i := range tokens {
		w := httptest.NewRecorder()
		h.Identify(w, testutil.MakeRequest("POST", "/api/identify",
			models.IdentifyRequest{SubjectID: added.SubjectID}, nil))
		testutil.AssertStatus(t, w, 200)

		var resp models.IdentifyResponse
		testutil.DecodeData(t, w, &resp)
		tokens[i] = resp.AuthToken
	}

	if tokens[0] == "" || tokens[0] != tokens[1] {
		t.Errorf("Expected identical tokens on repeat identify, got %q and %q", tokens[0], tokens[1])
	}
}

func TestGetSubject_SelfScopeOnly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	h := NewSubjectHandler(db, cfg)

	secretA := testutil.CreateTestSubject(t, db, "11112222", "a@x.com", true)
	testutil.CreateTestSubject(t, db, "33334444", "b@x.com", true)

	// Own record: allowed
	w := httptest.NewRecorder()
	h.GetSubject(w, testutil.MakeRequest("GET", "/api/get-subject?subject_id=11112222", nil, testutil.AuthHeader(secretA)))
	testutil.AssertStatus(t, w, 200)

	var subject models.Subject
	testutil.DecodeData(t, w, &subject)
	if subject.SubjectID != "11112222" {
		t.Errorf("Expected subject 11112222, got %q", subject.SubjectID)
	}

	// Someone else's record: forbidden, empty body
	w = httptest.NewRecorder()
	h.GetSubject(w, testutil.MakeRequest("GET", "/api/get-subject?subject_id=33334444", nil, testutil.AuthHeader(secretA)))
	testutil.AssertStatus(t, w, 403)
	if w.Body.Len() != 0 {
		t.Errorf("403 must have empty body, got %q", w.Body.String())
	}
}

func TestGetSubject_AdminMissingSubjectIsEmptySuccess(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	h := NewSubjectHandler(db, cfg)

	w := httptest.NewRecorder()
	h.GetSubject(w, testutil.MakeRequest("GET", "/api/get-subject?subject_id=00000000", nil, testutil.AuthHeader(cfg.AdminToken)))
	testutil.AssertStatus(t, w, 200)

	var resp map[string]any
	testutil.DecodeData(t, w, &resp)
	if len(resp) != 0 {
		t.Errorf("Expected empty data object, got %v", resp)
	}
}

func TestGetAllSubjects_AdminOnlyWithGroupFilter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	h := NewSubjectHandler(db, cfg)

	testutil.CreateTestSubject(t, db, "11112222", "a@x.com", true)
	testutil.CreateTestSubject(t, db, "33334444", "b@x.com", true)
	testutil.SetTestSubjectGroup(t, db, "33334444", 2)

	// Non-admin rejected
	w := httptest.NewRecorder()
	h.GetAllSubjects(w, testutil.MakeRequest("GET", "/api/get-all-subjects", nil, nil))
	testutil.AssertStatus(t, w, 403)

	// All subjects
	w = httptest.NewRecorder()
	h.GetAllSubjects(w, testutil.MakeRequest("GET", "/api/get-all-subjects", nil, testutil.AuthHeader(cfg.AdminToken)))
	testutil.AssertStatus(t, w, 200)

	var all []models.Subject
	testutil.DecodeData(t, w, &all)
	if len(all) != 2 {
		t.Errorf("Expected 2 subjects, got %d", len(all))
	}

	// Group filter
	w = httptest.NewRecorder()
	h.GetAllSubjects(w, testutil.MakeRequest("GET", "/api/get-all-subjects?group=2", nil, testutil.AuthHeader(cfg.AdminToken)))
	testutil.AssertStatus(t, w, 200)

	var filtered []models.Subject
	testutil.DecodeData(t, w, &filtered)
	if len(filtered) != 1 || filtered[0].SubjectID != "33334444" {
		t.Errorf("Expected only subject 33334444 in group 2, got %v", filtered)
	}
}

func TestSetTestParams_SilentlyIgnoresUnknownSubjects(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	h := NewSubjectHandler(db, cfg)

	testutil.CreateTestSubject(t, db, "11112222", "a@x.com", true)

	batch := []models.TestParamsUpdate{
		{SubjectID: "11112222", TestGroup: 2, TreatmentIntensity: 4, TreatmentLimit: 3600},
		{SubjectID: "00009999", TestGroup: 1, TreatmentIntensity: 1, TreatmentLimit: 60},
	}

	w := httptest.NewRecorder()
	h.SetTestParams(w, testutil.MakeRequest("POST", "/api/set-test-params", batch, testutil.AuthHeader(cfg.AdminToken)))
	testutil.AssertStatus(t, w, 200)

	// Known row updated
	w = httptest.NewRecorder()
	h.GetTestParams(w, testutil.MakeRequest("GET", "/api/get-test-params?subject_id=11112222", nil, testutil.AuthHeader(cfg.AdminToken)))
	testutil.AssertStatus(t, w, 200)

	var params models.TestParamsResponse
	testutil.DecodeData(t, w, &params)
	if params.TestGroup != 2 || params.TreatmentIntensity != 4 || params.TreatmentLimit != 3600 {
		t.Errorf("Known row not updated: %+v", params)
	}

	// Unknown row created nowhere
	n := testutil.CountRows(t, db, `SELECT COUNT(*) FROM subjects WHERE subject_id = '00009999'`)
	if n != 0 {
		t.Error("Unknown subject in batch must not create a row")
	}
}

func TestSetTestParams_AdminOnly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	h := NewSubjectHandler(db, cfg)

	secret := testutil.CreateTestSubject(t, db, "11112222", "a@x.com", true)

	batch := []models.TestParamsUpdate{{SubjectID: "11112222", TestGroup: 1}}

	w := httptest.NewRecorder()
	h.SetTestParams(w, testutil.MakeRequest("POST", "/api/set-test-params", batch, testutil.AuthHeader(secret)))
	testutil.AssertStatus(t, w, 403)
}

func TestGetTestGroup_SubjectSelf(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	h := NewSubjectHandler(db, cfg)

	secret := testutil.CreateTestSubject(t, db, "11112222", "a@x.com", true)
	testutil.SetTestSubjectGroup(t, db, "11112222", 1)

	w := httptest.NewRecorder()
	h.GetTestGroup(w, testutil.MakeRequest("GET", "/api/get-test-group?subject_id=11112222", nil, testutil.AuthHeader(secret)))
	testutil.AssertStatus(t, w, 200)

	var resp models.TestGroupResponse
	testutil.DecodeData(t, w, &resp)
	if resp.TestGroup != 1 {
		t.Errorf("Expected test group 1, got %d", resp.TestGroup)
	}
}
