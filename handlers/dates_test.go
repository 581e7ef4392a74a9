// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/screenstudy/models"
	"github.com/danielhkuo/screenstudy/testutil"
)

func TestGetDates_SubjectSeesOwnGroupDates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	h := NewDatesHandler(db, cfg)

	secret := testutil.CreateTestSubject(t, db, "11112222", "a@x.com", true)
	testutil.SetTestSubjectGroup(t, db, "11112222", 1)
	testutil.AddTestStudyDates(t, db, 1)

	w := httptest.NewRecorder()
	h.GetDates(w, testutil.MakeRequest("GET", "/api/get-dates?subject_id=11112222", nil, testutil.AuthHeader(secret)))
	testutil.AssertStatus(t, w, 200)

	var dates models.StudyDates
	testutil.DecodeData(t, w, &dates)
	if dates.TestGroup != 1 {
		t.Errorf("Expected test group 1, got %d", dates.TestGroup)
	}
	if dates.BaselineStart == "" || dates.FinalSurvey == "" {
		t.Errorf("Expected populated phase dates, got %+v", dates)
	}
}

func TestGetDates_NoDatesForGroupIsEmptySuccess(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	h := NewDatesHandler(db, cfg)

	secret := testutil.CreateTestSubject(t, db, "11112222", "a@x.com", true)

	w := httptest.NewRecorder()
	h.GetDates(w, testutil.MakeRequest("GET", "/api/get-dates?subject_id=11112222", nil, testutil.AuthHeader(secret)))
	testutil.AssertStatus(t, w, 200)

	var resp map[string]any
	testutil.DecodeData(t, w, &resp)
	if len(resp) != 0 {
		t.Errorf("Expected empty data object, got %v", resp)
	}
}

func TestGetDates_OtherSubjectForbidden(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	h := NewDatesHandler(db, testutil.GetTestConfig())

	testutil.CreateTestSubject(t, db, "11112222", "a@x.com", true)
	secretB := testutil.CreateTestSubject(t, db, "33334444", "b@x.com", true)

	w := httptest.NewRecorder()
	h.GetDates(w, testutil.MakeRequest("GET", "/api/get-dates?subject_id=11112222", nil, testutil.AuthHeader(secretB)))
	testutil.AssertStatus(t, w, 403)
}

func TestGetAllDates_AdminOnly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	h := NewDatesHandler(db, cfg)

	testutil.AddTestStudyDates(t, db, 1)
	testutil.AddTestStudyDates(t, db, 2)

	w := httptest.NewRecorder()
	h.GetAllDates(w, testutil.MakeRequest("GET", "/api/get-all-dates", nil, nil))
	testutil.AssertStatus(t, w, 403)

	w = httptest.NewRecorder()
	h.GetAllDates(w, testutil.MakeRequest("GET", "/api/get-all-dates", nil, testutil.AuthHeader(cfg.AdminToken)))
	testutil.AssertStatus(t, w, 200)

	var all []models.StudyDates
	testutil.DecodeData(t, w, &all)
	if len(all) != 2 {
		t.Errorf("Expected dates for 2 groups, got %d", len(all))
	}
}
