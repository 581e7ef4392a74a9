// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Error codes returned in 400/500 bodies
const (
	CodeWrongMethod     = "wrong-method"
	CodeMissingField    = "missing-field"
	CodeInvalidEmail    = "invalid-email"
	CodeSubjectNotFound = "subject-not-found"
	CodeInternal        = "internal"
)

// Request types

type IdentifyRequest struct {
	SubjectID string `json:"subject_id,omitempty"`
	Email     string `json:"email,omitempty"`
}

type AddSubjectRequest struct {
	SubjectID string `json:"subject_id,omitempty"`
	Email     string `json:"email"`
}

type SubmitReportRequest struct {
	SubjectID string      `json:"subject_id"`
	Period    string      `json:"period"`
	Day       string      `json:"day"`
	Reports   []RawReport `json:"reports"`
}

// RawReport is a single application's usage within a submit-report batch.
type RawReport struct {
	ApplicationName string `json:"application_name"`
	Usage           int    `json:"usage"`
}

// SubmitUsageRequest carries a date string -> seconds map.
type SubmitUsageRequest struct {
	SubjectID string         `json:"subject_id"`
	Usage     map[string]int `json:"usage"`
}

// TestParamsUpdate is one element of a set-test-params batch. The wire
// format is a 4-element array: [subject_id, group, intensity, limit].
type TestParamsUpdate struct {
	SubjectID          string
	TestGroup          int
	TreatmentIntensity int
	TreatmentLimit     int
}

func (u *TestParamsUpdate) UnmarshalJSON(data []byte) error {
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 4 {
		return fmt.Errorf("test params entry must have 4 elements, got %d", len(raw))
	}
	id, ok := raw[0].(string)
	if !ok || id == "" {
		return fmt.Errorf("test params entry missing subject_id")
	}
	u.SubjectID = id
	ints := [3]*int{&u.TestGroup, &u.TreatmentIntensity, &u.TreatmentLimit}
	for i, dst := range ints {
		v, ok := raw[i+1].(float64)
		if !ok {
			return fmt.Errorf("test params entry element %d is not a number", i+1)
		}
		*dst = int(v)
	}
	return nil
}

func (u TestParamsUpdate) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{u.SubjectID, u.TestGroup, u.TreatmentIntensity, u.TreatmentLimit})
}

// CrashReportEnvelope is the part of an ACRA-style crash payload the server
// inspects. Everything else in the payload is stored verbatim.
type CrashReportEnvelope struct {
	SubjectID string `json:"subject_id,omitempty"`
}

// Response types

type DataResponse struct {
	Data any `json:"data"`
}

type IdentifyResponse struct {
	AuthToken string `json:"auth_token"`
	SubjectID string `json:"subject_id"`
}

type AddSubjectResponse struct {
	SubjectID string `json:"subject_id"`
}

type TestParamsResponse struct {
	TestGroup          int `json:"test_group"`
	TreatmentIntensity int `json:"treatment_intensity"`
	TreatmentLimit     int `json:"treatment_limit"`
}

type TestGroupResponse struct {
	TestGroup int `json:"test_group"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// Domain types

type Subject struct {
	SubjectID          string    `json:"subject_id"`
	Email              string    `json:"email"`
	Secret             *string   `json:"-"` // Never expose in JSON
	TestGroup          int       `json:"test_group"`
	TreatmentIntensity int       `json:"treatment_intensity"`
	TreatmentLimit     int       `json:"treatment_limit"`
	Identified         bool      `json:"identified"`
	CreatedAt          time.Time `json:"created_at"`
}

type Report struct {
	SubjectID       string `json:"subject_id"`
	ApplicationName string `json:"application_name"`
	Period          string `json:"period"`
	Day             string `json:"day"`
	Usage           int    `json:"usage"`
}

type UsageEntry struct {
	SubjectID    string `json:"subject_id"`
	DateReported string `json:"date_reported"`
	UsageSeconds int    `json:"usage_seconds"`
}

type UsageSummary struct {
	SubjectID    string `json:"subject_id"`
	DaysReported int    `json:"days_reported"`
	TotalSeconds int    `json:"total_seconds"`
}

type CrashReport struct {
	ID        string    `json:"id"`
	SubjectID *string   `json:"subject_id,omitempty"`
	Report    string    `json:"report"`
	CreatedAt time.Time `json:"created_at"`
}

// StudyDates holds the phase dates for one test group. Per-subject dates are
// the join from the subject's assigned group.
type StudyDates struct {
	TestGroup      int    `json:"test_group"`
	BaselineStart  string `json:"baseline_start"`
	TreatmentStart string `json:"treatment_start"`
	TreatmentEnd   string `json:"treatment_end"`
	FinalSurvey    string `json:"final_survey"`
}
