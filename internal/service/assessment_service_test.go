package service

import (
	"encoding/json"
	"strings"
	"testing"

	"lms_backend/internal/model"
	"lms_backend/internal/scoring"
)

func TestAssessmentRequestValidation(t *testing.T) {
	f := newFixture(t)
	course := f.createCourse(t)

	base := func() AssessmentRequest {
		return AssessmentRequest{CourseID: course.ID, Title: "Quiz"}
	}

	t.Run("defaults grading type to auto", func(t *testing.T) {
		a, err := f.assessments.Create(base())
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if a.GradingType != model.GradingAuto {
			t.Errorf("gradingType = %s, want AUTO", a.GradingType)
		}
		if !a.ShowResultsImmediately {
			t.Errorf("showResultsImmediately must default to true")
		}
	})

	t.Run("rejects bad values", func(t *testing.T) {
		bad := base()
		bad.GradingType = "WEEKLY"
		if _, err := f.assessments.Create(bad); err == nil {
			t.Errorf("unknown grading type must be rejected")
		}

		bad = base()
		bad.PassMarkPercent = intPtr(101)
		if _, err := f.assessments.Create(bad); err == nil {
			t.Errorf("pass mark over 100 must be rejected")
		}

		bad = base()
		bad.MaxAttempts = -1
		if _, err := f.assessments.Create(bad); err == nil {
			t.Errorf("negative max attempts must be rejected")
		}
	})
}

func TestAddQuestion_ValidatesDefinition(t *testing.T) {
	f := newFixture(t)
	course := f.createCourse(t)
	a := f.createAssessment(t, course.ID, assessmentOpts{})

	tests := []struct {
		name    string
		qtype   scoring.QuestionType
		points  int
		data    string
		wantErr bool
	}{
		{"valid multiple choice", scoring.MultipleChoice, 10, mcThreeOptions, false},
		{"no correct option", scoring.MultipleChoice, 10,
			`{"options":[{"id":"a","text":"x"},{"id":"b","text":"y"}]}`, true},
		{"single option", scoring.MultipleChoice, 10,
			`{"options":[{"id":"a","text":"x","is_correct":true}]}`, true},
		{"true false without answer", scoring.TrueFalse, 5, `{}`, true},
		{"zero points", scoring.TrueFalse, 0, `{"correct_answer":true}`, true},
		{"dangling pair reference", scoring.Matching, 10, `{
			"prompts":[{"id":"p1","text":"a"}],
			"matches":[{"id":"m1","text":"x"}],
			"correct_pairs":[{"prompt_id":"p1","match_id":"nope"}]
		}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := QuestionRequest{
				QuestionText:     "Q",
				QuestionType:     tt.qtype,
				Points:           tt.points,
				TypeSpecificData: json.RawMessage(tt.data),
			}
			_, err := f.assessments.AddQuestion(a.ID, req)
			if tt.wantErr && err == nil {
				t.Errorf("want validation error, got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestGet_StripsAnswerKeyForLearners(t *testing.T) {
	f := newFixture(t)
	course := f.createCourse(t)
	a := f.createAssessment(t, course.ID, assessmentOpts{})
	f.addQuestion(t, a.ID, scoring.MultipleChoice, 10, 1, mcThreeOptions)
	f.addQuestion(t, a.ID, scoring.TrueFalse, 5, 2, `{"correct_answer":true}`)
	f.addQuestion(t, a.ID, scoring.FillBlanks, 4, 3,
		`{"text":"2+2={{b1}}","blanks":{"b1":{"correct":["4"]}}}`)

	sanitized, err := f.assessments.Get(a.ID, false)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(sanitized.Questions) != 3 {
		t.Fatalf("questions = %d, want 3", len(sanitized.Questions))
	}
	for _, q := range sanitized.Questions {
		payload := string(q.TypeSpecificData)
		for _, leak := range []string{"is_correct", "correct_answer", "\"correct\":"} {
			if strings.Contains(payload, leak) {
				t.Errorf("%s payload leaks %q: %s", q.QuestionType, leak, payload)
			}
		}
	}

	full, err := f.assessments.Get(a.ID, true)
	if err != nil {
		t.Fatalf("get with answers: %v", err)
	}
	found := false
	for _, q := range full.Questions {
		if strings.Contains(string(q.TypeSpecificData), "is_correct") {
			found = true
		}
	}
	if !found {
		t.Errorf("instructor view must keep the answer key")
	}
}
