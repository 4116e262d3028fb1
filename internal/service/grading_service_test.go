package service

import (
	"testing"
	"time"

	"lms_backend/internal/model"
	"lms_backend/internal/scoring"

	"github.com/shopspring/decimal"
)

func (f *fixture) seedSubmitted(t *testing.T, a *model.Assessment, userID uint, answers map[string]interface{}) *model.AssessmentAttempt {
	t.Helper()
	end := time.Now()
	attempt := &model.AssessmentAttempt{
		AssessmentID: a.ID,
		UserID:       userID,
		Status:       model.AttemptSubmitted,
		StartTime:    end.Add(-10 * time.Minute),
		EndTime:      &end,
		Answers:      answersJSON(t, answers),
	}
	if err := f.db.Create(attempt).Error; err != nil {
		t.Fatalf("seed submitted attempt: %v", err)
	}
	return attempt
}

func (f *fixture) grade(t *testing.T, a *model.Assessment, attempt *model.AssessmentAttempt) {
	t.Helper()
	questions, err := f.assessmentRepo.ListQuestions(a.ID)
	if err != nil {
		t.Fatalf("list questions: %v", err)
	}
	if err := f.grading.GradeAttempt(f.db, attempt, a, questions); err != nil {
		t.Fatalf("grade: %v", err)
	}
}

// An AUTO assessment with an essay question still resolves to GRADED: the
// essay contributes 0 and the manual flag is recorded for the instructor.
func TestGradeAttempt_AutoResolvesDespiteEssay(t *testing.T) {
	f := newFixture(t)
	course := f.createCourse(t)
	learner := f.createLearner(t, "a@example.com")
	a := f.createAssessment(t, course.ID, assessmentOpts{gradingType: model.GradingAuto})
	f.addQuestion(t, a.ID, scoring.Essay, 20, 1, `{}`)
	q2 := f.addQuestion(t, a.ID, scoring.MultipleChoice, 10, 2, mcThreeOptions)

	attempt := f.seedSubmitted(t, a, learner.ID, map[string]interface{}{
		q2.ID: []string{"a"},
	})
	f.grade(t, a, attempt)

	if attempt.Status != model.AttemptGraded {
		t.Errorf("status = %s, want GRADED", attempt.Status)
	}
	if attempt.Score.String() != "10" {
		t.Errorf("score = %s, want 10", attempt.Score)
	}
	if *attempt.MaxScore != 30 {
		t.Errorf("maxScore = %d, want 30", *attempt.MaxScore)
	}
	if !attempt.RequiresManualGrading {
		t.Errorf("essay must flag manual review")
	}
	if attempt.GradedByID != nil {
		t.Errorf("auto path must leave gradedBy empty")
	}
}

func TestGradeAttempt_HybridEssayStaysSubmitted(t *testing.T) {
	f := newFixture(t)
	course := f.createCourse(t)
	learner := f.createLearner(t, "a@example.com")
	a := f.createAssessment(t, course.ID, assessmentOpts{gradingType: model.GradingHybrid})
	f.addQuestion(t, a.ID, scoring.Essay, 20, 1, `{}`)
	q2 := f.addQuestion(t, a.ID, scoring.MultipleChoice, 10, 2, mcThreeOptions)

	attempt := f.seedSubmitted(t, a, learner.ID, map[string]interface{}{
		q2.ID: []string{"a"},
	})
	f.grade(t, a, attempt)

	if attempt.Status != model.AttemptSubmitted {
		t.Errorf("status = %s, want SUBMITTED pending review", attempt.Status)
	}
	if attempt.Score.String() != "10" {
		t.Errorf("partial auto score = %s, want 10", attempt.Score)
	}
	if attempt.GradedAt != nil {
		t.Errorf("pending attempt must not carry gradedAt")
	}
}

func TestGradeAttempt_ManualTypeSkipsScoring(t *testing.T) {
	f := newFixture(t)
	course := f.createCourse(t)
	learner := f.createLearner(t, "a@example.com")
	a := f.createAssessment(t, course.ID, assessmentOpts{gradingType: model.GradingManual})
	f.addQuestion(t, a.ID, scoring.MultipleChoice, 10, 1, mcThreeOptions)

	attempt := f.seedSubmitted(t, a, learner.ID, map[string]interface{}{})
	f.grade(t, a, attempt)

	if attempt.Status != model.AttemptSubmitted {
		t.Errorf("status = %s, want SUBMITTED", attempt.Status)
	}
	if attempt.Score != nil {
		t.Errorf("manual grading type must not auto-score, got %v", attempt.Score)
	}
	if !attempt.RequiresManualGrading {
		t.Errorf("manual grading type must be flagged")
	}
	if *attempt.MaxScore != 10 {
		t.Errorf("maxScore snapshot = %d, want 10", *attempt.MaxScore)
	}
}

// A malformed question definition must not abort the rest of the attempt.
func TestGradeAttempt_FaultIsolation(t *testing.T) {
	f := newFixture(t)
	course := f.createCourse(t)
	learner := f.createLearner(t, "a@example.com")
	a := f.createAssessment(t, course.ID, assessmentOpts{gradingType: model.GradingAuto})
	// legacy true/false row without a correct_answer
	broken := f.addQuestion(t, a.ID, scoring.TrueFalse, 5, 1, `{}`)
	good := f.addQuestion(t, a.ID, scoring.MultipleChoice, 10, 2, mcThreeOptions)

	attempt := f.seedSubmitted(t, a, learner.ID, map[string]interface{}{
		broken.ID: true,
		good.ID:   []string{"a"},
	})
	f.grade(t, a, attempt)

	if attempt.Status != model.AttemptGraded {
		t.Errorf("status = %s, want GRADED", attempt.Status)
	}
	if attempt.Score.String() != "10" {
		t.Errorf("score = %s, want 10 (broken question contributes 0)", attempt.Score)
	}
	if !attempt.RequiresManualGrading {
		t.Errorf("scoring fault must flag manual review")
	}
}

func TestGradeAttempt_MissingAnswersScoreZero(t *testing.T) {
	f := newFixture(t)
	course := f.createCourse(t)
	learner := f.createLearner(t, "a@example.com")
	a := f.createAssessment(t, course.ID, assessmentOpts{gradingType: model.GradingAuto, passMark: intPtr(50)})
	f.addQuestion(t, a.ID, scoring.MultipleChoice, 10, 1, mcThreeOptions)
	f.addQuestion(t, a.ID, scoring.TrueFalse, 5, 2, `{"correct_answer":true}`)

	attempt := f.seedSubmitted(t, a, learner.ID, map[string]interface{}{})
	f.grade(t, a, attempt)

	if attempt.Status != model.AttemptGraded {
		t.Errorf("status = %s, want GRADED", attempt.Status)
	}
	if !attempt.Score.IsZero() {
		t.Errorf("score = %s, want 0", attempt.Score)
	}
	if attempt.IsPassed == nil || *attempt.IsPassed {
		t.Errorf("0/15 with pass mark 50 must fail")
	}
	if attempt.RequiresManualGrading {
		t.Errorf("missing answers are not a fault")
	}
}

func TestGradeAttempt_PassFailUndetermined(t *testing.T) {
	f := newFixture(t)
	course := f.createCourse(t)
	learner := f.createLearner(t, "a@example.com")

	t.Run("no pass mark configured", func(t *testing.T) {
		a := f.createAssessment(t, course.ID, assessmentOpts{gradingType: model.GradingAuto})
		q := f.addQuestion(t, a.ID, scoring.MultipleChoice, 10, 1, mcThreeOptions)
		attempt := f.seedSubmitted(t, a, learner.ID, map[string]interface{}{q.ID: "a"})
		f.grade(t, a, attempt)
		if attempt.IsPassed != nil {
			t.Errorf("isPassed = %v, want nil without a pass mark", attempt.IsPassed)
		}
	})

	t.Run("zero max score", func(t *testing.T) {
		a := f.createAssessment(t, course.ID, assessmentOpts{gradingType: model.GradingAuto, passMark: intPtr(50)})
		attempt := f.seedSubmitted(t, a, learner.ID, map[string]interface{}{})
		f.grade(t, a, attempt)
		if attempt.IsPassed != nil {
			t.Errorf("isPassed = %v, want nil when max score is 0", attempt.IsPassed)
		}
	})
}

func TestGradeAttempt_NonSubmittedIsNoop(t *testing.T) {
	f := newFixture(t)
	course := f.createCourse(t)
	learner := f.createLearner(t, "a@example.com")
	a := f.createAssessment(t, course.ID, assessmentOpts{gradingType: model.GradingAuto})
	f.addQuestion(t, a.ID, scoring.MultipleChoice, 10, 1, mcThreeOptions)

	attempt := &model.AssessmentAttempt{
		AssessmentID: a.ID,
		UserID:       learner.ID,
		Status:       model.AttemptInProgress,
		StartTime:    time.Now(),
	}
	if err := f.db.Create(attempt).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	f.grade(t, a, attempt)

	if attempt.Score != nil || attempt.Status != model.AttemptInProgress {
		t.Errorf("grading a non-submitted attempt must not change it")
	}
}

// Score stays within [0, max_score] even with partial credit in the mix.
func TestGradeAttempt_ScoreBounds(t *testing.T) {
	f := newFixture(t)
	course := f.createCourse(t)
	learner := f.createLearner(t, "a@example.com")
	a := f.createAssessment(t, course.ID, assessmentOpts{gradingType: model.GradingAuto})
	q1 := f.addQuestion(t, a.ID, scoring.Matching, 10, 1, `{
		"prompts":[{"id":"p1","text":"a"},{"id":"p2","text":"b"},{"id":"p3","text":"c"}],
		"matches":[{"id":"m1","text":"x"},{"id":"m2","text":"y"},{"id":"m3","text":"z"}],
		"correct_pairs":[
			{"prompt_id":"p1","match_id":"m1"},
			{"prompt_id":"p2","match_id":"m2"},
			{"prompt_id":"p3","match_id":"m3"}
		]
	}`)
	q2 := f.addQuestion(t, a.ID, scoring.TrueFalse, 5, 2, `{"correct_answer":false}`)

	attempt := f.seedSubmitted(t, a, learner.ID, map[string]interface{}{
		q1.ID: []map[string]string{
			{"prompt_id": "p1", "selected_match_id": "m1"},
			{"prompt_id": "p2", "selected_match_id": "m2"},
		},
		q2.ID: false,
	})
	f.grade(t, a, attempt)

	max := decimal.NewFromInt(int64(*attempt.MaxScore))
	if attempt.Score.IsNegative() || attempt.Score.GreaterThan(max) {
		t.Fatalf("score %s outside [0, %s]", attempt.Score, max)
	}
	// 2 of 3 pairs at 10 points is 6.67, plus the 5-point true/false
	if attempt.Score.String() != "11.67" {
		t.Errorf("score = %s, want 11.67", attempt.Score)
	}
}
