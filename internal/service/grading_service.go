package service

import (
	"encoding/json"
	"time"

	"lms_backend/internal/model"
	"lms_backend/internal/scoring"
	"lms_backend/pkg/logger"
	"lms_backend/pkg/monitoring"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GradingService resolves submitted attempts into scores. It runs inside the
// submit/expire transaction; the caller owns the transaction boundary.
type GradingService struct{}

func NewGradingService() *GradingService {
	return &GradingService{}
}

// GradeAttempt scores the attempt in place and persists it through tx.
// Callable only on SUBMITTED attempts; anything else logs and returns
// without touching the record.
func (s *GradingService) GradeAttempt(tx *gorm.DB, attempt *model.AssessmentAttempt, assessment *model.Assessment, questions []model.Question) error {
	if attempt.Status != model.AttemptSubmitted {
		logger.Log.Warn("grade requested for attempt not in SUBMITTED state",
			zap.String("attemptId", attempt.ID),
			zap.String("status", string(attempt.Status)))
		return nil
	}

	maxScore := 0
	for _, q := range questions {
		maxScore += q.Points
	}
	attempt.MaxScore = &maxScore

	if assessment.GradingType == model.GradingManual {
		attempt.RequiresManualGrading = true
		return tx.Save(attempt).Error
	}

	answers, err := attempt.AnswerMap()
	if err != nil {
		// Unreadable answers blob: every question scores 0 and a human
		// takes a look.
		logger.Log.Error("attempt answers blob is not a valid object",
			zap.String("attemptId", attempt.ID), zap.Error(err))
		attempt.RequiresManualGrading = true
		answers = map[string]json.RawMessage{}
	}

	total, requiresManual := s.scoreQuestions(attempt.ID, questions, answers)
	if requiresManual {
		attempt.RequiresManualGrading = true
	}

	total = total.Round(2)
	attempt.Score = &total
	attempt.IsPassed = passResult(total, maxScore, assessment.PassMarkPercent)

	// AUTO assessments always resolve: a manual-type question or an
	// isolated scoring fault degrades to 0 points, not to a stuck attempt.
	if !attempt.RequiresManualGrading || assessment.GradingType == model.GradingAuto {
		now := time.Now()
		attempt.Status = model.AttemptGraded
		attempt.GradedAt = &now
		attempt.GradedByID = nil
	}

	monitoring.AttemptsGraded.WithLabelValues(
		string(assessment.GradingType),
		boolLabel(attempt.RequiresManualGrading),
	).Inc()

	return tx.Save(attempt).Error
}

// scoreQuestions accumulates the auto-gradable total. A fault in one
// question never aborts the rest; it contributes 0 and flags manual review.
func (s *GradingService) scoreQuestions(attemptID string, questions []model.Question, answers map[string]json.RawMessage) (decimal.Decimal, bool) {
	total := decimal.Zero
	requiresManual := false

	for _, q := range questions {
		if q.QuestionType.ManuallyGraded() {
			requiresManual = true
			continue
		}

		answer, ok := answers[q.ID]
		if !ok {
			continue
		}

		def, err := q.Definition()
		if err != nil {
			s.logFault(attemptID, q.ID, err)
			requiresManual = true
			continue
		}

		score, err := scoring.Score(def, answer)
		if err != nil {
			s.logFault(attemptID, q.ID, err)
			requiresManual = true
			continue
		}
		total = total.Add(score)
	}

	return total, requiresManual
}

func (s *GradingService) logFault(attemptID, questionID string, err error) {
	monitoring.ScoringFaults.Inc()
	logger.Log.Error("scoring fault, question contributes 0",
		zap.String("attemptId", attemptID),
		zap.String("questionId", questionID),
		zap.Error(err))
}

// passResult is nil when pass/fail cannot be determined.
func passResult(score decimal.Decimal, maxScore int, passMarkPercent *int) *bool {
	if maxScore == 0 || passMarkPercent == nil {
		return nil
	}
	threshold := decimal.NewFromInt(int64(*passMarkPercent)).
		Mul(decimal.NewFromInt(int64(maxScore))).
		Div(decimal.NewFromInt(100))
	passed := score.GreaterThanOrEqual(threshold)
	return &passed
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
