package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"lms_backend/pkg/monitoring"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AttemptService owns the attempt lifecycle: IN_PROGRESS -> SUBMITTED ->
// GRADED, with auto-expiry firing only out of IN_PROGRESS. All multi-step
// transitions run in a single transaction; skill updates and notifications
// happen after commit.
type AttemptService struct {
	AttemptRepo    *repository.AttemptRepository
	AssessmentRepo *repository.AssessmentRepository
	Enrollments    *EnrollmentService
	Grading        *GradingService
	Skills         *SkillService
	Notifications  *NotificationService
	Drafts         *repository.DraftRepository
	DB             *gorm.DB
}

func NewAttemptService(
	attemptRepo *repository.AttemptRepository,
	assessmentRepo *repository.AssessmentRepository,
	enrollments *EnrollmentService,
	grading *GradingService,
	skills *SkillService,
	notifications *NotificationService,
	drafts *repository.DraftRepository,
	db *gorm.DB,
) *AttemptService {
	return &AttemptService{
		AttemptRepo:    attemptRepo,
		AssessmentRepo: assessmentRepo,
		Enrollments:    enrollments,
		Grading:        grading,
		Skills:         skills,
		Notifications:  notifications,
		Drafts:         drafts,
		DB:             db,
	}
}

// Start opens a new attempt. When an in-progress attempt already exists and
// is still within its deadline, it is returned alongside ErrAttemptInProgress
// so the caller can resume it. A stale in-progress attempt is force-submitted
// first, then the attempt cap is re-checked, all inside one transaction so a
// concurrent Start cannot slip past max_attempts.
func (s *AttemptService) Start(ctx context.Context, userID uint, assessmentID string) (*model.AssessmentAttempt, error) {
	assessment, err := s.AssessmentRepo.FindByID(assessmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAssessmentNotFound
		}
		return nil, err
	}

	now := time.Now()
	if !assessment.IsPublished {
		return nil, util.ErrAssessmentUnpublish
	}
	if assessment.DueDate != nil && now.After(*assessment.DueDate) {
		return nil, util.ErrPastDue
	}

	enrolled, err := s.Enrollments.HasActiveEnrollment(userID, assessment.CourseID)
	if err != nil {
		return nil, err
	}
	if !enrolled {
		return nil, util.ErrNotEnrolled
	}

	var created, conflict, expired *model.AssessmentAttempt
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var existing model.AssessmentAttempt
		findErr := tx.Where("user_id = ? AND assessment_id = ? AND status = ?",
			userID, assessmentID, model.AttemptInProgress).First(&existing).Error
		switch {
		case findErr == nil:
			deadline := attemptDeadline(assessment, &existing)
			if deadline == nil || now.Before(*deadline) {
				conflict = &existing
				return nil
			}
			if err := s.expireInTx(ctx, tx, &existing, assessment, *deadline); err != nil {
				return err
			}
			expired = &existing
		case !errors.Is(findErr, gorm.ErrRecordNotFound):
			return findErr
		}

		var count int64
		if err := tx.Model(&model.AssessmentAttempt{}).
			Where("user_id = ? AND assessment_id = ?", userID, assessmentID).
			Count(&count).Error; err != nil {
			return err
		}
		if assessment.MaxAttempts > 0 && count >= int64(assessment.MaxAttempts) {
			return util.ErrAttemptsExhausted
		}

		attempt := &model.AssessmentAttempt{
			AssessmentID: assessmentID,
			UserID:       userID,
			Status:       model.AttemptInProgress,
			StartTime:    now,
		}
		if err := tx.Create(attempt).Error; err != nil {
			return err
		}
		created = attempt
		return nil
	})
	if err != nil {
		// A rolled-back transaction includes any embedded expiry, so no
		// side effects fan out here.
		return nil, err
	}

	if expired != nil {
		s.afterFinalize(ctx, expired)
	}
	if conflict != nil {
		return conflict, util.ErrAttemptInProgress
	}
	return created, nil
}

// Submit is the single write path for answers. The guarded update inside
// finalize makes concurrent submits safe: the loser gets ErrInvalidState and
// never re-grades.
func (s *AttemptService) Submit(ctx context.Context, userID uint, attemptID string, answers json.RawMessage) (*model.AssessmentAttempt, error) {
	attempt, err := s.AttemptRepo.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, util.ErrNotAttemptOwner
	}
	if attempt.Status != model.AttemptInProgress {
		return nil, util.ErrInvalidState
	}

	answers, err = normalizeAnswers(answers)
	if err != nil {
		return nil, util.ErrMalformedAnswers
	}

	assessment, questions, err := s.loadAssessmentAndQuestions(attempt.AssessmentID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		return s.finalize(tx, attempt, assessment, questions, answers, now)
	})
	if err != nil {
		return nil, err
	}

	s.afterFinalize(ctx, attempt)
	return attempt, nil
}

// Expire force-submits an overdue in-progress attempt. The end time is
// clamped to the deadline, not to now, and the answers come from the
// client-side draft; no draft means every question scores 0.
func (s *AttemptService) Expire(ctx context.Context, attemptID string) error {
	attempt, err := s.AttemptRepo.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrAttemptNotFound
		}
		return err
	}
	if attempt.Status != model.AttemptInProgress {
		return nil
	}

	assessment, err := s.AssessmentRepo.FindByID(attempt.AssessmentID)
	if err != nil {
		return err
	}
	deadline := attemptDeadline(assessment, attempt)
	if deadline == nil || time.Now().Before(*deadline) {
		return nil
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		return s.expireInTx(ctx, tx, attempt, assessment, *deadline)
	})
	if err != nil {
		return err
	}

	s.afterFinalize(ctx, attempt)
	return nil
}

// ExpireOverdue is the background sweep entry point.
func (s *AttemptService) ExpireOverdue(ctx context.Context) error {
	candidates, err := s.AttemptRepo.ListExpiryCandidates(time.Now(), 200)
	if err != nil {
		return err
	}
	for i := range candidates {
		if err := s.Expire(ctx, candidates[i].ID); err != nil {
			if errors.Is(err, util.ErrInvalidState) || errors.Is(err, util.ErrAlreadySubmitted) {
				continue
			}
			logger.Log.Error("failed to expire attempt",
				zap.String("attemptId", candidates[i].ID),
				zap.Error(err))
		}
	}
	return nil
}

type ManualGradeRequest struct {
	Score          *decimal.Decimal           `json:"score"`
	Feedback       string                     `json:"feedback"`
	QuestionScores map[string]decimal.Decimal `json:"questionScores,omitempty"`
}

// ManualGrade overrides an attempt's result. Re-grading a GRADED attempt is
// allowed; grading an IN_PROGRESS one never is. All validation happens
// before any mutation.
func (s *AttemptService) ManualGrade(ctx context.Context, graderID uint, attemptID string, req ManualGradeRequest) (*model.AssessmentAttempt, error) {
	attempt, err := s.AttemptRepo.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	if attempt.Status == model.AttemptInProgress {
		return nil, util.ErrInvalidState
	}

	assessment, questions, err := s.loadAssessmentAndQuestions(attempt.AssessmentID)
	if err != nil {
		return nil, err
	}

	score, err := resolveManualScore(req, questions)
	if err != nil {
		return nil, err
	}

	maxScore := 0
	if attempt.MaxScore != nil {
		maxScore = *attempt.MaxScore
	} else {
		for _, q := range questions {
			maxScore += q.Points
		}
		attempt.MaxScore = &maxScore
	}
	if score.IsNegative() || score.GreaterThan(decimal.NewFromInt(int64(maxScore))) {
		return nil, util.ErrScoreOutOfRange
	}

	now := time.Now()
	attempt.Score = &score
	attempt.IsPassed = passResult(score, maxScore, assessment.PassMarkPercent)
	attempt.Status = model.AttemptGraded
	attempt.GradedByID = &graderID
	attempt.GradedAt = &now
	attempt.Feedback = req.Feedback

	if err := s.AttemptRepo.Update(attempt); err != nil {
		return nil, err
	}

	s.afterFinalize(ctx, attempt)
	return attempt, nil
}

// resolveManualScore validates the request and returns the 2-decimal score.
// Per-question scores, when present, must stay within each question's points
// and take precedence over the aggregate.
func resolveManualScore(req ManualGradeRequest, questions []model.Question) (decimal.Decimal, error) {
	if len(req.QuestionScores) > 0 {
		byID := make(map[string]model.Question, len(questions))
		for _, q := range questions {
			byID[q.ID] = q
		}
		total := decimal.Zero
		for qid, qs := range req.QuestionScores {
			q, ok := byID[qid]
			if !ok {
				return decimal.Zero, util.ErrQuestionNotFound
			}
			if qs.IsNegative() || qs.GreaterThan(decimal.NewFromInt(int64(q.Points))) {
				return decimal.Zero, util.ErrScoreOutOfRange
			}
			total = total.Add(qs)
		}
		return total.Round(2), nil
	}
	if req.Score == nil {
		return decimal.Zero, util.ErrScoreOutOfRange
	}
	return req.Score.Round(2), nil
}

// GetResult returns the attempt with result fields withheld from learners
// when the assessment defers result release and grading has not finished.
// Instructors and admins always see everything.
func (s *AttemptService) GetResult(userID uint, role model.UserRole, attemptID string) (*model.AssessmentAttempt, error) {
	attempt, err := s.AttemptRepo.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}

	if role == model.Instructor || role == model.Admin {
		return attempt, nil
	}
	if attempt.UserID != userID {
		return nil, util.ErrNotAttemptOwner
	}

	assessment, err := s.AssessmentRepo.FindByID(attempt.AssessmentID)
	if err != nil {
		return nil, err
	}
	if !assessment.ShowResultsImmediately && attempt.Status != model.AttemptGraded {
		withheld := *attempt
		withheld.Score = nil
		withheld.IsPassed = nil
		withheld.Feedback = ""
		return &withheld, nil
	}
	return attempt, nil
}

func (s *AttemptService) ListForUser(userID uint, assessmentID string) ([]model.AssessmentAttempt, error) {
	return s.AttemptRepo.ListByUserAndAssessment(userID, assessmentID)
}

func (s *AttemptService) ListPendingManual(assessmentID string) ([]model.AssessmentAttempt, error) {
	return s.AttemptRepo.ListPendingManual(assessmentID)
}

// SaveDraft stores in-flight answers so the expiry path can recover them.
func (s *AttemptService) SaveDraft(ctx context.Context, userID uint, attemptID string, answers json.RawMessage) error {
	attempt, err := s.AttemptRepo.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrAttemptNotFound
		}
		return err
	}
	if attempt.UserID != userID {
		return util.ErrNotAttemptOwner
	}
	if attempt.Status != model.AttemptInProgress {
		return util.ErrInvalidState
	}
	answers, err = normalizeAnswers(answers)
	if err != nil {
		return util.ErrMalformedAnswers
	}
	if s.Drafts == nil {
		return nil
	}
	return s.Drafts.Save(ctx, attemptID, answers)
}

// finalize is the shared submit/expire tail: claim the attempt with a guarded
// update, record the answers, and grade. Only the claiming caller proceeds.
func (s *AttemptService) finalize(tx *gorm.DB, attempt *model.AssessmentAttempt, assessment *model.Assessment, questions []model.Question, answers json.RawMessage, endTime time.Time) error {
	claimed, err := s.AttemptRepo.ClaimForSubmission(tx, attempt.ID, endTime)
	if err != nil {
		return err
	}
	if !claimed {
		return util.ErrInvalidState
	}

	attempt.Status = model.AttemptSubmitted
	attempt.EndTime = &endTime
	attempt.Answers = answers

	return s.Grading.GradeAttempt(tx, attempt, assessment, questions)
}

func (s *AttemptService) expireInTx(ctx context.Context, tx *gorm.DB, attempt *model.AssessmentAttempt, assessment *model.Assessment, deadline time.Time) error {
	var questions []model.Question
	if err := tx.Where("assessment_id = ?", assessment.ID).
		Order("display_order ASC").Find(&questions).Error; err != nil {
		return err
	}
	answers := s.draftAnswers(ctx, attempt.ID)
	if err := s.finalize(tx, attempt, assessment, questions, answers, deadline); err != nil {
		return err
	}
	monitoring.AttemptsExpired.Inc()
	return nil
}

// draftAnswers never fails: an unreachable draft store degrades to the empty
// mapping, same as a client that never saved one.
func (s *AttemptService) draftAnswers(ctx context.Context, attemptID string) json.RawMessage {
	empty := json.RawMessage(`{}`)
	if s.Drafts == nil {
		return empty
	}
	draft, err := s.Drafts.Get(ctx, attemptID)
	if err != nil {
		logger.Log.Warn("draft lookup failed, expiring with empty answers",
			zap.String("attemptId", attemptID), zap.Error(err))
		return empty
	}
	if draft == nil {
		return empty
	}
	if normalized, err := normalizeAnswers(draft); err == nil {
		return normalized
	}
	logger.Log.Warn("stored draft is malformed, expiring with empty answers",
		zap.String("attemptId", attemptID))
	return empty
}

// afterFinalize fans out the post-commit side effects. Failures here are
// logged and never surface to the lifecycle caller.
func (s *AttemptService) afterFinalize(ctx context.Context, attempt *model.AssessmentAttempt) {
	if s.Drafts != nil {
		if err := s.Drafts.Delete(ctx, attempt.ID); err != nil {
			logger.Log.Warn("failed to drop draft", zap.String("attemptId", attempt.ID), zap.Error(err))
		}
	}
	if s.Notifications != nil {
		s.Notifications.NotifySubmission(ctx, attempt)
	}
	if attempt.Status != model.AttemptGraded {
		return
	}
	if s.Skills != nil {
		if err := s.Skills.UpdateFromAttempt(attempt); err != nil {
			logger.Log.Error("skill proficiency update failed",
				zap.String("attemptId", attempt.ID), zap.Error(err))
		}
	}
	if s.Notifications != nil {
		s.Notifications.NotifyGraded(ctx, attempt)
	}
}

func (s *AttemptService) loadAssessmentAndQuestions(assessmentID string) (*model.Assessment, []model.Question, error) {
	assessment, err := s.AssessmentRepo.FindByID(assessmentID)
	if err != nil {
		return nil, nil, err
	}
	questions, err := s.AssessmentRepo.ListQuestions(assessmentID)
	if err != nil {
		return nil, nil, err
	}
	return assessment, questions, nil
}

// attemptDeadline returns the earliest of start+time_limit and the due date,
// nil when the attempt can run forever.
func attemptDeadline(a *model.Assessment, attempt *model.AssessmentAttempt) *time.Time {
	var deadline *time.Time
	if a.TimeLimitMinutes > 0 {
		t := attempt.StartTime.Add(time.Duration(a.TimeLimitMinutes) * time.Minute)
		deadline = &t
	}
	if a.DueDate != nil && (deadline == nil || a.DueDate.Before(*deadline)) {
		deadline = a.DueDate
	}
	return deadline
}

// normalizeAnswers checks the payload is an object keyed by question id and
// re-encodes it, so the stored blob has a single canonical shape.
func normalizeAnswers(raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 {
		return json.RawMessage(`{}`), nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	out, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return out, nil
}
