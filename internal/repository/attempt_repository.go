package repository

import (
	"time"

	"lms_backend/internal/model"

	"gorm.io/gorm"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) Create(attempt *model.AssessmentAttempt) error {
	return r.DB.Create(attempt).Error
}

func (r *AttemptRepository) Update(attempt *model.AssessmentAttempt) error {
	return r.DB.Save(attempt).Error
}

func (r *AttemptRepository) FindByID(id string) (*model.AssessmentAttempt, error) {
	var a model.AssessmentAttempt
	if err := r.DB.First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AttemptRepository) FindInProgress(userID uint, assessmentID string) (*model.AssessmentAttempt, error) {
	var a model.AssessmentAttempt
	err := r.DB.Where("user_id = ? AND assessment_id = ? AND status = ?",
		userID, assessmentID, model.AttemptInProgress).First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AttemptRepository) CountByUserAndAssessment(userID uint, assessmentID string) (int64, error) {
	var count int64
	err := r.DB.Model(&model.AssessmentAttempt{}).
		Where("user_id = ? AND assessment_id = ?", userID, assessmentID).
		Count(&count).Error
	return count, err
}

func (r *AttemptRepository) ListByUserAndAssessment(userID uint, assessmentID string) ([]model.AssessmentAttempt, error) {
	var attempts []model.AssessmentAttempt
	err := r.DB.Where("user_id = ? AND assessment_id = ?", userID, assessmentID).
		Order("start_time DESC").Find(&attempts).Error
	return attempts, err
}

func (r *AttemptRepository) ListGradedByUser(userID uint) ([]model.AssessmentAttempt, error) {
	var attempts []model.AssessmentAttempt
	err := r.DB.Where("user_id = ? AND status = ?", userID, model.AttemptGraded).
		Order("start_time ASC").Find(&attempts).Error
	return attempts, err
}

func (r *AttemptRepository) ListPendingManual(assessmentID string) ([]model.AssessmentAttempt, error) {
	var attempts []model.AssessmentAttempt
	err := r.DB.Where("assessment_id = ? AND requires_manual_grading = ? AND status IN ?",
		assessmentID, true, []model.AttemptStatus{model.AttemptSubmitted, model.AttemptGraded}).
		Order("start_time ASC").Find(&attempts).Error
	return attempts, err
}

// ListExpiryCandidates returns in-progress attempts on assessments that can
// expire at all (time limit or due date set). The caller computes each
// attempt's actual deadline; date arithmetic in SQL is not portable across
// the supported drivers.
func (r *AttemptRepository) ListExpiryCandidates(now time.Time, limit int) ([]model.AssessmentAttempt, error) {
	var attempts []model.AssessmentAttempt
	err := r.DB.
		Joins("JOIN assessments ON assessments.id = assessment_attempts.assessment_id").
		Where("assessment_attempts.status = ?", model.AttemptInProgress).
		Where("assessments.time_limit_minutes > 0 OR (assessments.due_date IS NOT NULL AND assessments.due_date <= ?)", now).
		Limit(limit).
		Find(&attempts).Error
	return attempts, err
}

// ClaimForSubmission flips the attempt out of IN_PROGRESS if and only if it
// is still in progress. The guarded update makes concurrent submits race
// safely: exactly one caller sees rows affected.
func (r *AttemptRepository) ClaimForSubmission(tx *gorm.DB, attemptID string, endTime time.Time) (bool, error) {
	res := tx.Model(&model.AssessmentAttempt{}).
		Where("id = ? AND status = ?", attemptID, model.AttemptInProgress).
		Updates(map[string]interface{}{
			"status":   model.AttemptSubmitted,
			"end_time": endTime,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
