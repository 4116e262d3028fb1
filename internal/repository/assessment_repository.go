package repository

import (
	"lms_backend/internal/model"

	"gorm.io/gorm"
)

type AssessmentRepository struct {
	DB *gorm.DB
}

func NewAssessmentRepository(db *gorm.DB) *AssessmentRepository {
	return &AssessmentRepository{DB: db}
}

func (r *AssessmentRepository) Create(assessment *model.Assessment) error {
	return r.DB.Create(assessment).Error
}

func (r *AssessmentRepository) Update(assessment *model.Assessment) error {
	return r.DB.Save(assessment).Error
}

func (r *AssessmentRepository) Delete(id string) error {
	return r.DB.Delete(&model.Assessment{}, "id = ?", id).Error
}

func (r *AssessmentRepository) FindByID(id string) (*model.Assessment, error) {
	var a model.Assessment
	if err := r.DB.First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AssessmentRepository) FindByIDWithQuestions(id string) (*model.Assessment, error) {
	var a model.Assessment
	err := r.DB.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("display_order ASC")
	}).First(&a, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AssessmentRepository) ListByCourse(courseID string, publishedOnly bool) ([]model.Assessment, error) {
	q := r.DB.Where("course_id = ?", courseID)
	if publishedOnly {
		q = q.Where("is_published = ?", true)
	}
	var assessments []model.Assessment
	err := q.Order("created_at DESC").Find(&assessments).Error
	return assessments, err
}

func (r *AssessmentRepository) CreateQuestion(question *model.Question) error {
	return r.DB.Create(question).Error
}

func (r *AssessmentRepository) UpdateQuestion(question *model.Question) error {
	return r.DB.Save(question).Error
}

func (r *AssessmentRepository) DeleteQuestion(id string) error {
	return r.DB.Delete(&model.Question{}, "id = ?", id).Error
}

func (r *AssessmentRepository) FindQuestionByID(id string) (*model.Question, error) {
	var q model.Question
	if err := r.DB.First(&q, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *AssessmentRepository) ListQuestions(assessmentID string) ([]model.Question, error) {
	var questions []model.Question
	err := r.DB.Where("assessment_id = ?", assessmentID).
		Order("display_order ASC").
		Find(&questions).Error
	return questions, err
}
