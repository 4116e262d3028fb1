package repository

import (
	"lms_backend/internal/model"

	"gorm.io/gorm"
)

type SkillRepository struct {
	DB *gorm.DB
}

func NewSkillRepository(db *gorm.DB) *SkillRepository {
	return &SkillRepository{DB: db}
}

func (r *SkillRepository) Create(skill *model.Skill) error {
	return r.DB.Create(skill).Error
}

func (r *SkillRepository) Update(skill *model.Skill) error {
	return r.DB.Save(skill).Error
}

func (r *SkillRepository) FindByID(id string) (*model.Skill, error) {
	var s model.Skill
	if err := r.DB.First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SkillRepository) List(activeOnly bool) ([]model.Skill, error) {
	q := r.DB.Order("name ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var skills []model.Skill
	err := q.Find(&skills).Error
	return skills, err
}

func (r *SkillRepository) CreateMapping(mapping *model.AssessmentSkillMapping) error {
	return r.DB.Create(mapping).Error
}

func (r *SkillRepository) DeleteMapping(id uint) error {
	return r.DB.Delete(&model.AssessmentSkillMapping{}, id).Error
}

// ListMappingsByQuestionIDs loads the skill mappings for a set of questions,
// skills preloaded.
func (r *SkillRepository) ListMappingsByQuestionIDs(questionIDs []string) ([]model.AssessmentSkillMapping, error) {
	if len(questionIDs) == 0 {
		return nil, nil
	}
	var mappings []model.AssessmentSkillMapping
	err := r.DB.Preload("Skill").
		Where("question_id IN ?", questionIDs).
		Find(&mappings).Error
	return mappings, err
}

func (r *SkillRepository) ListMappingsByAssessment(assessmentID string) ([]model.AssessmentSkillMapping, error) {
	var mappings []model.AssessmentSkillMapping
	err := r.DB.Preload("Skill").
		Joins("JOIN questions ON questions.id = assessment_skill_mappings.question_id").
		Where("questions.assessment_id = ?", assessmentID).
		Find(&mappings).Error
	return mappings, err
}
