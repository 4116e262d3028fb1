package repository

import (
	"lms_backend/internal/model"

	"gorm.io/gorm"
)

type SkillProgressRepository struct {
	DB *gorm.DB
}

func NewSkillProgressRepository(db *gorm.DB) *SkillProgressRepository {
	return &SkillProgressRepository{DB: db}
}

func (r *SkillProgressRepository) Save(progress *model.LearnerSkillProgress) error {
	return r.DB.Save(progress).Error
}

func (r *SkillProgressRepository) FindByUserAndSkill(userID uint, skillID string) (*model.LearnerSkillProgress, error) {
	var p model.LearnerSkillProgress
	err := r.DB.Where("user_id = ? AND skill_id = ?", userID, skillID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *SkillProgressRepository) ListByUser(userID uint) ([]model.LearnerSkillProgress, error) {
	var list []model.LearnerSkillProgress
	err := r.DB.Preload("Skill").
		Where("user_id = ?", userID).
		Order("proficiency_score DESC").
		Find(&list).Error
	return list, err
}
