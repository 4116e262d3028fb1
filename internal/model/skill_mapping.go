package model

// AssessmentSkillMapping ties a question to a skill it demonstrates. Weight
// scales the question's contribution to the skill tally.
//
// swagger:model AssessmentSkillMapping
type AssessmentSkillMapping struct {
	BaseModel
	QuestionID          string `gorm:"index:idx_mapping_question_skill,unique;type:varchar(36);not null" json:"questionId"`
	SkillID             string `gorm:"index:idx_mapping_question_skill,unique;type:varchar(36);not null" json:"skillId"`
	Weight              int    `gorm:"default:1" json:"weight"`
	ProficiencyRequired string `gorm:"size:20" json:"proficiencyRequired"`

	Skill *Skill `gorm:"foreignKey:SkillID" json:"skill,omitempty"`
}

func (AssessmentSkillMapping) TableName() string {
	return "assessment_skill_mappings"
}
