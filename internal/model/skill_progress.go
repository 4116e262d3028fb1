package model

import (
	"encoding/json"
	"time"
)

type ProficiencyLevel string

const (
	ProficiencyNovice       ProficiencyLevel = "NOVICE"
	ProficiencyBeginner     ProficiencyLevel = "BEGINNER"
	ProficiencyIntermediate ProficiencyLevel = "INTERMEDIATE"
	ProficiencyAdvanced     ProficiencyLevel = "ADVANCED"
	ProficiencyExpert       ProficiencyLevel = "EXPERT"
)

// ProficiencyLevelForScore maps a stored 0-100 proficiency score onto the
// level shown on learner profiles.
func ProficiencyLevelForScore(score int) ProficiencyLevel {
	switch {
	case score >= 90:
		return ProficiencyExpert
	case score >= 70:
		return ProficiencyAdvanced
	case score >= 50:
		return ProficiencyIntermediate
	case score >= 25:
		return ProficiencyBeginner
	default:
		return ProficiencyNovice
	}
}

// ProgressEntry is one element of LearnerSkillProgress.ProgressHistory. The
// attempt id keys deduplication: re-grading the same attempt never appends a
// second entry.
type ProgressEntry struct {
	AttemptID  string    `json:"attempt_id"`
	Score      int       `json:"score"`
	RecordedAt time.Time `json:"recorded_at"`
}

// swagger:model LearnerSkillProgress
type LearnerSkillProgress struct {
	BaseModel
	UserID  uint   `gorm:"index:idx_progress_user_skill,unique;type:bigint unsigned;not null" json:"userId"`
	SkillID string `gorm:"index:idx_progress_user_skill,unique;type:varchar(36);not null" json:"skillId"`

	ProficiencyScore int              `gorm:"default:0" json:"proficiencyScore"`
	ProficiencyLevel ProficiencyLevel `gorm:"size:20;default:'NOVICE'" json:"proficiencyLevel"`
	ProgressHistory  json.RawMessage  `gorm:"type:json" json:"progressHistory,omitempty"`
	LastAssessedAt   *time.Time       `json:"lastAssessedAt,omitempty"`

	Skill *Skill `gorm:"foreignKey:SkillID" json:"skill,omitempty"`
}

func (LearnerSkillProgress) TableName() string {
	return "learner_skill_progress"
}

// History decodes the stored progress history, oldest first.
func (p *LearnerSkillProgress) History() ([]ProgressEntry, error) {
	var entries []ProgressEntry
	if len(p.ProgressHistory) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(p.ProgressHistory, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// SetHistory encodes and stores the progress history.
func (p *LearnerSkillProgress) SetHistory(entries []ProgressEntry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	p.ProgressHistory = raw
	return nil
}
