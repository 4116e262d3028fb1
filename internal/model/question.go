package model

import (
	"encoding/json"

	"lms_backend/internal/scoring"
)

// swagger:model Question
type Question struct {
	UUIDBase
	AssessmentID string               `gorm:"index;type:varchar(36);not null" json:"assessmentId"`
	QuestionText string               `gorm:"type:text;not null" json:"questionText"`
	QuestionType scoring.QuestionType `gorm:"size:30;not null" json:"questionType"`
	Order        int                  `gorm:"column:display_order;default:0" json:"order"`
	Points       int                  `gorm:"default:1" json:"points"`

	// TypeSpecificData carries the per-type payload (options, correct
	// answers, pairs, blanks) in the stored snake_case wire format.
	TypeSpecificData json.RawMessage `gorm:"type:json" json:"typeSpecificData"`
	Feedback         string          `gorm:"type:text" json:"feedback"`
}

func (Question) TableName() string {
	return "questions"
}

func (q *Question) Definition() (*scoring.Definition, error) {
	return scoring.ParseDefinition(q.QuestionType, q.Points, q.TypeSpecificData)
}
