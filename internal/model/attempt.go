package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "IN_PROGRESS"
	AttemptSubmitted  AttemptStatus = "SUBMITTED"
	AttemptGraded     AttemptStatus = "GRADED"
)

// swagger:model AssessmentAttempt
type AssessmentAttempt struct {
	UUIDBase
	AssessmentID string        `gorm:"index:idx_attempt_assessment_user;type:varchar(36);not null" json:"assessmentId"`
	UserID       uint          `gorm:"index:idx_attempt_assessment_user;type:bigint unsigned;not null" json:"userId"`
	Status       AttemptStatus `gorm:"type:enum('IN_PROGRESS','SUBMITTED','GRADED');default:'IN_PROGRESS'" json:"status"`

	StartTime time.Time  `gorm:"not null" json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`

	// Answers maps question id to the learner's raw answer payload.
	Answers json.RawMessage `gorm:"type:json" json:"answers,omitempty"`

	Score    *decimal.Decimal `gorm:"type:decimal(6,2)" json:"score,omitempty"`
	MaxScore *int             `json:"maxScore,omitempty"`
	IsPassed *bool            `json:"isPassed,omitempty"`

	RequiresManualGrading bool       `gorm:"default:false" json:"requiresManualGrading"`
	GradedByID            *uint      `gorm:"type:bigint unsigned" json:"gradedById,omitempty"`
	GradedAt              *time.Time `json:"gradedAt,omitempty"`
	Feedback              string     `gorm:"type:text" json:"feedback"`
}

func (AssessmentAttempt) TableName() string {
	return "assessment_attempts"
}

// AnswerMap decodes the stored answers blob. A missing or empty blob decodes
// to an empty map.
func (a *AssessmentAttempt) AnswerMap() (map[string]json.RawMessage, error) {
	answers := make(map[string]json.RawMessage)
	if len(a.Answers) == 0 {
		return answers, nil
	}
	if err := json.Unmarshal(a.Answers, &answers); err != nil {
		return nil, err
	}
	return answers, nil
}
