package model

import "time"

type GradingType string

const (
	GradingAuto   GradingType = "AUTO"
	GradingManual GradingType = "MANUAL"
	GradingHybrid GradingType = "HYBRID"
)

// swagger:model Assessment
type Assessment struct {
	UUIDBase
	CourseID    string      `gorm:"index;type:varchar(36);not null" json:"courseId"`
	Title       string      `gorm:"size:255;not null" json:"title"`
	Description string      `gorm:"type:text" json:"description"`
	GradingType GradingType `gorm:"type:enum('AUTO','MANUAL','HYBRID');default:'AUTO'" json:"gradingType"`

	DueDate          *time.Time `json:"dueDate,omitempty"`
	TimeLimitMinutes int        `gorm:"default:0" json:"timeLimitMinutes"` // 0 means no limit
	MaxAttempts      int        `gorm:"default:0" json:"maxAttempts"`      // 0 means unlimited
	PassMarkPercent  *int       `json:"passMarkPercent,omitempty"`

	ShowResultsImmediately bool `gorm:"default:true" json:"showResultsImmediately"`
	ShuffleQuestions       bool `gorm:"default:false" json:"shuffleQuestions"`
	IsPublished            bool `gorm:"default:false" json:"isPublished"`

	Questions []Question `gorm:"foreignKey:AssessmentID" json:"questions,omitempty"`
}

func (Assessment) TableName() string {
	return "assessments"
}

// TotalPoints sums the points of loaded questions; zero when none are loaded.
func (a *Assessment) TotalPoints() int {
	total := 0
	for _, q := range a.Questions {
		total += q.Points
	}
	return total
}
