package model

// swagger:model Course
type Course struct {
	UUIDBase
	Title        string `gorm:"size:255;not null" json:"title"`
	Description  string `gorm:"type:text" json:"description"`
	InstructorID uint   `gorm:"index;type:bigint unsigned" json:"instructorId"`
	IsPublished  bool   `gorm:"default:false" json:"isPublished"`
}

func (Course) TableName() string {
	return "courses"
}
