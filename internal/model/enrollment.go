package model

import "time"

type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "ACTIVE"
	EnrollmentCompleted EnrollmentStatus = "COMPLETED"
	EnrollmentDropped   EnrollmentStatus = "DROPPED"
)

// swagger:model Enrollment
type Enrollment struct {
	BaseModel
	UserID     uint             `gorm:"index:idx_enrollment_user_course,unique;type:bigint unsigned;not null" json:"userId"`
	CourseID   string           `gorm:"index:idx_enrollment_user_course,unique;type:varchar(36);not null" json:"courseId"`
	Status     EnrollmentStatus `gorm:"type:enum('ACTIVE','COMPLETED','DROPPED');default:'ACTIVE'" json:"status"`
	EnrolledAt time.Time        `gorm:"default:CURRENT_TIMESTAMP(3)" json:"enrolledAt"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}
