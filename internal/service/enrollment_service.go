package service

import (
	"errors"

	"lms_backend/internal/model"
	"lms_backend/internal/repository"

	"gorm.io/gorm"
)

type EnrollmentService struct {
	EnrollmentRepo *repository.EnrollmentRepository
}

func NewEnrollmentService(enrollmentRepo *repository.EnrollmentRepository) *EnrollmentService {
	return &EnrollmentService{EnrollmentRepo: enrollmentRepo}
}

func (s *EnrollmentService) HasActiveEnrollment(userID uint, courseID string) (bool, error) {
	return s.EnrollmentRepo.HasActive(userID, courseID)
}

// Enroll creates or re-activates the learner's enrollment.
func (s *EnrollmentService) Enroll(userID uint, courseID string) (*model.Enrollment, error) {
	existing, err := s.EnrollmentRepo.FindByUserAndCourse(userID, courseID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil {
		if existing.Status != model.EnrollmentActive {
			existing.Status = model.EnrollmentActive
			if err := s.EnrollmentRepo.Update(existing); err != nil {
				return nil, err
			}
		}
		return existing, nil
	}

	enrollment := &model.Enrollment{
		UserID:   userID,
		CourseID: courseID,
		Status:   model.EnrollmentActive,
	}
	if err := s.EnrollmentRepo.Create(enrollment); err != nil {
		return nil, err
	}
	return enrollment, nil
}

func (s *EnrollmentService) ListForUser(userID uint) ([]model.Enrollment, error) {
	return s.EnrollmentRepo.ListByUser(userID)
}
