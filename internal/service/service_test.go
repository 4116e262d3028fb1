package service

import (
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"lms_backend/internal/config"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/scoring"
	"lms_backend/pkg/database"
	"lms_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type fixture struct {
	db          *gorm.DB
	attempts    *AttemptService
	grading     *GradingService
	skills      *SkillService
	assessments *AssessmentService
	enrollments *EnrollmentService

	attemptRepo    *repository.AttemptRepository
	assessmentRepo *repository.AssessmentRepository
	skillRepo      *repository.SkillRepository
	progressRepo   *repository.SkillProgressRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testDB(t)

	attemptRepo := repository.NewAttemptRepository(db)
	assessmentRepo := repository.NewAssessmentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	skillRepo := repository.NewSkillRepository(db)
	progressRepo := repository.NewSkillProgressRepository(db)

	grading := NewGradingService()
	skills := NewSkillService(skillRepo, progressRepo, attemptRepo, assessmentRepo, config.SkillsConfig{
		BlendWeight:           30,
		BreakdownMinQuestions: 1,
		HistoryLimit:          50,
	}, db)
	enrollments := NewEnrollmentService(enrollmentRepo)
	attempts := NewAttemptService(attemptRepo, assessmentRepo, enrollments, grading, skills, nil, nil, db)

	return &fixture{
		db:             db,
		attempts:       attempts,
		grading:        grading,
		skills:         skills,
		assessments:    NewAssessmentService(assessmentRepo, db),
		enrollments:    enrollments,
		attemptRepo:    attemptRepo,
		assessmentRepo: assessmentRepo,
		skillRepo:      skillRepo,
		progressRepo:   progressRepo,
	}
}

func (f *fixture) createLearner(t *testing.T, email string) *model.User {
	t.Helper()
	user := &model.User{Name: "Learner", Email: email, Password: "x", Role: model.Student}
	if err := f.db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func (f *fixture) createCourse(t *testing.T) *model.Course {
	t.Helper()
	course := &model.Course{Title: "Course", IsPublished: true}
	if err := f.db.Create(course).Error; err != nil {
		t.Fatalf("create course: %v", err)
	}
	return course
}

func (f *fixture) enroll(t *testing.T, userID uint, courseID string) {
	t.Helper()
	if _, err := f.enrollments.Enroll(userID, courseID); err != nil {
		t.Fatalf("enroll: %v", err)
	}
}

type assessmentOpts struct {
	gradingType      model.GradingType
	passMark         *int
	maxAttempts      int
	timeLimitMinutes int
	dueDate          *time.Time
	unpublished      bool
	hideResults      bool
}

func (f *fixture) createAssessment(t *testing.T, courseID string, opts assessmentOpts) *model.Assessment {
	t.Helper()
	gt := opts.gradingType
	if gt == "" {
		gt = model.GradingAuto
	}
	a := &model.Assessment{
		CourseID:               courseID,
		Title:                  "Quiz",
		GradingType:            gt,
		PassMarkPercent:        opts.passMark,
		MaxAttempts:            opts.maxAttempts,
		TimeLimitMinutes:       opts.timeLimitMinutes,
		DueDate:                opts.dueDate,
		ShowResultsImmediately: !opts.hideResults,
		IsPublished:            !opts.unpublished,
	}
	if err := f.db.Create(a).Error; err != nil {
		t.Fatalf("create assessment: %v", err)
	}
	return a
}

func (f *fixture) addQuestion(t *testing.T, assessmentID string, qtype scoring.QuestionType, points, order int, data string) *model.Question {
	t.Helper()
	q := &model.Question{
		AssessmentID:     assessmentID,
		QuestionText:     "Q",
		QuestionType:     qtype,
		Points:           points,
		Order:            order,
		TypeSpecificData: json.RawMessage(data),
	}
	if err := f.db.Create(q).Error; err != nil {
		t.Fatalf("create question: %v", err)
	}
	return q
}

func (f *fixture) reloadAttempt(t *testing.T, id string) *model.AssessmentAttempt {
	t.Helper()
	attempt, err := f.attemptRepo.FindByID(id)
	if err != nil {
		t.Fatalf("reload attempt: %v", err)
	}
	return attempt
}

func intPtr(v int) *int { return &v }

func answersJSON(t *testing.T, m map[string]interface{}) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal answers: %v", err)
	}
	return raw
}
