package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/scoring"
	"lms_backend/internal/util"

	"gorm.io/gorm"
)

// AssessmentService manages assessments and their questions. Question
// payloads are validated at this boundary so the grading engine never sees a
// malformed definition under normal operation.
type AssessmentService struct {
	AssessmentRepo *repository.AssessmentRepository
	DB             *gorm.DB
}

func NewAssessmentService(assessmentRepo *repository.AssessmentRepository, db *gorm.DB) *AssessmentService {
	return &AssessmentService{AssessmentRepo: assessmentRepo, DB: db}
}

type AssessmentRequest struct {
	CourseID               string            `json:"courseId" binding:"required"`
	Title                  string            `json:"title" binding:"required"`
	Description            string            `json:"description"`
	GradingType            model.GradingType `json:"gradingType"`
	DueDate                *time.Time        `json:"dueDate"`
	TimeLimitMinutes       int               `json:"timeLimitMinutes"`
	MaxAttempts            int               `json:"maxAttempts"`
	PassMarkPercent        *int              `json:"passMarkPercent"`
	ShowResultsImmediately *bool             `json:"showResultsImmediately"`
	ShuffleQuestions       bool              `json:"shuffleQuestions"`
	IsPublished            bool              `json:"isPublished"`
}

func (r *AssessmentRequest) validate() error {
	switch r.GradingType {
	case "":
		r.GradingType = model.GradingAuto
	case model.GradingAuto, model.GradingManual, model.GradingHybrid:
	default:
		return fmt.Errorf("unknown grading type %q", r.GradingType)
	}
	if r.PassMarkPercent != nil && (*r.PassMarkPercent < 0 || *r.PassMarkPercent > 100) {
		return errors.New("pass mark must be between 0 and 100")
	}
	if r.TimeLimitMinutes < 0 {
		return errors.New("time limit cannot be negative")
	}
	if r.MaxAttempts < 0 {
		return errors.New("max attempts cannot be negative")
	}
	return nil
}

func (s *AssessmentService) Create(req AssessmentRequest) (*model.Assessment, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	assessment := &model.Assessment{
		CourseID:               req.CourseID,
		Title:                  req.Title,
		Description:            req.Description,
		GradingType:            req.GradingType,
		DueDate:                req.DueDate,
		TimeLimitMinutes:       req.TimeLimitMinutes,
		MaxAttempts:            req.MaxAttempts,
		PassMarkPercent:        req.PassMarkPercent,
		ShowResultsImmediately: req.ShowResultsImmediately == nil || *req.ShowResultsImmediately,
		ShuffleQuestions:       req.ShuffleQuestions,
		IsPublished:            req.IsPublished,
	}
	if err := s.AssessmentRepo.Create(assessment); err != nil {
		return nil, err
	}
	return assessment, nil
}

func (s *AssessmentService) Update(id string, req AssessmentRequest) (*model.Assessment, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	assessment, err := s.find(id)
	if err != nil {
		return nil, err
	}

	assessment.Title = req.Title
	assessment.Description = req.Description
	assessment.GradingType = req.GradingType
	assessment.DueDate = req.DueDate
	assessment.TimeLimitMinutes = req.TimeLimitMinutes
	assessment.MaxAttempts = req.MaxAttempts
	assessment.PassMarkPercent = req.PassMarkPercent
	if req.ShowResultsImmediately != nil {
		assessment.ShowResultsImmediately = *req.ShowResultsImmediately
	}
	assessment.ShuffleQuestions = req.ShuffleQuestions

	if err := s.AssessmentRepo.Update(assessment); err != nil {
		return nil, err
	}
	return assessment, nil
}

func (s *AssessmentService) SetPublished(id string, published bool) (*model.Assessment, error) {
	assessment, err := s.find(id)
	if err != nil {
		return nil, err
	}
	assessment.IsPublished = published
	if err := s.AssessmentRepo.Update(assessment); err != nil {
		return nil, err
	}
	return assessment, nil
}

// Get loads the assessment with its questions. With includeAnswers false the
// answer key is stripped from each question and the order is shuffled when
// the assessment asks for it.
func (s *AssessmentService) Get(id string, includeAnswers bool) (*model.Assessment, error) {
	assessment, err := s.AssessmentRepo.FindByIDWithQuestions(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAssessmentNotFound
		}
		return nil, err
	}
	if includeAnswers {
		return assessment, nil
	}

	sanitized := make([]model.Question, len(assessment.Questions))
	for i := range assessment.Questions {
		sanitized[i] = sanitizeQuestion(&assessment.Questions[i])
	}
	if assessment.ShuffleQuestions {
		rand.Shuffle(len(sanitized), func(i, j int) {
			sanitized[i], sanitized[j] = sanitized[j], sanitized[i]
		})
	}
	assessment.Questions = sanitized
	return assessment, nil
}

func (s *AssessmentService) ListByCourse(courseID string, publishedOnly bool) ([]model.Assessment, error) {
	return s.AssessmentRepo.ListByCourse(courseID, publishedOnly)
}

func (s *AssessmentService) Delete(id string) error {
	if _, err := s.find(id); err != nil {
		return err
	}
	return s.AssessmentRepo.Delete(id)
}

type QuestionRequest struct {
	QuestionText     string               `json:"questionText" binding:"required"`
	QuestionType     scoring.QuestionType `json:"questionType" binding:"required"`
	Order            int                  `json:"order"`
	Points           int                  `json:"points"`
	TypeSpecificData json.RawMessage      `json:"typeSpecificData"`
	Feedback         string               `json:"feedback"`
}

func (r *QuestionRequest) definition() (*scoring.Definition, error) {
	def, err := scoring.ParseDefinition(r.QuestionType, r.Points, r.TypeSpecificData)
	if err != nil {
		return nil, err
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

func (s *AssessmentService) AddQuestion(assessmentID string, req QuestionRequest) (*model.Question, error) {
	if _, err := s.find(assessmentID); err != nil {
		return nil, err
	}
	if _, err := req.definition(); err != nil {
		return nil, err
	}

	question := &model.Question{
		AssessmentID:     assessmentID,
		QuestionText:     req.QuestionText,
		QuestionType:     req.QuestionType,
		Order:            req.Order,
		Points:           req.Points,
		TypeSpecificData: req.TypeSpecificData,
		Feedback:         req.Feedback,
	}
	if err := s.AssessmentRepo.CreateQuestion(question); err != nil {
		return nil, err
	}
	return question, nil
}

func (s *AssessmentService) UpdateQuestion(questionID string, req QuestionRequest) (*model.Question, error) {
	question, err := s.AssessmentRepo.FindQuestionByID(questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuestionNotFound
		}
		return nil, err
	}
	if _, err := req.definition(); err != nil {
		return nil, err
	}

	question.QuestionText = req.QuestionText
	question.QuestionType = req.QuestionType
	question.Order = req.Order
	question.Points = req.Points
	question.TypeSpecificData = req.TypeSpecificData
	question.Feedback = req.Feedback

	if err := s.AssessmentRepo.UpdateQuestion(question); err != nil {
		return nil, err
	}
	return question, nil
}

func (s *AssessmentService) DeleteQuestion(questionID string) error {
	if _, err := s.AssessmentRepo.FindQuestionByID(questionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrQuestionNotFound
		}
		return err
	}
	return s.AssessmentRepo.DeleteQuestion(questionID)
}

func (s *AssessmentService) find(id string) (*model.Assessment, error) {
	assessment, err := s.AssessmentRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAssessmentNotFound
		}
		return nil, err
	}
	return assessment, nil
}

// sanitizeQuestion returns a copy with the answer key removed from the
// type-specific payload. The stripped blob keeps the stored field names so
// clients parse one shape everywhere.
func sanitizeQuestion(q *model.Question) model.Question {
	out := *q
	def, err := q.Definition()
	if err != nil {
		// A malformed stored payload is better hidden than leaked.
		out.TypeSpecificData = json.RawMessage(`{}`)
		return out
	}

	var stripped interface{}
	switch q.QuestionType {
	case scoring.MultipleChoice:
		data := *def.MultipleChoice
		opts := make([]scoring.Option, len(data.Options))
		for i, opt := range data.Options {
			opts[i] = scoring.Option{ID: opt.ID, Text: opt.Text}
		}
		data.Options = opts
		stripped = data
	case scoring.TrueFalse:
		data := *def.TrueFalse
		data.CorrectAnswer = nil
		stripped = data
	case scoring.ShortAnswer:
		stripped = scoring.ShortAnswerData{CaseSensitive: def.ShortAnswer.CaseSensitive}
	case scoring.Matching:
		data := *def.Matching
		data.CorrectPairs = nil
		stripped = data
	case scoring.FillBlanks:
		data := *def.FillBlanks
		blanks := make(map[string]scoring.Blank, len(data.Blanks))
		for id := range data.Blanks {
			blanks[id] = scoring.Blank{}
		}
		data.Blanks = blanks
		stripped = data
	default:
		return out
	}

	raw, err := json.Marshal(stripped)
	if err != nil {
		out.TypeSpecificData = json.RawMessage(`{}`)
		return out
	}
	out.TypeSpecificData = raw
	return out
}
