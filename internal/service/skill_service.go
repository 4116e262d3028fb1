package service

import (
	"encoding/json"
	"errors"
	"sort"
	"time"

	"lms_backend/internal/config"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/scoring"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SkillService maintains per-learner proficiency aggregates and answers
// read-only breakdown queries. Both paths re-derive correctness from the
// same scoring rules the grading engine uses.
type SkillService struct {
	SkillRepo      *repository.SkillRepository
	ProgressRepo   *repository.SkillProgressRepository
	AttemptRepo    *repository.AttemptRepository
	AssessmentRepo *repository.AssessmentRepository
	Cfg            config.SkillsConfig
	DB             *gorm.DB
}

func NewSkillService(
	skillRepo *repository.SkillRepository,
	progressRepo *repository.SkillProgressRepository,
	attemptRepo *repository.AttemptRepository,
	assessmentRepo *repository.AssessmentRepository,
	cfg config.SkillsConfig,
	db *gorm.DB,
) *SkillService {
	return &SkillService{
		SkillRepo:      skillRepo,
		ProgressRepo:   progressRepo,
		AttemptRepo:    attemptRepo,
		AssessmentRepo: assessmentRepo,
		Cfg:            cfg,
		DB:             db,
	}
}

type skillTally struct {
	correctWeight int
	totalWeight   int
}

// UpdateFromAttempt folds a graded attempt into the learner's proficiency
// scores. Safe to call more than once per attempt: history entries are keyed
// by attempt id, and a skill that already has one is skipped.
func (s *SkillService) UpdateFromAttempt(attempt *model.AssessmentAttempt) error {
	if attempt.Status != model.AttemptGraded {
		return nil
	}

	questions, err := s.AssessmentRepo.ListQuestions(attempt.AssessmentID)
	if err != nil {
		return err
	}
	tallies, err := s.tallySkills(attempt, questions)
	if err != nil {
		return err
	}
	if len(tallies) == 0 {
		return nil
	}

	now := time.Now()
	for skillID, tally := range tallies {
		if tally.totalWeight == 0 {
			continue
		}
		demonstrated := (100*tally.correctWeight + tally.totalWeight/2) / tally.totalWeight
		if err := s.applyProgress(attempt.UserID, skillID, attempt.ID, demonstrated, now); err != nil {
			return err
		}
	}
	return nil
}

func (s *SkillService) applyProgress(userID uint, skillID, attemptID string, demonstrated int, now time.Time) error {
	progress, err := s.ProgressRepo.FindByUserAndSkill(userID, skillID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		progress = &model.LearnerSkillProgress{UserID: userID, SkillID: skillID}
	}

	history, err := progress.History()
	if err != nil {
		logger.Log.Warn("unreadable progress history, starting fresh",
			zap.Uint("userId", userID), zap.String("skillId", skillID), zap.Error(err))
		history = nil
	}
	for _, entry := range history {
		if entry.AttemptID == attemptID {
			return nil
		}
	}

	newScore := demonstrated
	if progress.LastAssessedAt != nil || len(history) > 0 {
		newScore = blendScores(progress.ProficiencyScore, demonstrated, s.Cfg.BlendWeight)
	}
	newScore = clampScore(newScore)

	history = append(history, model.ProgressEntry{
		AttemptID:  attemptID,
		Score:      newScore,
		RecordedAt: now,
	})
	if limit := s.Cfg.HistoryLimit; limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	if err := progress.SetHistory(history); err != nil {
		return err
	}

	progress.ProficiencyScore = newScore
	progress.ProficiencyLevel = model.ProficiencyLevelForScore(newScore)
	progress.LastAssessedAt = &now
	return s.ProgressRepo.Save(progress)
}

// blendScores mixes the freshly demonstrated ratio into the running score.
// weight is the share of the new signal in percent; integer round half up.
func blendScores(old, demonstrated, weight int) int {
	if weight <= 0 || weight > 100 {
		weight = 30
	}
	return (weight*demonstrated + (100-weight)*old + 50) / 100
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// tallySkills derives per-skill weighted correctness from the attempt's
// answers. Manual-grading question types are skipped outright, and a
// question whose scoring faults is excluded rather than counted wrong.
func (s *SkillService) tallySkills(attempt *model.AssessmentAttempt, questions []model.Question) (map[string]*skillTally, error) {
	byID := make(map[string]model.Question, len(questions))
	ids := make([]string, 0, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
		ids = append(ids, q.ID)
	}

	mappings, err := s.SkillRepo.ListMappingsByQuestionIDs(ids)
	if err != nil {
		return nil, err
	}
	if len(mappings) == 0 {
		return nil, nil
	}

	answers, err := attempt.AnswerMap()
	if err != nil {
		logger.Log.Warn("unreadable answers during skill tally",
			zap.String("attemptId", attempt.ID), zap.Error(err))
		answers = map[string]json.RawMessage{}
	}

	tallies := make(map[string]*skillTally)
	for _, mapping := range mappings {
		q, ok := byID[mapping.QuestionID]
		if !ok || q.QuestionType.ManuallyGraded() {
			continue
		}

		correct, counted := questionCorrect(&q, answers)
		if !counted {
			continue
		}

		weight := mapping.Weight
		if weight <= 0 {
			weight = 1
		}
		tally := tallies[mapping.SkillID]
		if tally == nil {
			tally = &skillTally{}
			tallies[mapping.SkillID] = tally
		}
		tally.totalWeight += weight
		if correct {
			tally.correctWeight += weight
		}
	}
	return tallies, nil
}

// questionCorrect reports (correct, counted). A missing answer counts as
// wrong; a scoring fault is not counted at all.
func questionCorrect(q *model.Question, answers map[string]json.RawMessage) (bool, bool) {
	def, err := q.Definition()
	if err != nil {
		return false, false
	}
	answer, ok := answers[q.ID]
	if !ok {
		return false, true
	}
	correct, err := scoring.IsCorrect(def, answer)
	if err != nil {
		return false, false
	}
	return correct, true
}

type SkillBreakdownEntry struct {
	SkillID                 string                 `json:"skillId"`
	SkillName               string                 `json:"skillName"`
	QuestionsTotal          int                    `json:"questionsTotal"`
	QuestionsCorrect        int                    `json:"questionsCorrect"`
	AccuracyPercent         float64                `json:"accuracyPercent"`
	ScorePercentage         float64                `json:"scorePercentage"`
	ProficiencyDemonstrated model.ProficiencyLevel `json:"proficiencyDemonstrated"`
}

type SkillBreakdownReport struct {
	AttemptID string                `json:"attemptId"`
	Skills    []SkillBreakdownEntry `json:"skills"`
}

// GetSkillBreakdown builds the weakest-first per-skill report for a graded
// attempt.
func (s *SkillService) GetSkillBreakdown(attemptID string) (*SkillBreakdownReport, error) {
	attempt, err := s.AttemptRepo.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	if attempt.Status != model.AttemptGraded {
		return nil, util.ErrNotReady
	}

	questions, err := s.AssessmentRepo.ListQuestions(attempt.AssessmentID)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]model.Question, len(questions))
	ids := make([]string, 0, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
		ids = append(ids, q.ID)
	}
	mappings, err := s.SkillRepo.ListMappingsByQuestionIDs(ids)
	if err != nil {
		return nil, err
	}

	mapped := make(map[string]bool)
	for _, m := range mappings {
		mapped[m.QuestionID] = true
	}
	if len(mapped) < s.minBreakdownQuestions() {
		return nil, util.ErrNotReady
	}

	answers, err := attempt.AnswerMap()
	if err != nil {
		answers = map[string]json.RawMessage{}
	}

	type acc struct {
		name           string
		total          int
		correct        int
		pointsPossible int
		pointsEarned   float64
	}
	accs := make(map[string]*acc)
	for _, mapping := range mappings {
		q, ok := byID[mapping.QuestionID]
		if !ok || q.QuestionType.ManuallyGraded() {
			continue
		}
		correct, counted := questionCorrect(&q, answers)
		if !counted {
			continue
		}

		a := accs[mapping.SkillID]
		if a == nil {
			a = &acc{}
			if mapping.Skill != nil {
				a.name = mapping.Skill.Name
			}
			accs[mapping.SkillID] = a
		}
		a.total++
		a.pointsPossible += q.Points
		if correct {
			a.correct++
		}
		if answer, ok := answers[q.ID]; ok {
			if def, err := q.Definition(); err == nil {
				if score, err := scoring.Score(def, answer); err == nil {
					earned, _ := score.Float64()
					a.pointsEarned += earned
				}
			}
		}
	}

	report := &SkillBreakdownReport{AttemptID: attemptID}
	for skillID, a := range accs {
		if a.total == 0 {
			continue
		}
		accuracy := 100 * float64(a.correct) / float64(a.total)
		scorePct := 0.0
		if a.pointsPossible > 0 {
			scorePct = 100 * a.pointsEarned / float64(a.pointsPossible)
		}
		report.Skills = append(report.Skills, SkillBreakdownEntry{
			SkillID:                 skillID,
			SkillName:               a.name,
			QuestionsTotal:          a.total,
			QuestionsCorrect:        a.correct,
			AccuracyPercent:         accuracy,
			ScorePercentage:         scorePct,
			ProficiencyDemonstrated: demonstratedLevel(accuracy),
		})
	}

	// Weakest skills first; names break ties so the order is stable.
	sort.Slice(report.Skills, func(i, j int) bool {
		if report.Skills[i].AccuracyPercent != report.Skills[j].AccuracyPercent {
			return report.Skills[i].AccuracyPercent < report.Skills[j].AccuracyPercent
		}
		return report.Skills[i].SkillName < report.Skills[j].SkillName
	})
	return report, nil
}

func (s *SkillService) minBreakdownQuestions() int {
	if s.Cfg.BreakdownMinQuestions > 0 {
		return s.Cfg.BreakdownMinQuestions
	}
	return 1
}

// demonstratedLevel bands the accuracy shown within a single attempt. The
// bands differ from the stored-proficiency ones on purpose: one attempt is a
// snapshot, the stored score is a running estimate.
func demonstratedLevel(accuracy float64) model.ProficiencyLevel {
	switch {
	case accuracy >= 90:
		return model.ProficiencyExpert
	case accuracy >= 75:
		return model.ProficiencyAdvanced
	case accuracy >= 60:
		return model.ProficiencyIntermediate
	case accuracy >= 40:
		return model.ProficiencyBeginner
	default:
		return model.ProficiencyNovice
	}
}

type TrendDirection string

const (
	TrendImproving TrendDirection = "IMPROVING"
	TrendDeclining TrendDirection = "DECLINING"
	TrendSteady    TrendDirection = "STEADY"
)

type ProgressSummary struct {
	SkillID          string                 `json:"skillId"`
	SkillName        string                 `json:"skillName"`
	ProficiencyScore int                    `json:"proficiencyScore"`
	ProficiencyLevel model.ProficiencyLevel `json:"proficiencyLevel"`
	LastAssessedAt   *time.Time             `json:"lastAssessedAt,omitempty"`
	Trend            TrendDirection         `json:"trend"`
	TrendChange      int                    `json:"trendChange"`
}

// ListLearnerProgress summarizes a learner's skills with a recent-history
// trend.
func (s *SkillService) ListLearnerProgress(userID uint) ([]ProgressSummary, error) {
	records, err := s.ProgressRepo.ListByUser(userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]ProgressSummary, 0, len(records))
	for i := range records {
		rec := &records[i]
		summary := ProgressSummary{
			SkillID:          rec.SkillID,
			ProficiencyScore: rec.ProficiencyScore,
			ProficiencyLevel: rec.ProficiencyLevel,
			LastAssessedAt:   rec.LastAssessedAt,
		}
		if rec.Skill != nil {
			summary.SkillName = rec.Skill.Name
		}
		history, err := rec.History()
		if err != nil {
			history = nil
		}
		summary.Trend, summary.TrendChange = progressTrend(history)
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// progressTrend compares the newest entry against one five entries back (or
// the oldest available). Changes within 2 points read as steady.
func progressTrend(history []model.ProgressEntry) (TrendDirection, int) {
	if len(history) < 2 {
		return TrendSteady, 0
	}
	baseIdx := len(history) - 6
	if baseIdx < 0 {
		baseIdx = 0
	}
	change := history[len(history)-1].Score - history[baseIdx].Score
	switch {
	case change > 2:
		return TrendImproving, change
	case change < -2:
		return TrendDeclining, change
	default:
		return TrendSteady, change
	}
}

func (s *SkillService) CreateSkill(skill *model.Skill) error {
	return s.SkillRepo.Create(skill)
}

func (s *SkillService) ListSkills(activeOnly bool) ([]model.Skill, error) {
	return s.SkillRepo.List(activeOnly)
}

// CreateMapping validates both ends before linking a question to a skill.
func (s *SkillService) CreateMapping(questionID, skillID string, weight int, proficiencyRequired string) (*model.AssessmentSkillMapping, error) {
	if _, err := s.SkillRepo.FindByID(skillID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrSkillNotFound
		}
		return nil, err
	}
	if _, err := s.AssessmentRepo.FindQuestionByID(questionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuestionNotFound
		}
		return nil, err
	}
	if weight <= 0 {
		weight = 1
	}

	mapping := &model.AssessmentSkillMapping{
		QuestionID:          questionID,
		SkillID:             skillID,
		Weight:              weight,
		ProficiencyRequired: proficiencyRequired,
	}
	if err := s.SkillRepo.CreateMapping(mapping); err != nil {
		return nil, err
	}
	return mapping, nil
}

func (s *SkillService) ListMappingsByAssessment(assessmentID string) ([]model.AssessmentSkillMapping, error) {
	return s.SkillRepo.ListMappingsByAssessment(assessmentID)
}
