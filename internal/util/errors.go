package util

import "errors"

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailRegistered  = errors.New("email already registered")
	ErrPermissionDenied = errors.New("permission denied")

	ErrAssessmentNotFound  = errors.New("assessment not found")
	ErrAssessmentUnpublish = errors.New("assessment not published")
	ErrQuestionNotFound    = errors.New("question not found")
	ErrAttemptNotFound     = errors.New("attempt not found")
	ErrSkillNotFound       = errors.New("skill not found")

	ErrNotEnrolled       = errors.New("no active enrollment for this course")
	ErrPastDue           = errors.New("assessment due date has passed")
	ErrAttemptsExhausted = errors.New("maximum attempts reached")

	ErrInvalidState      = errors.New("attempt is not in a state that allows this action")
	ErrAttemptInProgress = errors.New("an attempt is already in progress")
	ErrAlreadySubmitted  = errors.New("attempt already submitted")
	ErrNotAttemptOwner   = errors.New("attempt belongs to another learner")
	ErrResultsWithheld   = errors.New("results are not yet released")

	ErrMalformedAnswers = errors.New("answers payload must be an object keyed by question id")
	ErrScoreOutOfRange  = errors.New("score outside the attempt's valid range")
	ErrNotReady        = errors.New("not enough graded data for a breakdown")
)
