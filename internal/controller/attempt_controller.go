package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AttemptController struct {
	AttemptService *service.AttemptService
}

func NewAttemptController(attemptService *service.AttemptService) *AttemptController {
	return &AttemptController{AttemptService: attemptService}
}

// Start godoc
// @Summary Start an attempt
// @Description Opens a new attempt on a published assessment. When the caller
// @Description already has an attempt in progress, that attempt comes back
// @Description with a 409 so the client can resume it.
// @Tags attempts
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "assessment id"
// @Success 201 {object} util.Response{data=model.AssessmentAttempt}
// @Failure 403 {object} util.Response "not eligible"
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response "attempt already in progress"
// @Router /assessments/{id}/attempts [post]
func (c *AttemptController) Start(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	attempt, err := c.AttemptService.Start(ctx.Request.Context(), claims.UserID, ctx.Param("id"))
	switch {
	case err == nil:
		util.Created(ctx, attempt)
	case errors.Is(err, util.ErrAttemptInProgress):
		ctx.JSON(http.StatusConflict, util.Response{
			Code:    http.StatusConflict,
			Message: "attempt already in progress",
			Data:    attempt,
		})
	case errors.Is(err, util.ErrAssessmentNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrAssessmentUnpublish),
		errors.Is(err, util.ErrPastDue),
		errors.Is(err, util.ErrNotEnrolled),
		errors.Is(err, util.ErrAttemptsExhausted):
		util.Forbidden(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}

type answersRequest struct {
	Answers json.RawMessage `json:"answers"`
}

// Submit godoc
// @Summary Submit an attempt
// @Description Records the answers and grades the attempt. Submitting an
// @Description attempt that is no longer in progress fails with a 409.
// @Tags attempts
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "attempt id"
// @Param   body body answersRequest true "answers keyed by question id"
// @Success 200 {object} util.Response{data=model.AssessmentAttempt}
// @Failure 400 {object} util.Response "malformed answers"
// @Failure 403 {object} util.Response "not the attempt owner"
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response "attempt not in progress"
// @Router /attempts/{id}/submit [post]
func (c *AttemptController) Submit(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req answersRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	attempt, err := c.AttemptService.Submit(ctx.Request.Context(), claims.UserID, ctx.Param("id"), req.Answers)
	switch {
	case err == nil:
		util.Success(ctx, attempt)
	case errors.Is(err, util.ErrAttemptNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrNotAttemptOwner):
		util.Forbidden(ctx, "not the attempt owner")
	case errors.Is(err, util.ErrMalformedAnswers):
		util.BadRequest(ctx, "answers must be an object keyed by question id")
	case errors.Is(err, util.ErrInvalidState):
		util.Conflict(ctx, "attempt is not in progress")
	default:
		util.LogInternalError(ctx, err)
	}
}

// SaveDraft godoc
// @Summary Save draft answers
// @Description Stores in-flight answers so auto-expiry can submit them on the
// @Description learner's behalf.
// @Tags attempts
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "attempt id"
// @Param   body body answersRequest true "answers keyed by question id"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Failure 409 {object} util.Response "attempt not in progress"
// @Router /attempts/{id}/draft [put]
func (c *AttemptController) SaveDraft(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req answersRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	err := c.AttemptService.SaveDraft(ctx.Request.Context(), claims.UserID, ctx.Param("id"), req.Answers)
	switch {
	case err == nil:
		util.Success(ctx, nil)
	case errors.Is(err, util.ErrAttemptNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrNotAttemptOwner):
		util.Forbidden(ctx, "not the attempt owner")
	case errors.Is(err, util.ErrMalformedAnswers):
		util.BadRequest(ctx, "answers must be an object keyed by question id")
	case errors.Is(err, util.ErrInvalidState):
		util.Conflict(ctx, "attempt is not in progress")
	default:
		util.LogInternalError(ctx, err)
	}
}

// GetResult godoc
// @Summary Attempt result
// @Description Learners only see their own attempts, and score fields are
// @Description withheld while grading is pending on assessments that defer
// @Description result release.
// @Tags attempts
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "attempt id"
// @Success 200 {object} util.Response{data=model.AssessmentAttempt}
// @Failure 403 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /attempts/{id} [get]
func (c *AttemptController) GetResult(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	attempt, err := c.AttemptService.GetResult(claims.UserID, claims.Role, ctx.Param("id"))
	switch {
	case err == nil:
		util.Success(ctx, attempt)
	case errors.Is(err, util.ErrAttemptNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrNotAttemptOwner):
		util.Forbidden(ctx, "not the attempt owner")
	default:
		util.LogInternalError(ctx, err)
	}
}

// ListMine godoc
// @Summary The caller's attempts on an assessment
// @Tags attempts
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "assessment id"
// @Success 200 {object} util.Response{data=[]model.AssessmentAttempt}
// @Router /assessments/{id}/attempts [get]
func (c *AttemptController) ListMine(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	attempts, err := c.AttemptService.ListForUser(claims.UserID, ctx.Param("id"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, attempts)
}

// ManualGrade godoc
// @Summary Manually grade an attempt
// @Description Sets or overrides the score. Per-question scores, when given,
// @Description are validated against each question's points and summed.
// @Tags attempts
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "attempt id"
// @Param   body body service.ManualGradeRequest true "score override"
// @Success 200 {object} util.Response{data=model.AssessmentAttempt}
// @Failure 400 {object} util.Response "score out of range"
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response "attempt still in progress"
// @Router /attempts/{id}/grade [post]
func (c *AttemptController) ManualGrade(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.ManualGradeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	attempt, err := c.AttemptService.ManualGrade(ctx.Request.Context(), claims.UserID, ctx.Param("id"), req)
	switch {
	case err == nil:
		util.Success(ctx, attempt)
	case errors.Is(err, util.ErrAttemptNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrQuestionNotFound):
		util.BadRequest(ctx, "question score refers to an unknown question")
	case errors.Is(err, util.ErrScoreOutOfRange):
		util.BadRequest(ctx, "score is outside the attempt's range")
	case errors.Is(err, util.ErrInvalidState):
		util.Conflict(ctx, "attempt is still in progress")
	default:
		util.LogInternalError(ctx, err)
	}
}
