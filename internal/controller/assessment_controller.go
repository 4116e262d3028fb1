package controller

import (
	"errors"

	"lms_backend/internal/model"
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AssessmentController struct {
	AssessmentService *service.AssessmentService
	SkillService      *service.SkillService
	AttemptService    *service.AttemptService
}

func NewAssessmentController(
	assessmentService *service.AssessmentService,
	skillService *service.SkillService,
	attemptService *service.AttemptService,
) *AssessmentController {
	return &AssessmentController{
		AssessmentService: assessmentService,
		SkillService:      skillService,
		AttemptService:    attemptService,
	}
}

// Create godoc
// @Summary Create an assessment
// @Tags assessments
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.AssessmentRequest true "assessment definition"
// @Success 201 {object} util.Response{data=model.Assessment}
// @Failure 400 {object} util.Response
// @Router /assessments [post]
func (c *AssessmentController) Create(ctx *gin.Context) {
	var req service.AssessmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	assessment, err := c.AssessmentService.Create(req)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Created(ctx, assessment)
}

// Update godoc
// @Summary Update an assessment
// @Tags assessments
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "assessment id"
// @Param   body body service.AssessmentRequest true "assessment definition"
// @Success 200 {object} util.Response{data=model.Assessment}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /assessments/{id} [put]
func (c *AssessmentController) Update(ctx *gin.Context) {
	var req service.AssessmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	assessment, err := c.AssessmentService.Update(ctx.Param("id"), req)
	if err != nil {
		if errors.Is(err, util.ErrAssessmentNotFound) {
			util.NotFound(ctx)
		} else {
			util.BadRequest(ctx, err.Error())
		}
		return
	}
	util.Success(ctx, assessment)
}

type publishRequest struct {
	IsPublished bool `json:"isPublished"`
}

// SetPublished godoc
// @Summary Publish or unpublish an assessment
// @Tags assessments
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "assessment id"
// @Param   body body publishRequest true "publish flag"
// @Success 200 {object} util.Response{data=model.Assessment}
// @Failure 404 {object} util.Response
// @Router /assessments/{id}/publish [patch]
func (c *AssessmentController) SetPublished(ctx *gin.Context) {
	var req publishRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	assessment, err := c.AssessmentService.SetPublished(ctx.Param("id"), req.IsPublished)
	if err != nil {
		if errors.Is(err, util.ErrAssessmentNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, assessment)
}

// Get godoc
// @Summary Fetch an assessment with its questions
// @Description Learners receive questions with the answer key stripped;
// @Description instructors and admins see the full definition.
// @Tags assessments
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "assessment id"
// @Success 200 {object} util.Response{data=model.Assessment}
// @Failure 404 {object} util.Response
// @Router /assessments/{id} [get]
func (c *AssessmentController) Get(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	includeAnswers := claims != nil && (claims.Role == model.Instructor || claims.Role == model.Admin)

	assessment, err := c.AssessmentService.Get(ctx.Param("id"), includeAnswers)
	if err != nil {
		if errors.Is(err, util.ErrAssessmentNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, assessment)
}

// ListByCourse godoc
// @Summary List assessments in a course
// @Tags assessments
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path string true "course id"
// @Success 200 {object} util.Response{data=[]model.Assessment}
// @Router /courses/{courseId}/assessments [get]
func (c *AssessmentController) ListByCourse(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	publishedOnly := claims == nil || claims.Role == model.Student

	assessments, err := c.AssessmentService.ListByCourse(ctx.Param("courseId"), publishedOnly)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, assessments)
}

// Delete godoc
// @Summary Delete an assessment
// @Tags assessments
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "assessment id"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /assessments/{id} [delete]
func (c *AssessmentController) Delete(ctx *gin.Context) {
	if err := c.AssessmentService.Delete(ctx.Param("id")); err != nil {
		if errors.Is(err, util.ErrAssessmentNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

// AddQuestion godoc
// @Summary Add a question to an assessment
// @Description The type-specific payload is validated against the question
// @Description type before the row is stored.
// @Tags assessments
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "assessment id"
// @Param   body body service.QuestionRequest true "question definition"
// @Success 201 {object} util.Response{data=model.Question}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /assessments/{id}/questions [post]
func (c *AssessmentController) AddQuestion(ctx *gin.Context) {
	var req service.QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	question, err := c.AssessmentService.AddQuestion(ctx.Param("id"), req)
	if err != nil {
		if errors.Is(err, util.ErrAssessmentNotFound) {
			util.NotFound(ctx)
		} else {
			util.BadRequest(ctx, err.Error())
		}
		return
	}
	util.Created(ctx, question)
}

// UpdateQuestion godoc
// @Summary Update a question
// @Tags assessments
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   questionId path string true "question id"
// @Param   body body service.QuestionRequest true "question definition"
// @Success 200 {object} util.Response{data=model.Question}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /questions/{questionId} [put]
func (c *AssessmentController) UpdateQuestion(ctx *gin.Context) {
	var req service.QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	question, err := c.AssessmentService.UpdateQuestion(ctx.Param("questionId"), req)
	if err != nil {
		if errors.Is(err, util.ErrQuestionNotFound) {
			util.NotFound(ctx)
		} else {
			util.BadRequest(ctx, err.Error())
		}
		return
	}
	util.Success(ctx, question)
}

// DeleteQuestion godoc
// @Summary Delete a question
// @Tags assessments
// @Produce  json
// @Security ApiKeyAuth
// @Param   questionId path string true "question id"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /questions/{questionId} [delete]
func (c *AssessmentController) DeleteQuestion(ctx *gin.Context) {
	if err := c.AssessmentService.DeleteQuestion(ctx.Param("questionId")); err != nil {
		if errors.Is(err, util.ErrQuestionNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

// ListPendingManual godoc
// @Summary Attempts waiting on manual grading
// @Tags assessments
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "assessment id"
// @Success 200 {object} util.Response{data=[]model.AssessmentAttempt}
// @Router /assessments/{id}/pending-manual [get]
func (c *AssessmentController) ListPendingManual(ctx *gin.Context) {
	attempts, err := c.AttemptService.ListPendingManual(ctx.Param("id"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, attempts)
}

// ListSkillMappings godoc
// @Summary Skill mappings across an assessment's questions
// @Tags assessments
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "assessment id"
// @Success 200 {object} util.Response{data=[]model.AssessmentSkillMapping}
// @Router /assessments/{id}/skill-mappings [get]
func (c *AssessmentController) ListSkillMappings(ctx *gin.Context) {
	mappings, err := c.SkillService.ListMappingsByAssessment(ctx.Param("id"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, mappings)
}
