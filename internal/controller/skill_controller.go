package controller

import (
	"errors"
	"strconv"

	"lms_backend/internal/model"
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type SkillController struct {
	SkillService *service.SkillService
}

func NewSkillController(skillService *service.SkillService) *SkillController {
	return &SkillController{SkillService: skillService}
}

type skillRequest struct {
	Name        string  `json:"name" binding:"required"`
	Slug        string  `json:"slug" binding:"required"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	ParentID    *string `json:"parentId"`
}

// CreateSkill godoc
// @Summary Create a skill
// @Tags skills
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body skillRequest true "skill definition"
// @Success 201 {object} util.Response{data=model.Skill}
// @Failure 400 {object} util.Response
// @Router /skills [post]
func (c *SkillController) CreateSkill(ctx *gin.Context) {
	var req skillRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	skill := &model.Skill{
		Name:        req.Name,
		Slug:        req.Slug,
		Category:    req.Category,
		Description: req.Description,
		ParentID:    req.ParentID,
		IsActive:    true,
	}
	if err := c.SkillService.CreateSkill(skill); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Created(ctx, skill)
}

// ListSkills godoc
// @Summary List skills
// @Tags skills
// @Produce  json
// @Security ApiKeyAuth
// @Param   all query bool false "include inactive skills"
// @Success 200 {object} util.Response{data=[]model.Skill}
// @Router /skills [get]
func (c *SkillController) ListSkills(ctx *gin.Context) {
	all, _ := strconv.ParseBool(ctx.Query("all"))
	skills, err := c.SkillService.ListSkills(!all)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, skills)
}

type mappingRequest struct {
	QuestionID          string `json:"questionId" binding:"required"`
	SkillID             string `json:"skillId" binding:"required"`
	Weight              int    `json:"weight"`
	ProficiencyRequired string `json:"proficiencyRequired"`
}

// CreateMapping godoc
// @Summary Map a question to a skill
// @Tags skills
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body mappingRequest true "question-skill link"
// @Success 201 {object} util.Response{data=model.AssessmentSkillMapping}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /skill-mappings [post]
func (c *SkillController) CreateMapping(ctx *gin.Context) {
	var req mappingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	mapping, err := c.SkillService.CreateMapping(req.QuestionID, req.SkillID, req.Weight, req.ProficiencyRequired)
	switch {
	case err == nil:
		util.Created(ctx, mapping)
	case errors.Is(err, util.ErrSkillNotFound), errors.Is(err, util.ErrQuestionNotFound):
		util.NotFound(ctx)
	default:
		util.LogInternalError(ctx, err)
	}
}

// GetBreakdown godoc
// @Summary Per-skill breakdown for a graded attempt
// @Description Weakest skills come first. Returns 409 until the attempt is
// @Description graded.
// @Tags skills
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "attempt id"
// @Success 200 {object} util.Response{data=service.SkillBreakdownReport}
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response "attempt not graded yet"
// @Router /attempts/{id}/skill-breakdown [get]
func (c *SkillController) GetBreakdown(ctx *gin.Context) {
	report, err := c.SkillService.GetSkillBreakdown(ctx.Param("id"))
	switch {
	case err == nil:
		util.Success(ctx, report)
	case errors.Is(err, util.ErrAttemptNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrNotReady):
		util.Conflict(ctx, "skill breakdown is not available yet")
	default:
		util.LogInternalError(ctx, err)
	}
}

// GetMyProgress godoc
// @Summary The caller's skill proficiency summary
// @Tags skills
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]service.ProgressSummary}
// @Router /skills/progress [get]
func (c *SkillController) GetMyProgress(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	summaries, err := c.SkillService.ListLearnerProgress(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, summaries)
}

// GetLearnerProgress godoc
// @Summary A learner's skill proficiency summary
// @Tags skills
// @Produce  json
// @Security ApiKeyAuth
// @Param   userId path int true "learner id"
// @Success 200 {object} util.Response{data=[]service.ProgressSummary}
// @Failure 400 {object} util.Response
// @Router /learners/{userId}/skills/progress [get]
func (c *SkillController) GetLearnerProgress(ctx *gin.Context) {
	userID, err := strconv.ParseUint(ctx.Param("userId"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid learner id")
		return
	}

	summaries, err := c.SkillService.ListLearnerProgress(uint(userID))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, summaries)
}
