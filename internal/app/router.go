package app

import (
	"lms_backend/docs"
	"lms_backend/internal/config"
	"lms_backend/internal/middleware"
	"lms_backend/internal/model"
	"lms_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	a.registerPublicRoutes(router, c)

	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		a.registerLearnerRoutes(authGroup, c)
		a.registerInstructorRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}
}

func (a *App) registerLearnerRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/profile", c.auth.GetProfile)
	rg.PUT("/profile", c.auth.UpdateProfile)

	// courses and enrollments
	rg.POST("/courses/:courseId/enroll", c.enrollment.Enroll)
	rg.GET("/enrollments", c.enrollment.ListMine)
	rg.GET("/courses/:courseId/assessments", c.assessment.ListByCourse)

	// assessments, learner view
	rg.GET("/assessments/:id", c.assessment.Get)

	// attempt lifecycle
	rg.POST("/assessments/:id/attempts", c.attempt.Start)
	rg.GET("/assessments/:id/attempts", c.attempt.ListMine)
	rg.POST("/attempts/:id/submit", c.attempt.Submit)
	rg.PUT("/attempts/:id/draft", c.attempt.SaveDraft)
	rg.GET("/attempts/:id", c.attempt.GetResult)
	rg.GET("/attempts/:id/skill-breakdown", c.skill.GetBreakdown)

	// skill progress
	rg.GET("/skills", c.skill.ListSkills)
	rg.GET("/skills/progress", c.skill.GetMyProgress)
}

func (a *App) registerInstructorRoutes(rg *gin.RouterGroup, c *controllers) {
	instructor := rg.Group("/")
	instructor.Use(middleware.RoleMiddleware(model.Instructor))
	{
		// assessment management
		instructor.POST("/assessments", c.assessment.Create)
		instructor.PUT("/assessments/:id", c.assessment.Update)
		instructor.PATCH("/assessments/:id/publish", c.assessment.SetPublished)
		instructor.DELETE("/assessments/:id", c.assessment.Delete)

		// question management
		instructor.POST("/assessments/:id/questions", c.assessment.AddQuestion)
		instructor.PUT("/questions/:questionId", c.assessment.UpdateQuestion)
		instructor.DELETE("/questions/:questionId", c.assessment.DeleteQuestion)

		// manual grading
		instructor.GET("/assessments/:id/pending-manual", c.assessment.ListPendingManual)
		instructor.POST("/attempts/:id/grade", c.attempt.ManualGrade)

		// skills and mappings
		instructor.POST("/skills", c.skill.CreateSkill)
		instructor.POST("/skill-mappings", c.skill.CreateMapping)
		instructor.GET("/assessments/:id/skill-mappings", c.assessment.ListSkillMappings)
		instructor.GET("/learners/:userId/skills/progress", c.skill.GetLearnerProgress)
	}
}
