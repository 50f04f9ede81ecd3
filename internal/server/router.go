package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/courseforge-backend/internal/handlers"
	"github.com/yungbote/courseforge-backend/internal/logger"
	"github.com/yungbote/courseforge-backend/internal/middleware"
	"github.com/yungbote/courseforge-backend/internal/utils"
)

type Handlers struct {
	Briefs  *handlers.BriefHandler
	AI      *handlers.AIHandler
	Courses *handlers.CourseHandler
	Modules *handlers.ModuleHandler
	Lessons *handlers.LessonHandler
}

func NewRouter(log *logger.Logger, jwtSecret []byte, h Handlers) *gin.Engine {
	if utils.GetEnv("LOG_MODE", "dev", nil) == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = []string{utils.GetEnv("FRONTEND_ORIGIN", "http://localhost:5173", log)}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", "If-Match")
	corsCfg.ExposeHeaders = append(corsCfg.ExposeHeaders, "ETag")
	corsCfg.AllowCredentials = true
	router.Use(cors.New(corsCfg))

	router.GET("/healthcheck", handlers.Healthcheck)

	api := router.Group("/api")
	api.Use(middleware.Auth(jwtSecret, log))
	{
		briefs := api.Group("/course-briefs")
		{
			briefs.POST("", h.Briefs.Create)
			briefs.GET("", h.Briefs.List)
			briefs.GET("/:id", h.Briefs.Get)
			briefs.PATCH("/:id", h.Briefs.Patch)
			briefs.DELETE("/:id", h.Briefs.Abandon)
			briefs.POST("/:id/commit", h.Briefs.Commit)
			briefs.GET("/:id/events", h.Briefs.ListEvents)
			briefs.POST("/:id/events", h.Briefs.AppendEvent)
		}

		ai := api.Group("/ai")
		{
			ai.POST("/generate-outline", h.AI.GenerateOutline)
			ai.POST("/recommend-goals", h.AI.RecommendGoals)
			ai.POST("/analyze-prerequisites", h.AI.AnalyzePrerequisites)
			ai.POST("/assess-level", h.AI.AssessLearnerLevel)
			ai.POST("/generate-lesson-content", h.AI.GenerateLessonContent)
		}

		courses := api.Group("/courses")
		{
			courses.GET("", h.Courses.List)
			courses.GET("/:id", h.Courses.Get)
			courses.PATCH("/:id", h.Courses.Patch)
			courses.GET("/:id/generation", h.Courses.GenerationStatus)
			courses.GET("/:id/modules", h.Courses.ListModules)
		}

		modules := api.Group("/course-modules")
		{
			modules.POST("", h.Modules.Create)
			modules.GET("/:id", h.Modules.Get)
			modules.GET("/:id/lessons", h.Modules.ListLessons)
		}

		lessons := api.Group("/lessons")
		{
			lessons.POST("", h.Lessons.Create)
			lessons.GET("/:id", h.Lessons.Get)
			lessons.PATCH("/:id", h.Lessons.Patch)
		}
	}

	return router
}
