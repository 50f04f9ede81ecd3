package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/yungbote/courseforge-backend/internal/ai"
	"github.com/yungbote/courseforge-backend/internal/db"
	"github.com/yungbote/courseforge-backend/internal/handlers"
	"github.com/yungbote/courseforge-backend/internal/logger"
	"github.com/yungbote/courseforge-backend/internal/repos"
	"github.com/yungbote/courseforge-backend/internal/server"
	"github.com/yungbote/courseforge-backend/internal/services"
	"github.com/yungbote/courseforge-backend/internal/utils"
)

func main() {
	log, err := logger.New(utils.GetEnv("LOG_MODE", "dev", nil))
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres connection failed", "error", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Fatal("Migration failed", "error", err)
	}
	gdb := pg.DB()

	briefRepo := repos.NewBriefRepo(gdb, log)
	eventRepo := repos.NewBriefEventRepo(gdb, log)
	courseRepo := repos.NewCourseRepo(gdb, log)
	moduleRepo := repos.NewCourseModuleRepo(gdb, log)
	lessonRepo := repos.NewLessonRepo(gdb, log)
	runRepo := repos.NewGenerationRunRepo(gdb, log)

	provider, err := ai.NewFromEnv(log)
	if err != nil {
		log.Fatal("AI provider setup failed", "error", err)
	}
	log.Info("AI provider selected", "provider", provider.Name())

	briefSvc := services.NewBriefService(gdb, log, briefRepo, eventRepo)
	outlineSvc := services.NewOutlineService(gdb, log, provider, briefRepo, eventRepo)
	commitSvc := services.NewCommitService(gdb, log, briefRepo, eventRepo, courseRepo, moduleRepo, lessonRepo)
	courseSvc := services.NewCourseService(gdb, log, courseRepo, lessonRepo, runRepo)
	moduleSvc := services.NewModuleService(gdb, log, courseRepo, moduleRepo)
	lessonSvc := services.NewLessonService(gdb, log, moduleRepo, lessonRepo)

	batchSize := utils.GetEnvAsInt("CONTENT_BATCH_SIZE", services.DefaultContentBatchSize, log)
	genSvc := services.NewContentGenerationService(gdb, log, provider, courseRepo, lessonRepo, runRepo, batchSize)
	genSvc.StartWorker(ctx)

	jwtSecret := []byte(utils.GetEnv("JWT_SECRET_KEY", "", log))
	if len(jwtSecret) == 0 {
		log.Fatal("JWT_SECRET_KEY is required")
	}

	router := server.NewRouter(log, jwtSecret, server.Handlers{
		Briefs:  handlers.NewBriefHandler(briefSvc, commitSvc, log),
		AI:      handlers.NewAIHandler(outlineSvc, genSvc, log),
		Courses: handlers.NewCourseHandler(courseSvc, moduleSvc, log),
		Modules: handlers.NewModuleHandler(moduleSvc, lessonSvc, log),
		Lessons: handlers.NewLessonHandler(lessonSvc, log),
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Starting server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
