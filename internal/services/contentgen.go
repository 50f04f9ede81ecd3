package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/courseforge-backend/internal/ai"
	"github.com/yungbote/courseforge-backend/internal/apierr"
	"github.com/yungbote/courseforge-backend/internal/logger"
	"github.com/yungbote/courseforge-backend/internal/repos"
	"github.com/yungbote/courseforge-backend/internal/types"
)

const (
	DefaultContentBatchSize = 3

	claimPollInterval    = 2 * time.Second
	staleRunningAfter    = 2 * time.Minute
	runHeartbeatInterval = 30 * time.Second
)

// ContentGenerationService fills in lesson content for a course in the
// background. Start enqueues a durable run and returns immediately; a worker
// claims runs off the queue and processes pending lessons in small batches,
// generating the lessons of a batch concurrently. A failed lesson never
// fails the run: it is marked failed and the run moves on.
type ContentGenerationService interface {
	// Start enqueues a generation run for the course. At most one run per
	// course may be active at a time.
	Start(ctx context.Context, ownerUserID string, courseID uuid.UUID) (*types.GenerationRun, error)

	// StartWorker launches the claim loop goroutine. It exits when ctx is
	// cancelled.
	StartWorker(ctx context.Context)
}

type contentGenerationService struct {
	db         *gorm.DB
	log        *logger.Logger
	provider   ai.Provider
	courseRepo repos.CourseRepo
	lessonRepo repos.LessonRepo
	runRepo    repos.GenerationRunRepo
	batchSize  int
}

func NewContentGenerationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	provider ai.Provider,
	courseRepo repos.CourseRepo,
	lessonRepo repos.LessonRepo,
	runRepo repos.GenerationRunRepo,
	batchSize int,
) ContentGenerationService {
	if batchSize < 1 {
		batchSize = DefaultContentBatchSize
	}
	return &contentGenerationService{
		db:         db,
		log:        baseLog.With("service", "ContentGenerationService"),
		provider:   provider,
		courseRepo: courseRepo,
		lessonRepo: lessonRepo,
		runRepo:    runRepo,
		batchSize:  batchSize,
	}
}

func (s *contentGenerationService) Start(ctx context.Context, ownerUserID string, courseID uuid.UUID) (*types.GenerationRun, error) {
	course, err := s.courseRepo.GetByIDForOwner(ctx, nil, courseID, ownerUserID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load course: %w", err))
	}
	if course == nil {
		return nil, apierr.NotFound("course")
	}

	active, err := s.runRepo.ActiveExistsForCourse(ctx, nil, courseID, staleRunningAfter)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("check active runs: %w", err))
	}
	if active {
		return nil, apierr.StateConflict(fmt.Errorf("content generation is already in progress for this course"))
	}

	now := time.Now()
	run := &types.GenerationRun{
		ID:          uuid.New(),
		OwnerUserID: ownerUserID,
		CourseID:    courseID,
		Status:      types.RunStatusQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.runRepo.Create(ctx, nil, []*types.GenerationRun{run}); err != nil {
		return nil, apierr.Internal(fmt.Errorf("enqueue generation run: %w", err))
	}

	s.log.Info("Generation run enqueued", "run_id", run.ID, "course_id", courseID)
	return run, nil
}

func (s *contentGenerationService) StartWorker(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(claimPollInterval)
		defer ticker.Stop()
		s.log.Info("Content generation worker started",
			"batch_size", s.batchSize,
			"provider", s.provider.Name())
		for {
			select {
			case <-ctx.Done():
				s.log.Info("Content generation worker stopping")
				return
			case <-ticker.C:
				run, err := s.runRepo.ClaimNextRunnable(ctx, nil, staleRunningAfter)
				if err != nil {
					s.log.Error("Claim generation run failed", "error", err)
					continue
				}
				if run == nil {
					continue
				}
				s.processRun(ctx, run)
			}
		}
	}()
}

// startHeartbeat keeps the run's heartbeat fresh on a ticker while the run is
// processed. A single provider call can outlast staleRunningAfter, so
// heartbeating only between batches would let another worker reclaim a live
// run. Returns a stop function that waits for the ticker goroutine to exit.
func (s *contentGenerationService) startHeartbeat(ctx context.Context, runID uuid.UUID, interval time.Duration) func() {
	hbCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-hbCtx.Done():
				return
			case <-ticker.C:
				if err := s.runRepo.Heartbeat(ctx, nil, runID); err != nil {
					s.log.Error("Heartbeat failed", "run_id", runID, "error", err)
				}
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func (s *contentGenerationService) processRun(ctx context.Context, run *types.GenerationRun) {
	log := s.log.With("run_id", run.ID, "course_id", run.CourseID, "attempt", run.Attempts)
	log.Info("Processing generation run")

	stopHeartbeat := s.startHeartbeat(ctx, run.ID, runHeartbeatInterval)
	defer stopHeartbeat()

	failRun := func(cause error) {
		now := time.Now()
		if err := s.runRepo.UpdateFields(ctx, nil, run.ID, map[string]interface{}{
			"status":        types.RunStatusFailed,
			"error":         cause.Error(),
			"last_error_at": now,
			"locked_at":     nil,
			"updated_at":    now,
		}); err != nil {
			log.Error("Mark run failed errored", "error", err)
		}
	}

	// Lessons a previous crashed attempt left in "generating" are dead: no
	// goroutine is working on them anymore. Flip them to failed before
	// scanning for pending work.
	stuck, err := s.lessonRepo.MarkStuckGeneratingFailed(ctx, nil, run.CourseID)
	if err != nil {
		log.Error("Reconcile stuck lessons failed", "error", err)
		failRun(fmt.Errorf("reconcile stuck lessons: %w", err))
		return
	}
	if stuck > 0 {
		log.Warn("Reconciled lessons stuck in generating", "count", stuck)
	}

	targets, err := s.lessonRepo.ListGenerationTargets(ctx, nil, run.CourseID)
	if err != nil {
		log.Error("List generation targets failed", "error", err)
		failRun(fmt.Errorf("list generation targets: %w", err))
		return
	}
	if err := s.runRepo.UpdateFields(ctx, nil, run.ID, map[string]interface{}{
		"lessons_total": len(targets),
		"updated_at":    time.Now(),
	}); err != nil {
		log.Error("Record lesson total failed", "error", err)
	}
	log.Info("Generation targets resolved", "count", len(targets))

	var failed atomic.Int64
	for start := 0; start < len(targets); start += s.batchSize {
		if err := ctx.Err(); err != nil {
			failRun(fmt.Errorf("worker shutting down: %w", err))
			return
		}

		end := start + s.batchSize
		if end > len(targets) {
			end = len(targets)
		}

		var g errgroup.Group
		for _, target := range targets[start:end] {
			target := target
			g.Go(func() error {
				s.generateLesson(ctx, log, target, &failed)
				return nil
			})
		}
		// generateLesson never returns an error; Wait is a batch barrier.
		_ = g.Wait()
	}

	now := time.Now()
	if err := s.runRepo.UpdateFields(ctx, nil, run.ID, map[string]interface{}{
		"status":         types.RunStatusSucceeded,
		"lessons_failed": failed.Load(),
		"locked_at":      nil,
		"updated_at":     now,
	}); err != nil {
		log.Error("Mark run succeeded errored", "error", err)
		return
	}
	log.Info("Generation run finished", "lessons", len(targets), "failed", failed.Load())
}

// generateLesson moves one lesson through generating -> generated|failed.
// All failure paths are absorbed here so one bad lesson cannot take down the
// batch or the run.
func (s *contentGenerationService) generateLesson(ctx context.Context, log *logger.Logger, t repos.GenerationTarget, failed *atomic.Int64) {
	markFailed := func(cause error) {
		failed.Add(1)
		log.Warn("Lesson generation failed", "lesson_id", t.LessonID, "error", cause)
		if err := s.lessonRepo.UpdateFields(ctx, nil, t.LessonID, map[string]interface{}{
			"generation_status": types.GenerationStatusFailed,
			"updated_at":        time.Now(),
		}); err != nil {
			log.Error("Mark lesson failed errored", "lesson_id", t.LessonID, "error", err)
		}
	}

	if err := s.lessonRepo.UpdateFields(ctx, nil, t.LessonID, map[string]interface{}{
		"generation_status": types.GenerationStatusGenerating,
		"updated_at":        time.Now(),
	}); err != nil {
		markFailed(fmt.Errorf("mark generating: %w", err))
		return
	}

	res, err := s.provider.GenerateLessonContent(ctx, ai.LessonContentRequest{
		CourseTitle:      t.CourseTitle,
		CourseSummary:    t.CourseSummary,
		ModuleTitle:      t.ModuleTitle,
		LessonTitle:      t.LessonTitle,
		Details:          t.BriefDetails,
		LearnerLevel:     t.LearnerLevel,
		TargetDifficulty: t.TargetDifficulty,
	})
	if err != nil {
		markFailed(fmt.Errorf("provider: %w", err))
		return
	}

	blocks, err := json.Marshal(res.Blocks)
	if err != nil {
		markFailed(fmt.Errorf("marshal blocks: %w", err))
		return
	}
	if err := s.lessonRepo.UpdateFields(ctx, nil, t.LessonID, map[string]interface{}{
		"content":              datatypes.JSON(blocks),
		"generation_status":    types.GenerationStatusGenerated,
		"reading_time_minutes": res.ReadingTimeMinutes,
		"updated_at":           time.Now(),
	}); err != nil {
		markFailed(fmt.Errorf("store content: %w", err))
		return
	}

	log.Debug("Lesson generated", "lesson_id", t.LessonID, "reading_time_minutes", res.ReadingTimeMinutes)
}
