package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/courseforge-backend/internal/apierr"
	"github.com/yungbote/courseforge-backend/internal/logger"
	"github.com/yungbote/courseforge-backend/internal/repos"
	"github.com/yungbote/courseforge-backend/internal/types"
)

const maxCourseTitleLen = 200

type UpdateCourseInput struct {
	Title      *string `json:"title"`
	Summary    *string `json:"summary"`
	Status     *string `json:"status"`
	Visibility *string `json:"visibility"`
}

type GenerationStatusReport struct {
	Run    *types.GenerationRun `json:"run,omitempty"`
	Counts map[string]int64     `json:"counts"`
}

type CourseService interface {
	List(ctx context.Context, ownerUserID string, limit int) ([]*types.Course, error)
	Get(ctx context.Context, ownerUserID string, id uuid.UUID) (*types.Course, error)

	// Patch applies a conditional edit: expectedMillis is the updated_at the
	// caller last observed, in epoch milliseconds. A write against a row that
	// has moved on fails with a version conflict.
	Patch(ctx context.Context, ownerUserID string, id uuid.UUID, expectedMillis int64, input UpdateCourseInput) (*types.Course, error)

	// GenerationStatus reports the latest content generation run for the
	// course together with per-status lesson counts.
	GenerationStatus(ctx context.Context, ownerUserID string, id uuid.UUID) (*GenerationStatusReport, error)
}

type courseService struct {
	db         *gorm.DB
	log        *logger.Logger
	courseRepo repos.CourseRepo
	lessonRepo repos.LessonRepo
	runRepo    repos.GenerationRunRepo
}

func NewCourseService(db *gorm.DB, baseLog *logger.Logger, courseRepo repos.CourseRepo, lessonRepo repos.LessonRepo, runRepo repos.GenerationRunRepo) CourseService {
	return &courseService{
		db:         db,
		log:        baseLog.With("service", "CourseService"),
		courseRepo: courseRepo,
		lessonRepo: lessonRepo,
		runRepo:    runRepo,
	}
}

func validCourseStatus(s string) bool {
	switch s {
	case types.CourseStatusDraft, types.CourseStatusPublished, types.CourseStatusArchived:
		return true
	}
	return false
}

func validVisibility(s string) bool {
	switch s {
	case types.VisibilityPrivate, types.VisibilityUnlisted, types.VisibilityPublic:
		return true
	}
	return false
}

func (s *courseService) List(ctx context.Context, ownerUserID string, limit int) ([]*types.Course, error) {
	courses, err := s.courseRepo.ListByOwner(ctx, nil, ownerUserID, limit)
	if err != nil {
		s.log.Error("List courses failed", "error", err)
		return nil, apierr.Internal(fmt.Errorf("list courses: %w", err))
	}
	return courses, nil
}

func (s *courseService) Get(ctx context.Context, ownerUserID string, id uuid.UUID) (*types.Course, error) {
	course, err := s.courseRepo.GetByIDForOwner(ctx, nil, id, ownerUserID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load course: %w", err))
	}
	if course == nil {
		return nil, apierr.NotFound("course")
	}
	return course, nil
}

func (s *courseService) Patch(ctx context.Context, ownerUserID string, id uuid.UUID, expectedMillis int64, input UpdateCourseInput) (*types.Course, error) {
	if input.Title != nil && (strings.TrimSpace(*input.Title) == "" || len(*input.Title) > maxCourseTitleLen) {
		return nil, badRequest(fmt.Errorf("title must be 1-%d characters", maxCourseTitleLen))
	}
	if input.Status != nil && !validCourseStatus(*input.Status) {
		return nil, badRequest(fmt.Errorf("invalid status"))
	}
	if input.Visibility != nil && !validVisibility(*input.Visibility) {
		return nil, badRequest(fmt.Errorf("invalid visibility"))
	}

	var updated *types.Course
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		course, err := s.courseRepo.GetByIDForOwner(ctx, tx, id, ownerUserID)
		if err != nil {
			return apierr.Internal(fmt.Errorf("load course: %w", err))
		}
		if course == nil {
			return apierr.NotFound("course")
		}
		if course.UpdatedAt.UnixMilli() != expectedMillis {
			return apierr.VersionConflict(course.UpdatedAt.UnixMilli(), expectedMillis)
		}

		updates := map[string]interface{}{"updated_at": time.Now()}
		if input.Title != nil {
			updates["title"] = strings.TrimSpace(*input.Title)
		}
		if input.Summary != nil {
			updates["summary"] = *input.Summary
		}
		if input.Status != nil {
			updates["status"] = *input.Status
		}
		if input.Visibility != nil {
			updates["visibility"] = *input.Visibility
		}

		rows, err := s.courseRepo.UpdateFieldsIfUnmodified(ctx, tx, id, course.UpdatedAt, updates)
		if err != nil {
			return apierr.Internal(fmt.Errorf("update course: %w", err))
		}
		if rows == 0 {
			return apierr.VersionConflict(course.UpdatedAt.UnixMilli(), expectedMillis)
		}

		updated, err = s.courseRepo.GetByIDForOwner(ctx, tx, id, ownerUserID)
		if err != nil {
			return apierr.Internal(fmt.Errorf("reload course: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *courseService) GenerationStatus(ctx context.Context, ownerUserID string, id uuid.UUID) (*GenerationStatusReport, error) {
	course, err := s.courseRepo.GetByIDForOwner(ctx, nil, id, ownerUserID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load course: %w", err))
	}
	if course == nil {
		return nil, apierr.NotFound("course")
	}

	run, err := s.runRepo.GetLatestByCourseID(ctx, nil, id)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load generation run: %w", err))
	}
	counts, err := s.lessonRepo.CountByGenerationStatus(ctx, nil, id)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("count lesson statuses: %w", err))
	}
	return &GenerationStatusReport{Run: run, Counts: counts}, nil
}
