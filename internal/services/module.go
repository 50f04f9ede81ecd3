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

const (
	maxModuleTitleLen   = 200
	maxModuleSummaryLen = 2000
)

type CreateModuleInput struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

type ModuleService interface {
	// Create appends a module at the end of the course: position is one past
	// the current maximum.
	Create(ctx context.Context, ownerUserID string, courseID uuid.UUID, input CreateModuleInput) (*types.CourseModule, error)
	ListForCourse(ctx context.Context, ownerUserID string, courseID uuid.UUID) ([]*types.CourseModule, error)
	Get(ctx context.Context, ownerUserID string, id uuid.UUID) (*types.CourseModule, error)
}

type moduleService struct {
	db         *gorm.DB
	log        *logger.Logger
	courseRepo repos.CourseRepo
	moduleRepo repos.CourseModuleRepo
}

func NewModuleService(db *gorm.DB, baseLog *logger.Logger, courseRepo repos.CourseRepo, moduleRepo repos.CourseModuleRepo) ModuleService {
	return &moduleService{
		db:         db,
		log:        baseLog.With("service", "ModuleService"),
		courseRepo: courseRepo,
		moduleRepo: moduleRepo,
	}
}

func (s *moduleService) Create(ctx context.Context, ownerUserID string, courseID uuid.UUID, input CreateModuleInput) (*types.CourseModule, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" || len(title) > maxModuleTitleLen {
		return nil, badRequest(fmt.Errorf("title must be 1-%d characters", maxModuleTitleLen))
	}
	if len(input.Summary) > maxModuleSummaryLen {
		return nil, badRequest(fmt.Errorf("summary must be at most %d characters", maxModuleSummaryLen))
	}

	var module *types.CourseModule
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		course, err := s.courseRepo.GetByIDForOwner(ctx, tx, courseID, ownerUserID)
		if err != nil {
			return apierr.Internal(fmt.Errorf("load course: %w", err))
		}
		if course == nil {
			return apierr.NotFound("course")
		}

		max, err := s.moduleRepo.MaxPositionForCourse(ctx, tx, courseID)
		if err != nil {
			return apierr.Internal(fmt.Errorf("max module position: %w", err))
		}

		now := time.Now()
		module = &types.CourseModule{
			ID:        uuid.New(),
			CourseID:  courseID,
			Title:     title,
			Summary:   input.Summary,
			Position:  max + 1,
			Status:    types.CourseStatusDraft,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err := s.moduleRepo.Create(ctx, tx, []*types.CourseModule{module}); err != nil {
			return apierr.Internal(fmt.Errorf("create module: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return module, nil
}

func (s *moduleService) ListForCourse(ctx context.Context, ownerUserID string, courseID uuid.UUID) ([]*types.CourseModule, error) {
	course, err := s.courseRepo.GetByIDForOwner(ctx, nil, courseID, ownerUserID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load course: %w", err))
	}
	if course == nil {
		return nil, apierr.NotFound("course")
	}
	modules, err := s.moduleRepo.GetByCourseID(ctx, nil, courseID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("list modules: %w", err))
	}
	return modules, nil
}

func (s *moduleService) Get(ctx context.Context, ownerUserID string, id uuid.UUID) (*types.CourseModule, error) {
	module, err := s.moduleRepo.GetByIDForOwner(ctx, nil, id, ownerUserID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load module: %w", err))
	}
	if module == nil {
		return nil, apierr.NotFound("module")
	}
	return module, nil
}
