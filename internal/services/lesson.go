package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/courseforge-backend/internal/apierr"
	"github.com/yungbote/courseforge-backend/internal/logger"
	"github.com/yungbote/courseforge-backend/internal/repos"
	"github.com/yungbote/courseforge-backend/internal/types"
)

const maxLessonTitleLen = 200

type CreateLessonInput struct {
	Title string `json:"title"`
}

type UpdateLessonInput struct {
	Title    *string          `json:"title"`
	Status   *string          `json:"status"`
	Position *int             `json:"position"`
	Content  *json.RawMessage `json:"content"`
}

type LessonService interface {
	Create(ctx context.Context, ownerUserID string, moduleID uuid.UUID, input CreateLessonInput) (*types.Lesson, error)
	Get(ctx context.Context, ownerUserID string, id uuid.UUID) (*types.Lesson, error)
	ListForModule(ctx context.Context, ownerUserID string, moduleID uuid.UUID) ([]*types.Lesson, error)

	// Patch is conditional on the updated_at the caller last observed, in
	// epoch milliseconds, same as CourseService.Patch.
	Patch(ctx context.Context, ownerUserID string, id uuid.UUID, expectedMillis int64, input UpdateLessonInput) (*types.Lesson, error)
}

type lessonService struct {
	db         *gorm.DB
	log        *logger.Logger
	moduleRepo repos.CourseModuleRepo
	lessonRepo repos.LessonRepo
}

func NewLessonService(db *gorm.DB, baseLog *logger.Logger, moduleRepo repos.CourseModuleRepo, lessonRepo repos.LessonRepo) LessonService {
	return &lessonService{
		db:         db,
		log:        baseLog.With("service", "LessonService"),
		moduleRepo: moduleRepo,
		lessonRepo: lessonRepo,
	}
}

func validLessonStatus(s string) bool {
	switch s {
	case types.LessonStatusDraft, types.LessonStatusPublished, types.LessonStatusArchived:
		return true
	}
	return false
}

// validateLessonContent checks that content is an array of well-formed
// blocks. Manual edits go through the same contract the generator writes.
func validateLessonContent(raw json.RawMessage) error {
	var blocks []types.LessonBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return fmt.Errorf("content must be an array of blocks: %w", err)
	}
	for i, b := range blocks {
		switch b.Kind {
		case "heading", "paragraph", "callout":
			if strings.TrimSpace(b.ContentMD) == "" {
				return fmt.Errorf("block %d (%s) requires content_md", i+1, b.Kind)
			}
		case "bullets", "steps":
			if len(b.Items) == 0 {
				return fmt.Errorf("block %d (%s) requires items", i+1, b.Kind)
			}
		case "divider":
		default:
			return fmt.Errorf("block %d has unknown kind %q", i+1, b.Kind)
		}
	}
	return nil
}

func (s *lessonService) Create(ctx context.Context, ownerUserID string, moduleID uuid.UUID, input CreateLessonInput) (*types.Lesson, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" || len(title) > maxLessonTitleLen {
		return nil, badRequest(fmt.Errorf("title must be 1-%d characters", maxLessonTitleLen))
	}

	var lesson *types.Lesson
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		module, err := s.moduleRepo.GetByIDForOwner(ctx, tx, moduleID, ownerUserID)
		if err != nil {
			return apierr.Internal(fmt.Errorf("load module: %w", err))
		}
		if module == nil {
			return apierr.NotFound("module")
		}

		max, err := s.lessonRepo.MaxPositionForModule(ctx, tx, moduleID)
		if err != nil {
			return apierr.Internal(fmt.Errorf("max lesson position: %w", err))
		}

		now := time.Now()
		lesson = &types.Lesson{
			ID:               uuid.New(),
			ModuleID:         moduleID,
			Title:            title,
			Position:         max + 1,
			Status:           types.LessonStatusDraft,
			Content:          datatypes.JSON([]byte("[]")),
			GenerationStatus: types.GenerationStatusPending,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if _, err := s.lessonRepo.Create(ctx, tx, []*types.Lesson{lesson}); err != nil {
			return apierr.Internal(fmt.Errorf("create lesson: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lesson, nil
}

func (s *lessonService) Get(ctx context.Context, ownerUserID string, id uuid.UUID) (*types.Lesson, error) {
	lesson, err := s.lessonRepo.GetByIDForOwner(ctx, nil, id, ownerUserID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load lesson: %w", err))
	}
	if lesson == nil {
		return nil, apierr.NotFound("lesson")
	}
	return lesson, nil
}

func (s *lessonService) ListForModule(ctx context.Context, ownerUserID string, moduleID uuid.UUID) ([]*types.Lesson, error) {
	module, err := s.moduleRepo.GetByIDForOwner(ctx, nil, moduleID, ownerUserID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load module: %w", err))
	}
	if module == nil {
		return nil, apierr.NotFound("module")
	}
	lessons, err := s.lessonRepo.GetByModuleID(ctx, nil, moduleID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("list lessons: %w", err))
	}
	return lessons, nil
}

func (s *lessonService) Patch(ctx context.Context, ownerUserID string, id uuid.UUID, expectedMillis int64, input UpdateLessonInput) (*types.Lesson, error) {
	if input.Title != nil && (strings.TrimSpace(*input.Title) == "" || len(*input.Title) > maxLessonTitleLen) {
		return nil, badRequest(fmt.Errorf("title must be 1-%d characters", maxLessonTitleLen))
	}
	if input.Status != nil && !validLessonStatus(*input.Status) {
		return nil, badRequest(fmt.Errorf("invalid status"))
	}
	if input.Position != nil && *input.Position < 1 {
		return nil, badRequest(fmt.Errorf("position must be at least 1"))
	}
	if input.Content != nil {
		if err := validateLessonContent(*input.Content); err != nil {
			return nil, badRequest(err)
		}
	}

	var updated *types.Lesson
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lesson, err := s.lessonRepo.GetByIDForOwner(ctx, tx, id, ownerUserID)
		if err != nil {
			return apierr.Internal(fmt.Errorf("load lesson: %w", err))
		}
		if lesson == nil {
			return apierr.NotFound("lesson")
		}
		if lesson.UpdatedAt.UnixMilli() != expectedMillis {
			return apierr.VersionConflict(lesson.UpdatedAt.UnixMilli(), expectedMillis)
		}

		updates := map[string]interface{}{"updated_at": time.Now()}
		if input.Title != nil {
			updates["title"] = strings.TrimSpace(*input.Title)
		}
		if input.Status != nil {
			updates["status"] = *input.Status
		}
		if input.Position != nil {
			updates["position"] = *input.Position
		}
		if input.Content != nil {
			updates["content"] = datatypes.JSON(*input.Content)
		}

		rows, err := s.lessonRepo.UpdateFieldsIfUnmodified(ctx, tx, id, lesson.UpdatedAt, updates)
		if err != nil {
			return apierr.Internal(fmt.Errorf("update lesson: %w", err))
		}
		if rows == 0 {
			return apierr.VersionConflict(lesson.UpdatedAt.UnixMilli(), expectedMillis)
		}

		updated, err = s.lessonRepo.GetByIDForOwner(ctx, tx, id, ownerUserID)
		if err != nil {
			return apierr.Internal(fmt.Errorf("reload lesson: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
