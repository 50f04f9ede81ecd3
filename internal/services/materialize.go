package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/courseforge-backend/internal/apierr"
	"github.com/yungbote/courseforge-backend/internal/types"
)

// materializeOutline expands a stored outline into module and lesson rows in
// outline order, positions starting at 1. Lessons start with empty content
// and generation_status pending; the content generator fills them in later.
func (s *commitService) materializeOutline(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, outline *types.PlanOutline) (int, int, error) {
	now := time.Now()
	lessonTotal := 0

	for i, om := range outline.Modules {
		module := &types.CourseModule{
			ID:        uuid.New(),
			CourseID:  courseID,
			Title:     om.Title,
			Summary:   om.Summary,
			Position:  i + 1,
			Status:    types.CourseStatusDraft,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err := s.moduleRepo.Create(ctx, tx, []*types.CourseModule{module}); err != nil {
			return 0, 0, apierr.Internal(fmt.Errorf("create module %d: %w", i+1, err))
		}

		lessons := make([]*types.Lesson, 0, len(om.Lessons))
		for j, ol := range om.Lessons {
			lessons = append(lessons, &types.Lesson{
				ID:               uuid.New(),
				ModuleID:         module.ID,
				Title:            ol.Title,
				Position:         j + 1,
				Status:           types.LessonStatusDraft,
				Content:          datatypes.JSON([]byte("[]")),
				GenerationStatus: types.GenerationStatusPending,
				CreatedAt:        now,
				UpdatedAt:        now,
			})
		}
		if _, err := s.lessonRepo.Create(ctx, tx, lessons); err != nil {
			return 0, 0, apierr.Internal(fmt.Errorf("create lessons for module %d: %w", i+1, err))
		}
		lessonTotal += len(lessons)
	}

	return len(outline.Modules), lessonTotal, nil
}
