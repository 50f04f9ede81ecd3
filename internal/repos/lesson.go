package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/courseforge-backend/internal/logger"
	"github.com/yungbote/courseforge-backend/internal/types"
)

// GenerationTarget is the per-lesson projection the content generator feeds
// to the AI provider: the lesson plus enough surrounding context for a
// useful prompt.
type GenerationTarget struct {
	LessonID         uuid.UUID `gorm:"column:lesson_id"`
	LessonTitle      string    `gorm:"column:lesson_title"`
	ModuleTitle      string    `gorm:"column:module_title"`
	CourseTitle      string    `gorm:"column:course_title"`
	CourseSummary    string    `gorm:"column:course_summary"`
	BriefDetails     string    `gorm:"column:brief_details"`
	LearnerLevel     string    `gorm:"column:learner_level"`
	TargetDifficulty string    `gorm:"column:target_difficulty"`
}

type LessonRepo interface {
	Create(ctx context.Context, tx *gorm.DB, lessons []*types.Lesson) ([]*types.Lesson, error)
	GetByIDForOwner(ctx context.Context, tx *gorm.DB, id uuid.UUID, ownerUserID string) (*types.Lesson, error)
	GetByModuleID(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID) ([]*types.Lesson, error)
	MaxPositionForModule(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID) (int, error)

	// ListGenerationTargets returns the pending lessons of a course in module
	// then lesson order, joined with module/course/brief prompt context.
	ListGenerationTargets(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]GenerationTarget, error)

	// UpdateFields is the unconditional single-row update used by the content
	// generator, which is the sole writer of generation_status during a run.
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error

	UpdateFieldsIfUnmodified(ctx context.Context, tx *gorm.DB, id uuid.UUID, observedUpdatedAt time.Time, updates map[string]interface{}) (int64, error)

	// MarkStuckGeneratingFailed flags lessons a crashed run left in
	// "generating" as failed so they stop looking in-flight.
	MarkStuckGeneratingFailed(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (int64, error)

	CountByGenerationStatus(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (map[string]int64, error)
}

type lessonRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
	return &lessonRepo{db: db, log: baseLog.With("repo", "LessonRepo")}
}

func (r *lessonRepo) Create(ctx context.Context, tx *gorm.DB, lessons []*types.Lesson) ([]*types.Lesson, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(lessons) == 0 {
		return []*types.Lesson{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&lessons).Error; err != nil {
		return nil, err
	}
	return lessons, nil
}

func (r *lessonRepo) GetByIDForOwner(ctx context.Context, tx *gorm.DB, id uuid.UUID, ownerUserID string) (*types.Lesson, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var lesson types.Lesson
	err := transaction.WithContext(ctx).
		Joins("JOIN course_module ON course_module.id = lesson.module_id").
		Joins("JOIN course ON course.id = course_module.course_id").
		Where("lesson.id = ? AND course.owner_user_id = ? AND course.deleted_at IS NULL", id, ownerUserID).
		First(&lesson).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (r *lessonRepo) GetByModuleID(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID) ([]*types.Lesson, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Lesson
	if err := transaction.WithContext(ctx).
		Where("module_id = ?", moduleID).
		Order("position ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *lessonRepo) MaxPositionForModule(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID) (int, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var max int
	err := transaction.WithContext(ctx).Model(&types.Lesson{}).
		Where("module_id = ?", moduleID).
		Select("COALESCE(MAX(position), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max, nil
}

func (r *lessonRepo) ListGenerationTargets(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]GenerationTarget, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var targets []GenerationTarget
	err := transaction.WithContext(ctx).
		Table("lesson").
		Select(`lesson.id AS lesson_id,
			lesson.title AS lesson_title,
			course_module.title AS module_title,
			course.title AS course_title,
			COALESCE(course.summary, '') AS course_summary,
			COALESCE(course_brief.details, '') AS brief_details,
			COALESCE(course_brief.learner_level, '') AS learner_level,
			COALESCE(course_brief.target_difficulty, '') AS target_difficulty`).
		Joins("JOIN course_module ON course_module.id = lesson.module_id").
		Joins("JOIN course ON course.id = course_module.course_id").
		Joins("LEFT JOIN course_brief ON course_brief.id = course.brief_id").
		Where("course.id = ? AND lesson.deleted_at IS NULL AND lesson.generation_status = ?", courseID, types.GenerationStatusPending).
		Order("course_module.position ASC, lesson.position ASC").
		Scan(&targets).Error
	if err != nil {
		return nil, err
	}
	return targets, nil
}

func (r *lessonRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Model(&types.Lesson{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *lessonRepo) UpdateFieldsIfUnmodified(ctx context.Context, tx *gorm.DB, id uuid.UUID, observedUpdatedAt time.Time, updates map[string]interface{}) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).Model(&types.Lesson{}).
		Where("id = ? AND updated_at = ?", id, observedUpdatedAt).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *lessonRepo) MarkStuckGeneratingFailed(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).Model(&types.Lesson{}).
		Where(`generation_status = ? AND module_id IN (
			SELECT id FROM course_module WHERE course_id = ? AND deleted_at IS NULL
		)`, types.GenerationStatusGenerating, courseID).
		Updates(map[string]interface{}{
			"generation_status": types.GenerationStatusFailed,
			"updated_at":        time.Now(),
		})
	return res.RowsAffected, res.Error
}

func (r *lessonRepo) CountByGenerationStatus(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (map[string]int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []struct {
		GenerationStatus string `gorm:"column:generation_status"`
		Count            int64  `gorm:"column:count"`
	}
	err := transaction.WithContext(ctx).
		Table("lesson").
		Select("lesson.generation_status, COUNT(*) AS count").
		Joins("JOIN course_module ON course_module.id = lesson.module_id").
		Where("course_module.course_id = ? AND lesson.deleted_at IS NULL", courseID).
		Group("lesson.generation_status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.GenerationStatus] = row.Count
	}
	return out, nil
}
