package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/courseforge-backend/internal/logger"
	"github.com/yungbote/courseforge-backend/internal/types"
)

type BriefRepo interface {
	Create(ctx context.Context, tx *gorm.DB, briefs []*types.CourseBrief) ([]*types.CourseBrief, error)
	GetByIDForOwner(ctx context.Context, tx *gorm.DB, id uuid.UUID, ownerUserID string) (*types.CourseBrief, error)
	ListByOwner(ctx context.Context, tx *gorm.DB, ownerUserID string, limit int) ([]*types.CourseBrief, error)

	// UpdateFieldsIfVersion applies updates only when the stored version still
	// matches expectedVersion. The returned row count is 0 when a concurrent
	// writer got there first.
	UpdateFieldsIfVersion(ctx context.Context, tx *gorm.DB, id uuid.UUID, expectedVersion int, updates map[string]interface{}) (int64, error)

	// UpdateFieldsIfUncommitted applies updates only while committed_course_id
	// is still null; the winner of two concurrent commits is decided here.
	UpdateFieldsIfUncommitted(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) (int64, error)
}

type briefRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBriefRepo(db *gorm.DB, baseLog *logger.Logger) BriefRepo {
	return &briefRepo{db: db, log: baseLog.With("repo", "BriefRepo")}
}

func (r *briefRepo) Create(ctx context.Context, tx *gorm.DB, briefs []*types.CourseBrief) ([]*types.CourseBrief, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(briefs) == 0 {
		return []*types.CourseBrief{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&briefs).Error; err != nil {
		return nil, err
	}
	return briefs, nil
}

func (r *briefRepo) GetByIDForOwner(ctx context.Context, tx *gorm.DB, id uuid.UUID, ownerUserID string) (*types.CourseBrief, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var brief types.CourseBrief
	err := transaction.WithContext(ctx).
		Where("id = ? AND owner_user_id = ?", id, ownerUserID).
		First(&brief).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &brief, nil
}

func (r *briefRepo) ListByOwner(ctx context.Context, tx *gorm.DB, ownerUserID string, limit int) ([]*types.CourseBrief, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.CourseBrief
	q := transaction.WithContext(ctx).
		Where("owner_user_id = ?", ownerUserID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *briefRepo) UpdateFieldsIfVersion(ctx context.Context, tx *gorm.DB, id uuid.UUID, expectedVersion int, updates map[string]interface{}) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).Model(&types.CourseBrief{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *briefRepo) UpdateFieldsIfUncommitted(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).Model(&types.CourseBrief{}).
		Where("id = ? AND committed_course_id IS NULL", id).
		Updates(updates)
	return res.RowsAffected, res.Error
}
