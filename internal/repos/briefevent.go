package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/courseforge-backend/internal/logger"
	"github.com/yungbote/courseforge-backend/internal/types"
)

type BriefEventRepo interface {
	Create(ctx context.Context, tx *gorm.DB, events []*types.BriefEvent) ([]*types.BriefEvent, error)
	ListByBriefID(ctx context.Context, tx *gorm.DB, briefID uuid.UUID) ([]*types.BriefEvent, error)
}

type briefEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBriefEventRepo(db *gorm.DB, baseLog *logger.Logger) BriefEventRepo {
	return &briefEventRepo{db: db, log: baseLog.With("repo", "BriefEventRepo")}
}

func (r *briefEventRepo) Create(ctx context.Context, tx *gorm.DB, events []*types.BriefEvent) ([]*types.BriefEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(events) == 0 {
		return []*types.BriefEvent{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *briefEventRepo) ListByBriefID(ctx context.Context, tx *gorm.DB, briefID uuid.UUID) ([]*types.BriefEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.BriefEvent
	if err := transaction.WithContext(ctx).
		Where("brief_id = ?", briefID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
