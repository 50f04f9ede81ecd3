package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	LessonStatusDraft     = "draft"
	LessonStatusPublished = "published"
	LessonStatusArchived  = "archived"
)

// Generation lifecycle. Transitions are one-directional:
// pending -> generating -> generated | failed.
const (
	GenerationStatusPending    = "pending"
	GenerationStatusGenerating = "generating"
	GenerationStatusGenerated  = "generated"
	GenerationStatusFailed     = "failed"
)

type Lesson struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ModuleID           uuid.UUID      `gorm:"type:uuid;not null;index:idx_lesson_module_position" json:"module_id"`
	Module             *CourseModule  `gorm:"constraint:OnDelete:CASCADE;foreignKey:ModuleID;references:ID" json:"module,omitempty"`
	Title              string         `gorm:"column:title;not null" json:"title"`
	Position           int            `gorm:"column:position;not null;index:idx_lesson_module_position" json:"position"`
	Status             string         `gorm:"column:status;not null;default:draft" json:"status"`
	Content            datatypes.JSON `gorm:"column:content;type:jsonb;not null" json:"content"`
	GenerationStatus   string         `gorm:"column:generation_status;not null;default:pending;index" json:"generation_status"`
	ReadingTimeMinutes int            `gorm:"column:reading_time_minutes" json:"reading_time_minutes,omitempty"`
	CreatedAt          time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Lesson) TableName() string { return "lesson" }
