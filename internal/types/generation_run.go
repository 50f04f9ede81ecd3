package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RunStatusQueued    = "queued"
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// GenerationRun is the durable record backing one background content
// generation pass over a course. It lets a restarted process pick up work a
// crashed one left behind instead of leaving lessons stuck in "generating".
type GenerationRun struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID   string         `gorm:"column:owner_user_id;not null;index" json:"owner_user_id"`
	CourseID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"course_id"`
	Course        *Course        `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"course,omitempty"`
	Status        string         `gorm:"column:status;not null;index" json:"status"`
	Attempts      int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	Error         string         `gorm:"column:error" json:"error,omitempty"`
	LastErrorAt   *time.Time     `gorm:"column:last_error_at" json:"last_error_at,omitempty"`
	LockedAt      *time.Time     `gorm:"column:locked_at;index" json:"locked_at,omitempty"`
	HeartbeatAt   *time.Time     `gorm:"column:heartbeat_at;index" json:"heartbeat_at,omitempty"`
	LessonsTotal  int            `gorm:"column:lessons_total;not null;default:0" json:"lessons_total"`
	LessonsFailed int            `gorm:"column:lessons_failed;not null;default:0" json:"lessons_failed"`
	CreatedAt     time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (GenerationRun) TableName() string { return "generation_run" }
