package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	CourseStatusDraft     = "draft"
	CourseStatusPublished = "published"
	CourseStatusArchived  = "archived"
)

const (
	VisibilityPrivate  = "private"
	VisibilityUnlisted = "unlisted"
	VisibilityPublic   = "public"
)

type Course struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID string         `gorm:"column:owner_user_id;not null;index" json:"owner_user_id"`
	Title       string         `gorm:"column:title;not null" json:"title"`
	Slug        string         `gorm:"column:slug;not null;uniqueIndex" json:"slug"`
	Summary     string         `gorm:"column:summary" json:"summary"`
	Status      string         `gorm:"column:status;not null;default:draft" json:"status"`
	Visibility  string         `gorm:"column:visibility;not null;default:private" json:"visibility"`
	Goals       datatypes.JSON `gorm:"column:goals;type:jsonb" json:"goals,omitempty"`
	BriefID     *uuid.UUID     `gorm:"column:brief_id;type:uuid;uniqueIndex" json:"brief_id,omitempty"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Course) TableName() string { return "course" }
