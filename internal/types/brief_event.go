package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	EventActorUser = "user"
	EventActorBot  = "bot"
)

const (
	EventTypeQuestion        = "q"
	EventTypeAnswer          = "a"
	EventTypeGenPrereqs      = "gen_prereqs"
	EventTypeApprovePrereqs  = "approve_prereqs"
	EventTypeGenOutline      = "gen_outline"
	EventTypeApproveOutline  = "approve_outline"
	EventTypeGenOutcomes     = "gen_outcomes"
	EventTypeApproveOutcomes = "approve_outcomes"
	EventTypeCommit          = "commit"
)

// BriefEvent is an append-only audit row. Rows are never updated or deleted.
type BriefEvent struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	BriefID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"brief_id"`
	Brief     *CourseBrief   `gorm:"constraint:OnDelete:CASCADE;foreignKey:BriefID;references:ID" json:"brief,omitempty"`
	Actor     string         `gorm:"column:actor;not null" json:"actor"`
	Type      string         `gorm:"column:type;not null" json:"type"`
	Payload   datatypes.JSON `gorm:"column:payload;type:jsonb;not null" json:"payload"`
	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
}

func (BriefEvent) TableName() string { return "brief_event" }
