package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	BriefSourceManual = "manual"
	BriefSourceBot    = "bot"
)

const (
	BriefStateCollecting      = "collecting"
	BriefStateReadyForOutline = "ready_for_outline"
	BriefStateOutlineReady    = "outline_ready"
	BriefStateOutcomesReady   = "outcomes_ready"
	BriefStateCommitted       = "committed"
	BriefStateAbandoned       = "abandoned"
)

// briefTransitions lists the legal outbound transitions per state. Terminal
// states have no entry.
var briefTransitions = map[string][]string{
	BriefStateCollecting:      {BriefStateReadyForOutline, BriefStateOutlineReady, BriefStateAbandoned},
	BriefStateReadyForOutline: {BriefStateOutlineReady, BriefStateAbandoned},
	BriefStateOutlineReady:    {BriefStateOutcomesReady, BriefStateCommitted, BriefStateAbandoned},
	BriefStateOutcomesReady:   {BriefStateCommitted, BriefStateAbandoned},
}

func BriefStateTerminal(state string) bool {
	return state == BriefStateCommitted || state == BriefStateAbandoned
}

func BriefTransitionAllowed(from, to string) bool {
	for _, next := range briefTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type CourseBrief struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID       string         `gorm:"column:owner_user_id;not null;index" json:"owner_user_id"`
	Source            string         `gorm:"column:source;not null" json:"source"`
	ModeState         string         `gorm:"column:mode_state;not null;default:collecting;index" json:"mode_state"`
	Topic             string         `gorm:"column:topic" json:"topic"`
	Details           string         `gorm:"column:details" json:"details"`
	LearnerLevel      string         `gorm:"column:learner_level" json:"learner_level,omitempty"`
	TargetDifficulty  string         `gorm:"column:target_difficulty" json:"target_difficulty,omitempty"`
	Goals             datatypes.JSON `gorm:"column:goals;type:jsonb" json:"goals,omitempty"`
	PrereqSuggestions datatypes.JSON `gorm:"column:prereq_suggestions;type:jsonb" json:"prereq_suggestions,omitempty"`
	PlanOutline       datatypes.JSON `gorm:"column:plan_outline;type:jsonb" json:"plan_outline,omitempty"`
	ModelMetadata     datatypes.JSON `gorm:"column:model_metadata;type:jsonb" json:"model_metadata,omitempty"`
	CommittedCourseID *uuid.UUID     `gorm:"column:committed_course_id;type:uuid;uniqueIndex" json:"committed_course_id,omitempty"`
	Version           int            `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt         time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (CourseBrief) TableName() string { return "course_brief" }

func (b *CourseBrief) Terminal() bool { return BriefStateTerminal(b.ModeState) }
