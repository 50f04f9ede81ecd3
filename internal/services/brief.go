package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
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

const (
	maxTopicLen   = 200
	maxDetailsLen = 10000
	maxGoals      = 10
	maxGoalLen    = 200
)

type CreateBriefInput struct {
	Source           string   `json:"source"`
	Topic            string   `json:"topic"`
	Details          string   `json:"details"`
	LearnerLevel     string   `json:"learner_level"`
	TargetDifficulty string   `json:"target_difficulty"`
	Goals            []string `json:"goals"`
}

// UpdateBriefInput uses pointers so absent fields are left untouched.
// Source is deliberately not editable.
type UpdateBriefInput struct {
	Topic            *string   `json:"topic"`
	Details          *string   `json:"details"`
	LearnerLevel     *string   `json:"learner_level"`
	TargetDifficulty *string   `json:"target_difficulty"`
	Goals            *[]string `json:"goals"`
}

type BriefService interface {
	Create(ctx context.Context, ownerUserID string, input CreateBriefInput) (*types.CourseBrief, error)
	List(ctx context.Context, ownerUserID string, limit int) ([]*types.CourseBrief, error)
	Get(ctx context.Context, ownerUserID string, id uuid.UUID) (*types.CourseBrief, error)

	// Patch applies a versioned field edit: the caller presents the version it
	// last observed and a successful edit advances it by exactly one. The
	// brief's mode_state never changes on this path.
	Patch(ctx context.Context, ownerUserID string, id uuid.UUID, expectedVersion int, input UpdateBriefInput) (*types.CourseBrief, error)

	// Abandon moves a non-terminal brief to the abandoned terminal state.
	Abandon(ctx context.Context, ownerUserID string, id uuid.UUID) (*types.CourseBrief, error)

	// ListEvents returns the brief's audit trail in chronological order.
	ListEvents(ctx context.Context, ownerUserID string, id uuid.UUID) ([]*types.BriefEvent, error)

	// AppendEvent records a conversation turn (question, answer, approval) on
	// the brief's audit trail.
	AppendEvent(ctx context.Context, ownerUserID string, id uuid.UUID, actor, eventType string, payload json.RawMessage) (*types.BriefEvent, error)
}

type briefService struct {
	db        *gorm.DB
	log       *logger.Logger
	briefRepo repos.BriefRepo
	eventRepo repos.BriefEventRepo
}

func NewBriefService(db *gorm.DB, baseLog *logger.Logger, briefRepo repos.BriefRepo, eventRepo repos.BriefEventRepo) BriefService {
	return &briefService{
		db:        db,
		log:       baseLog.With("service", "BriefService"),
		briefRepo: briefRepo,
		eventRepo: eventRepo,
	}
}

func validLearnerLevel(s string) bool {
	switch s {
	case "", "novice", "intermediate", "advanced":
		return true
	}
	return false
}

func validTargetDifficulty(s string) bool {
	switch s {
	case "", "easy", "standard", "rigorous", "expert":
		return true
	}
	return false
}

func validateGoals(goals []string) error {
	if len(goals) > maxGoals {
		return fmt.Errorf("at most %d goals allowed", maxGoals)
	}
	for _, g := range goals {
		if g == "" || len(g) > maxGoalLen {
			return fmt.Errorf("each goal must be 1-%d characters", maxGoalLen)
		}
	}
	return nil
}

func badRequest(err error) *apierr.Error {
	return apierr.New(http.StatusBadRequest, apierr.CodeBadRequest, err)
}

func (s *briefService) Create(ctx context.Context, ownerUserID string, input CreateBriefInput) (*types.CourseBrief, error) {
	if input.Source != types.BriefSourceManual && input.Source != types.BriefSourceBot {
		return nil, badRequest(fmt.Errorf("source must be manual or bot"))
	}
	if len(input.Topic) > maxTopicLen {
		return nil, badRequest(fmt.Errorf("topic must be at most %d characters", maxTopicLen))
	}
	if len(input.Details) > maxDetailsLen {
		return nil, badRequest(fmt.Errorf("details must be at most %d characters", maxDetailsLen))
	}
	if !validLearnerLevel(input.LearnerLevel) {
		return nil, badRequest(fmt.Errorf("invalid learner_level"))
	}
	if !validTargetDifficulty(input.TargetDifficulty) {
		return nil, badRequest(fmt.Errorf("invalid target_difficulty"))
	}
	if err := validateGoals(input.Goals); err != nil {
		return nil, badRequest(err)
	}

	now := time.Now()
	brief := &types.CourseBrief{
		ID:               uuid.New(),
		OwnerUserID:      ownerUserID,
		Source:           input.Source,
		ModeState:        types.BriefStateCollecting,
		Topic:            strings.TrimSpace(input.Topic),
		Details:          input.Details,
		LearnerLevel:     input.LearnerLevel,
		TargetDifficulty: input.TargetDifficulty,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if len(input.Goals) > 0 {
		raw, err := json.Marshal(input.Goals)
		if err != nil {
			return nil, apierr.Internal(fmt.Errorf("marshal goals: %w", err))
		}
		brief.Goals = datatypes.JSON(raw)
	}

	if _, err := s.briefRepo.Create(ctx, nil, []*types.CourseBrief{brief}); err != nil {
		s.log.Error("Create brief failed", "error", err)
		return nil, apierr.Internal(fmt.Errorf("create brief: %w", err))
	}
	return brief, nil
}

func (s *briefService) List(ctx context.Context, ownerUserID string, limit int) ([]*types.CourseBrief, error) {
	briefs, err := s.briefRepo.ListByOwner(ctx, nil, ownerUserID, limit)
	if err != nil {
		s.log.Error("List briefs failed", "error", err)
		return nil, apierr.Internal(fmt.Errorf("list briefs: %w", err))
	}
	return briefs, nil
}

func (s *briefService) Get(ctx context.Context, ownerUserID string, id uuid.UUID) (*types.CourseBrief, error) {
	brief, err := s.briefRepo.GetByIDForOwner(ctx, nil, id, ownerUserID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load brief: %w", err))
	}
	if brief == nil {
		return nil, apierr.NotFound("brief")
	}
	return brief, nil
}

func (s *briefService) Patch(ctx context.Context, ownerUserID string, id uuid.UUID, expectedVersion int, input UpdateBriefInput) (*types.CourseBrief, error) {
	if input.Topic != nil && (strings.TrimSpace(*input.Topic) == "" || len(*input.Topic) > maxTopicLen) {
		return nil, badRequest(fmt.Errorf("topic must be 1-%d characters", maxTopicLen))
	}
	if input.Details != nil && len(*input.Details) > maxDetailsLen {
		return nil, badRequest(fmt.Errorf("details must be at most %d characters", maxDetailsLen))
	}
	if input.LearnerLevel != nil && !validLearnerLevel(*input.LearnerLevel) {
		return nil, badRequest(fmt.Errorf("invalid learner_level"))
	}
	if input.TargetDifficulty != nil && !validTargetDifficulty(*input.TargetDifficulty) {
		return nil, badRequest(fmt.Errorf("invalid target_difficulty"))
	}
	if input.Goals != nil {
		if err := validateGoals(*input.Goals); err != nil {
			return nil, badRequest(err)
		}
	}

	var updated *types.CourseBrief
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		brief, err := s.briefRepo.GetByIDForOwner(ctx, tx, id, ownerUserID)
		if err != nil {
			return apierr.Internal(fmt.Errorf("load brief: %w", err))
		}
		if brief == nil {
			return apierr.NotFound("brief")
		}
		if brief.Terminal() {
			return apierr.StateConflict(fmt.Errorf("brief is %s and can no longer be edited", brief.ModeState))
		}
		if brief.Version != expectedVersion {
			return apierr.VersionConflict(brief.Version, expectedVersion)
		}

		updates := map[string]interface{}{
			"version":    brief.Version + 1,
			"updated_at": time.Now(),
		}
		if input.Topic != nil {
			updates["topic"] = strings.TrimSpace(*input.Topic)
		}
		if input.Details != nil {
			updates["details"] = *input.Details
		}
		if input.LearnerLevel != nil {
			updates["learner_level"] = *input.LearnerLevel
		}
		if input.TargetDifficulty != nil {
			updates["target_difficulty"] = *input.TargetDifficulty
		}
		if input.Goals != nil {
			raw, mErr := json.Marshal(*input.Goals)
			if mErr != nil {
				return apierr.Internal(fmt.Errorf("marshal goals: %w", mErr))
			}
			updates["goals"] = datatypes.JSON(raw)
		}

		rows, err := s.briefRepo.UpdateFieldsIfVersion(ctx, tx, id, expectedVersion, updates)
		if err != nil {
			return apierr.Internal(fmt.Errorf("update brief: %w", err))
		}
		if rows == 0 {
			// a concurrent writer advanced the version between read and write
			return apierr.VersionConflict(brief.Version+1, expectedVersion)
		}

		updated, err = s.briefRepo.GetByIDForOwner(ctx, tx, id, ownerUserID)
		if err != nil {
			return apierr.Internal(fmt.Errorf("reload brief: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *briefService) Abandon(ctx context.Context, ownerUserID string, id uuid.UUID) (*types.CourseBrief, error) {
	var updated *types.CourseBrief
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		brief, err := s.briefRepo.GetByIDForOwner(ctx, tx, id, ownerUserID)
		if err != nil {
			return apierr.Internal(fmt.Errorf("load brief: %w", err))
		}
		if brief == nil {
			return apierr.NotFound("brief")
		}
		if brief.Terminal() {
			return apierr.StateConflict(fmt.Errorf("brief is already %s", brief.ModeState))
		}

		rows, err := s.briefRepo.UpdateFieldsIfVersion(ctx, tx, id, brief.Version, map[string]interface{}{
			"mode_state": types.BriefStateAbandoned,
			"version":    brief.Version + 1,
			"updated_at": time.Now(),
		})
		if err != nil {
			return apierr.Internal(fmt.Errorf("abandon brief: %w", err))
		}
		if rows == 0 {
			return apierr.VersionConflict(brief.Version+1, brief.Version)
		}

		updated, err = s.briefRepo.GetByIDForOwner(ctx, tx, id, ownerUserID)
		if err != nil {
			return apierr.Internal(fmt.Errorf("reload brief: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *briefService) ListEvents(ctx context.Context, ownerUserID string, id uuid.UUID) ([]*types.BriefEvent, error) {
	brief, err := s.briefRepo.GetByIDForOwner(ctx, nil, id, ownerUserID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load brief: %w", err))
	}
	if brief == nil {
		return nil, apierr.NotFound("brief")
	}
	events, err := s.eventRepo.ListByBriefID(ctx, nil, id)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("list brief events: %w", err))
	}
	return events, nil
}

func validEventType(t string) bool {
	switch t {
	case types.EventTypeQuestion, types.EventTypeAnswer,
		types.EventTypeApprovePrereqs, types.EventTypeApproveOutline,
		types.EventTypeApproveOutcomes:
		return true
	}
	// gen_* and commit events are written by the services that perform them
	return false
}

func (s *briefService) AppendEvent(ctx context.Context, ownerUserID string, id uuid.UUID, actor, eventType string, payload json.RawMessage) (*types.BriefEvent, error) {
	if actor != types.EventActorUser && actor != types.EventActorBot {
		return nil, badRequest(fmt.Errorf("actor must be user or bot"))
	}
	if !validEventType(eventType) {
		return nil, badRequest(fmt.Errorf("unsupported event type %q", eventType))
	}
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	} else if !json.Valid(payload) {
		return nil, badRequest(fmt.Errorf("payload must be valid JSON"))
	}

	brief, err := s.briefRepo.GetByIDForOwner(ctx, nil, id, ownerUserID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load brief: %w", err))
	}
	if brief == nil {
		return nil, apierr.NotFound("brief")
	}
	if brief.Terminal() {
		return nil, apierr.StateConflict(fmt.Errorf("brief is %s", brief.ModeState))
	}

	event := &types.BriefEvent{
		ID:        uuid.New(),
		BriefID:   id,
		Actor:     actor,
		Type:      eventType,
		Payload:   datatypes.JSON(payload),
		CreatedAt: time.Now(),
	}
	if _, err := s.eventRepo.Create(ctx, nil, []*types.BriefEvent{event}); err != nil {
		return nil, apierr.Internal(fmt.Errorf("append brief event: %w", err))
	}
	return event, nil
}
