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

	"github.com/yungbote/courseforge-backend/internal/ai"
	"github.com/yungbote/courseforge-backend/internal/apierr"
	"github.com/yungbote/courseforge-backend/internal/logger"
	"github.com/yungbote/courseforge-backend/internal/repos"
	"github.com/yungbote/courseforge-backend/internal/types"
)

type OutlineSummary struct {
	BriefID      uuid.UUID `json:"brief_id"`
	BriefVersion int       `json:"brief_version"`
	ModuleCount  int       `json:"module_count"`
	LessonCount  int       `json:"lesson_count"`
}

// OutlineService covers the AI planning surface: outline drafting plus the
// lighter goal and prerequisite helpers.
type OutlineService interface {
	// GenerateOutline asks the provider for an outline and stores it on the
	// brief, moving the brief to outline_ready. A brief holds at most one
	// outline; regeneration is not supported.
	GenerateOutline(ctx context.Context, ownerUserID string, briefID uuid.UUID) (*OutlineSummary, error)

	RecommendGoals(ctx context.Context, topic, details string) ([]string, error)

	// AnalyzePrerequisites stores the suggestions on the brief;
	// AnalyzePrerequisitesForTopic is the ad hoc variant with nothing to store.
	AnalyzePrerequisites(ctx context.Context, ownerUserID string, briefID uuid.UUID) ([]string, error)
	AnalyzePrerequisitesForTopic(ctx context.Context, topic, details string) ([]string, error)

	// AssessLearnerLevel grades a learner's starting level from which
	// prerequisites they report meeting. Nothing is persisted.
	AssessLearnerLevel(ctx context.Context, topic, details string, prereqs []ai.PrerequisiteCheck) (*ai.LevelAssessment, error)
}

type outlineService struct {
	db        *gorm.DB
	log       *logger.Logger
	provider  ai.Provider
	briefRepo repos.BriefRepo
	eventRepo repos.BriefEventRepo
}

func NewOutlineService(db *gorm.DB, baseLog *logger.Logger, provider ai.Provider, briefRepo repos.BriefRepo, eventRepo repos.BriefEventRepo) OutlineService {
	return &outlineService{
		db:        db,
		log:       baseLog.With("service", "OutlineService"),
		provider:  provider,
		briefRepo: briefRepo,
		eventRepo: eventRepo,
	}
}

func hasJSONValue(raw datatypes.JSON) bool {
	s := strings.TrimSpace(string(raw))
	return s != "" && s != "null"
}

func providerFailure(err error) *apierr.Error {
	return apierr.New(http.StatusInternalServerError, apierr.CodeProviderFailure, err)
}

func (s *outlineService) GenerateOutline(ctx context.Context, ownerUserID string, briefID uuid.UUID) (*OutlineSummary, error) {
	brief, err := s.briefRepo.GetByIDForOwner(ctx, nil, briefID, ownerUserID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load brief: %w", err))
	}
	if brief == nil {
		return nil, apierr.NotFound("brief")
	}
	if !types.BriefTransitionAllowed(brief.ModeState, types.BriefStateOutlineReady) {
		return nil, apierr.StateConflict(fmt.Errorf("brief in state %s cannot receive an outline", brief.ModeState))
	}
	if hasJSONValue(brief.PlanOutline) {
		return nil, apierr.StateConflict(fmt.Errorf("brief already has an outline"))
	}
	if strings.TrimSpace(brief.Topic) == "" {
		return nil, apierr.Validation(fmt.Errorf("brief has no topic to outline"))
	}

	var goals []string
	if hasJSONValue(brief.Goals) {
		if err := json.Unmarshal(brief.Goals, &goals); err != nil {
			s.log.Warn("Unreadable goals on brief; outlining without them", "brief_id", briefID, "error", err)
			goals = nil
		}
	}

	res, err := s.provider.GenerateOutline(ctx, ai.OutlineRequest{
		Topic:            brief.Topic,
		Details:          brief.Details,
		LearnerLevel:     brief.LearnerLevel,
		TargetDifficulty: brief.TargetDifficulty,
		Goals:            goals,
	})
	if err != nil {
		s.log.Error("Outline generation failed", "brief_id", briefID, "provider", s.provider.Name(), "error", err)
		return nil, providerFailure(fmt.Errorf("generate outline: %w", err))
	}

	outline := res.Outline
	outline.Normalize()
	if err := outline.Validate(); err != nil {
		s.log.Error("Provider returned an out-of-bounds outline", "brief_id", briefID, "provider", s.provider.Name(), "error", err)
		return nil, providerFailure(fmt.Errorf("invalid outline from provider: %w", err))
	}

	rawOutline, err := json.Marshal(outline)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("marshal outline: %w", err))
	}
	metadata, err := json.Marshal(map[string]interface{}{
		"provider": s.provider.Name(),
		"tokens":   res.Tokens,
	})
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("marshal model metadata: %w", err))
	}

	summary := &OutlineSummary{
		BriefID:     briefID,
		ModuleCount: outline.ModuleCount(),
		LessonCount: outline.LessonCount(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := s.briefRepo.UpdateFieldsIfVersion(ctx, tx, briefID, brief.Version, map[string]interface{}{
			"plan_outline":   datatypes.JSON(rawOutline),
			"model_metadata": datatypes.JSON(metadata),
			"mode_state":     types.BriefStateOutlineReady,
			"version":        brief.Version + 1,
			"updated_at":     time.Now(),
		})
		if err != nil {
			return apierr.Internal(fmt.Errorf("store outline: %w", err))
		}
		if rows == 0 {
			return apierr.StateConflict(fmt.Errorf("brief changed while the outline was being generated"))
		}
		summary.BriefVersion = brief.Version + 1

		payload, err := json.Marshal(map[string]interface{}{
			"provider":     s.provider.Name(),
			"module_count": summary.ModuleCount,
			"lesson_count": summary.LessonCount,
			"tokens":       res.Tokens,
		})
		if err != nil {
			return apierr.Internal(fmt.Errorf("marshal event payload: %w", err))
		}
		_, err = s.eventRepo.Create(ctx, tx, []*types.BriefEvent{{
			ID:        uuid.New(),
			BriefID:   briefID,
			Actor:     types.EventActorBot,
			Type:      types.EventTypeGenOutline,
			Payload:   datatypes.JSON(payload),
			CreatedAt: time.Now(),
		}})
		if err != nil {
			return apierr.Internal(fmt.Errorf("record outline event: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *outlineService) RecommendGoals(ctx context.Context, topic, details string) ([]string, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, apierr.Validation(fmt.Errorf("topic is required"))
	}
	goals, err := s.provider.RecommendGoals(ctx, ai.PlanningRequest{Topic: topic, Details: details})
	if err != nil {
		s.log.Error("Goal recommendation failed", "provider", s.provider.Name(), "error", err)
		return nil, providerFailure(fmt.Errorf("recommend goals: %w", err))
	}
	return goals, nil
}

func (s *outlineService) AnalyzePrerequisitesForTopic(ctx context.Context, topic, details string) ([]string, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, apierr.Validation(fmt.Errorf("topic is required"))
	}
	prereqs, err := s.provider.AnalyzePrerequisites(ctx, ai.PlanningRequest{Topic: topic, Details: details})
	if err != nil {
		s.log.Error("Prerequisite analysis failed", "provider", s.provider.Name(), "error", err)
		return nil, providerFailure(fmt.Errorf("analyze prerequisites: %w", err))
	}
	return prereqs, nil
}

func (s *outlineService) AssessLearnerLevel(ctx context.Context, topic, details string, prereqs []ai.PrerequisiteCheck) (*ai.LevelAssessment, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, apierr.Validation(fmt.Errorf("topic is required"))
	}
	assessment, err := s.provider.AssessLearnerLevel(ctx, ai.LevelAssessmentRequest{
		Topic:         topic,
		Details:       details,
		Prerequisites: prereqs,
	})
	if err != nil {
		s.log.Error("Learner level assessment failed", "provider", s.provider.Name(), "error", err)
		return nil, providerFailure(fmt.Errorf("assess learner level: %w", err))
	}
	return assessment, nil
}

func (s *outlineService) AnalyzePrerequisites(ctx context.Context, ownerUserID string, briefID uuid.UUID) ([]string, error) {
	brief, err := s.briefRepo.GetByIDForOwner(ctx, nil, briefID, ownerUserID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load brief: %w", err))
	}
	if brief == nil {
		return nil, apierr.NotFound("brief")
	}
	if brief.Terminal() {
		return nil, apierr.StateConflict(fmt.Errorf("brief is %s", brief.ModeState))
	}
	if strings.TrimSpace(brief.Topic) == "" {
		return nil, apierr.Validation(fmt.Errorf("brief has no topic to analyze"))
	}

	prereqs, err := s.provider.AnalyzePrerequisites(ctx, ai.PlanningRequest{Topic: brief.Topic, Details: brief.Details})
	if err != nil {
		s.log.Error("Prerequisite analysis failed", "brief_id", briefID, "provider", s.provider.Name(), "error", err)
		return nil, providerFailure(fmt.Errorf("analyze prerequisites: %w", err))
	}

	raw, err := json.Marshal(prereqs)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("marshal prerequisites: %w", err))
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := s.briefRepo.UpdateFieldsIfVersion(ctx, tx, briefID, brief.Version, map[string]interface{}{
			"prereq_suggestions": datatypes.JSON(raw),
			"version":            brief.Version + 1,
			"updated_at":         time.Now(),
		})
		if err != nil {
			return apierr.Internal(fmt.Errorf("store prerequisites: %w", err))
		}
		if rows == 0 {
			return apierr.StateConflict(fmt.Errorf("brief changed while prerequisites were being analyzed"))
		}
		payload, err := json.Marshal(map[string]interface{}{
			"provider": s.provider.Name(),
			"count":    len(prereqs),
		})
		if err != nil {
			return apierr.Internal(fmt.Errorf("marshal event payload: %w", err))
		}
		_, err = s.eventRepo.Create(ctx, tx, []*types.BriefEvent{{
			ID:        uuid.New(),
			BriefID:   briefID,
			Actor:     types.EventActorBot,
			Type:      types.EventTypeGenPrereqs,
			Payload:   datatypes.JSON(payload),
			CreatedAt: time.Now(),
		}})
		if err != nil {
			return apierr.Internal(fmt.Errorf("record prereq event: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return prereqs, nil
}
