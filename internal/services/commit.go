package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/courseforge-backend/internal/apierr"
	"github.com/yungbote/courseforge-backend/internal/logger"
	"github.com/yungbote/courseforge-backend/internal/repos"
	"github.com/yungbote/courseforge-backend/internal/slug"
	"github.com/yungbote/courseforge-backend/internal/types"
)

const courseSummaryMaxLen = 200

type CommitResult struct {
	CourseID    uuid.UUID `json:"course_id"`
	Slug        string    `json:"slug"`
	Status      string    `json:"status"`
	ModuleCount int       `json:"module_count"`
	LessonCount int       `json:"lesson_count"`
}

// CommitService turns an approved brief into real course rows. Commit is the
// one-way door of the planning flow: it runs in a single transaction and a
// brief commits at most once, however many callers race it.
type CommitService interface {
	Commit(ctx context.Context, ownerUserID string, briefID uuid.UUID) (*CommitResult, error)
}

type commitService struct {
	db         *gorm.DB
	log        *logger.Logger
	briefRepo  repos.BriefRepo
	eventRepo  repos.BriefEventRepo
	courseRepo repos.CourseRepo
	moduleRepo repos.CourseModuleRepo
	lessonRepo repos.LessonRepo
}

func NewCommitService(
	db *gorm.DB,
	baseLog *logger.Logger,
	briefRepo repos.BriefRepo,
	eventRepo repos.BriefEventRepo,
	courseRepo repos.CourseRepo,
	moduleRepo repos.CourseModuleRepo,
	lessonRepo repos.LessonRepo,
) CommitService {
	return &commitService{
		db:         db,
		log:        baseLog.With("service", "CommitService"),
		briefRepo:  briefRepo,
		eventRepo:  eventRepo,
		courseRepo: courseRepo,
		moduleRepo: moduleRepo,
		lessonRepo: lessonRepo,
	}
}

func (s *commitService) Commit(ctx context.Context, ownerUserID string, briefID uuid.UUID) (*CommitResult, error) {
	brief, err := s.briefRepo.GetByIDForOwner(ctx, nil, briefID, ownerUserID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load brief: %w", err))
	}
	if brief == nil {
		return nil, apierr.NotFound("brief")
	}
	if brief.CommittedCourseID != nil {
		return nil, apierr.StateConflict(fmt.Errorf("brief is already committed")).
			WithDetails(map[string]interface{}{"course_id": *brief.CommittedCourseID})
	}
	if brief.ModeState == types.BriefStateAbandoned {
		return nil, apierr.StateConflict(fmt.Errorf("brief is abandoned"))
	}

	// A missing outline is allowed: the result is an empty course shell the
	// owner fills in by hand.
	var outline *types.PlanOutline
	if hasJSONValue(brief.PlanOutline) {
		var o types.PlanOutline
		if err := json.Unmarshal(brief.PlanOutline, &o); err != nil {
			return nil, apierr.Internal(fmt.Errorf("unmarshal stored outline: %w", err))
		}
		outline = &o
	}

	title := brief.Topic
	summary := brief.Details
	if outline != nil {
		title = outline.CourseTitle
		summary = outline.CourseSummary
	}
	if title == "" {
		title = "Untitled Course"
	}
	if r := []rune(summary); len(r) > courseSummaryMaxLen {
		summary = string(r[:courseSummaryMaxLen])
	}

	// The slug always comes from the topic; the outline only supplies the
	// display title.
	slugBase := brief.Topic
	if strings.TrimSpace(slugBase) == "" {
		slugBase = "Untitled Course"
	}

	result := &CommitResult{Status: types.CourseStatusDraft}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		courseSlug := slug.Make(slugBase)
		taken, err := s.courseRepo.SlugExists(ctx, tx, courseSlug)
		if err != nil {
			return apierr.Internal(fmt.Errorf("check slug: %w", err))
		}
		if taken {
			courseSlug = slug.WithSuffix(courseSlug)
		}

		now := time.Now()
		course := &types.Course{
			ID:          uuid.New(),
			OwnerUserID: ownerUserID,
			Title:       title,
			Slug:        courseSlug,
			Summary:     summary,
			Status:      types.CourseStatusDraft,
			Visibility:  types.VisibilityPrivate,
			Goals:       brief.Goals,
			BriefID:     &brief.ID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if _, err := s.courseRepo.Create(ctx, tx, []*types.Course{course}); err != nil {
			return err
		}

		if outline != nil {
			mc, lc, err := s.materializeOutline(ctx, tx, course.ID, outline)
			if err != nil {
				return err
			}
			result.ModuleCount = mc
			result.LessonCount = lc
		}

		// The conditional update on committed_course_id decides the winner of
		// two racing commits; the loser rolls back everything above.
		rows, err := s.briefRepo.UpdateFieldsIfUncommitted(ctx, tx, brief.ID, map[string]interface{}{
			"committed_course_id": course.ID,
			"mode_state":          types.BriefStateCommitted,
			"version":             brief.Version + 1,
			"updated_at":          now,
		})
		if err != nil {
			return apierr.Internal(fmt.Errorf("mark brief committed: %w", err))
		}
		if rows == 0 {
			return apierr.StateConflict(fmt.Errorf("brief was committed concurrently"))
		}

		payload, err := json.Marshal(map[string]interface{}{
			"course_id":    course.ID,
			"slug":         courseSlug,
			"module_count": result.ModuleCount,
			"lesson_count": result.LessonCount,
		})
		if err != nil {
			return apierr.Internal(fmt.Errorf("marshal commit payload: %w", err))
		}
		if _, err := s.eventRepo.Create(ctx, tx, []*types.BriefEvent{{
			ID:        uuid.New(),
			BriefID:   brief.ID,
			Actor:     types.EventActorUser,
			Type:      types.EventTypeCommit,
			Payload:   datatypes.JSON(payload),
			CreatedAt: now,
		}}); err != nil {
			return apierr.Internal(fmt.Errorf("record commit event: %w", err))
		}

		result.CourseID = course.ID
		result.Slug = courseSlug
		return nil
	})
	if err != nil {
		// The unique indexes on course.slug and course.brief_id backstop the
		// check-then-use above under concurrency.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apierr.StateConflict(fmt.Errorf("course conflicts with an existing one: %w", err))
		}
		var ae *apierr.Error
		if errors.As(err, &ae) {
			return nil, ae
		}
		return nil, apierr.Internal(fmt.Errorf("commit brief: %w", err))
	}

	s.log.Info("Brief committed",
		"brief_id", brief.ID,
		"course_id", result.CourseID,
		"modules", result.ModuleCount,
		"lessons", result.LessonCount)
	return result, nil
}
