package services

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/courseforge-backend/internal/apierr"
	"github.com/yungbote/courseforge-backend/internal/types"
)

func newCommitService(env *testEnv) CommitService {
	return NewCommitService(env.db, env.log, env.briefRepo, env.eventRepo, env.courseRepo, env.moduleRepo, env.lessonRepo)
}

func TestCommitMaterializesOutline(t *testing.T) {
	env := newTestEnv(t)
	svc := newCommitService(env)
	outline := testOutline()
	brief := seedBrief(t, env, "user-1", func(b *types.CourseBrief) {
		b.ModeState = types.BriefStateOutlineReady
		b.PlanOutline = mustJSON(t, outline)
	})

	result, err := svc.Commit(context.Background(), "user-1", brief.ID)
	require.NoError(t, err)
	require.Equal(t, 2, result.ModuleCount)
	require.Equal(t, 5, result.LessonCount)
	require.Equal(t, types.CourseStatusDraft, result.Status)

	course, err := env.courseRepo.GetByIDForOwner(context.Background(), nil, result.CourseID, "user-1")
	require.NoError(t, err)
	require.NotNil(t, course)
	require.Equal(t, "Go Fundamentals", course.Title)
	require.Equal(t, "go-fundamentals", course.Slug)
	require.Equal(t, types.VisibilityPrivate, course.Visibility)
	require.NotNil(t, course.BriefID)
	require.Equal(t, brief.ID, *course.BriefID)

	modules, err := env.moduleRepo.GetByCourseID(context.Background(), nil, course.ID)
	require.NoError(t, err)
	require.Len(t, modules, 2)
	for i, m := range modules {
		require.Equal(t, i+1, m.Position)
		require.Equal(t, outline.Modules[i].Title, m.Title)
	}

	lessons, err := env.lessonRepo.GetByModuleID(context.Background(), nil, modules[0].ID)
	require.NoError(t, err)
	require.Len(t, lessons, 3)
	for i, l := range lessons {
		require.Equal(t, i+1, l.Position)
		require.Equal(t, types.GenerationStatusPending, l.GenerationStatus)
		require.JSONEq(t, "[]", string(l.Content))
	}

	committed, err := env.briefRepo.GetByIDForOwner(context.Background(), nil, brief.ID, "user-1")
	require.NoError(t, err)
	require.Equal(t, types.BriefStateCommitted, committed.ModeState)
	require.Equal(t, 2, committed.Version)
	require.NotNil(t, committed.CommittedCourseID)
	require.Equal(t, course.ID, *committed.CommittedCourseID)

	events, err := env.eventRepo.ListByBriefID(context.Background(), nil, brief.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, types.EventTypeCommit, events[0].Type)
}

func TestCommitTwiceConflicts(t *testing.T) {
	env := newTestEnv(t)
	svc := newCommitService(env)
	brief := seedBrief(t, env, "user-1", func(b *types.CourseBrief) {
		b.ModeState = types.BriefStateOutlineReady
		b.PlanOutline = mustJSON(t, testOutline())
	})

	first, err := svc.Commit(context.Background(), "user-1", brief.ID)
	require.NoError(t, err)

	_, err = svc.Commit(context.Background(), "user-1", brief.ID)
	ae := apierr.As(err)
	require.Equal(t, http.StatusConflict, ae.Status)
	require.Equal(t, apierr.CodeStateConflict, ae.Code)
	require.Equal(t, first.CourseID, ae.Details["course_id"])

	// still exactly one course
	courses, err := env.courseRepo.ListByOwner(context.Background(), nil, "user-1", 0)
	require.NoError(t, err)
	require.Len(t, courses, 1)
}

func TestCommitWithoutOutlineCreatesEmptyShell(t *testing.T) {
	env := newTestEnv(t)
	svc := newCommitService(env)
	brief := seedBrief(t, env, "user-1", nil)

	result, err := svc.Commit(context.Background(), "user-1", brief.ID)
	require.NoError(t, err)
	require.Equal(t, 0, result.ModuleCount)
	require.Equal(t, 0, result.LessonCount)

	modules, err := env.moduleRepo.GetByCourseID(context.Background(), nil, result.CourseID)
	require.NoError(t, err)
	require.Empty(t, modules)

	course, err := env.courseRepo.GetByIDForOwner(context.Background(), nil, result.CourseID, "user-1")
	require.NoError(t, err)
	require.Equal(t, "Go Fundamentals", course.Title)
}

func TestCommitSlugComesFromTopicNotOutlineTitle(t *testing.T) {
	env := newTestEnv(t)
	svc := newCommitService(env)
	outline := testOutline()
	outline.CourseTitle = "Advanced Gopher Mastery Bootcamp"
	brief := seedBrief(t, env, "user-1", func(b *types.CourseBrief) {
		b.Topic = "Intro to React"
		b.ModeState = types.BriefStateOutlineReady
		b.PlanOutline = mustJSON(t, outline)
	})

	result, err := svc.Commit(context.Background(), "user-1", brief.ID)
	require.NoError(t, err)
	require.Equal(t, "intro-to-react", result.Slug)

	course, err := env.courseRepo.GetByIDForOwner(context.Background(), nil, result.CourseID, "user-1")
	require.NoError(t, err)
	require.Equal(t, "Advanced Gopher Mastery Bootcamp", course.Title)
}

func TestCommitTruncatesSummaryOnRuneBoundary(t *testing.T) {
	env := newTestEnv(t)
	svc := newCommitService(env)
	brief := seedBrief(t, env, "user-1", func(b *types.CourseBrief) {
		b.Details = strings.Repeat("é", 250)
	})

	result, err := svc.Commit(context.Background(), "user-1", brief.ID)
	require.NoError(t, err)

	course, err := env.courseRepo.GetByIDForOwner(context.Background(), nil, result.CourseID, "user-1")
	require.NoError(t, err)
	require.True(t, utf8.ValidString(course.Summary))
	require.Equal(t, 200, utf8.RuneCountInString(course.Summary))
}

func TestCommitSlugCollisionGetsSuffix(t *testing.T) {
	env := newTestEnv(t)
	svc := newCommitService(env)
	seedCourse(t, env, "user-2", func(c *types.Course) {
		c.Slug = "go-fundamentals"
	})
	brief := seedBrief(t, env, "user-1", func(b *types.CourseBrief) {
		b.ModeState = types.BriefStateOutlineReady
		b.PlanOutline = mustJSON(t, testOutline())
	})

	result, err := svc.Commit(context.Background(), "user-1", brief.ID)
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^go-fundamentals-[0-9a-f]{6}$`), result.Slug)
}

func TestCommitAbandonedBriefRejected(t *testing.T) {
	env := newTestEnv(t)
	svc := newCommitService(env)
	brief := seedBrief(t, env, "user-1", func(b *types.CourseBrief) {
		b.ModeState = types.BriefStateAbandoned
	})

	_, err := svc.Commit(context.Background(), "user-1", brief.ID)
	require.Equal(t, apierr.CodeStateConflict, apierr.As(err).Code)
}

func TestCommitUnknownBriefNotFound(t *testing.T) {
	env := newTestEnv(t)
	svc := newCommitService(env)
	brief := seedBrief(t, env, "user-1", nil)

	_, err := svc.Commit(context.Background(), "someone-else", brief.ID)
	require.Equal(t, http.StatusNotFound, apierr.As(err).Status)
}
