package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/courseforge-backend/internal/apierr"
	"github.com/yungbote/courseforge-backend/internal/types"
)

func newCourseService(env *testEnv) CourseService {
	return NewCourseService(env.db, env.log, env.courseRepo, env.lessonRepo, env.runRepo)
}

func TestCoursePatchWithObservedTimestamp(t *testing.T) {
	env := newTestEnv(t)
	svc := newCourseService(env)
	course := seedCourse(t, env, "user-1", nil)

	updated, err := svc.Patch(context.Background(), "user-1", course.ID, course.UpdatedAt.UnixMilli(), UpdateCourseInput{
		Title: strPtr("Go, Revisited"),
	})
	require.NoError(t, err)
	require.Equal(t, "Go, Revisited", updated.Title)
	require.NotEqual(t, course.UpdatedAt.UnixMilli(), updated.UpdatedAt.UnixMilli())
}

func TestCoursePatchStaleTimestampConflicts(t *testing.T) {
	env := newTestEnv(t)
	svc := newCourseService(env)
	course := seedCourse(t, env, "user-1", nil)
	observed := course.UpdatedAt.UnixMilli()

	_, err := svc.Patch(context.Background(), "user-1", course.ID, observed, UpdateCourseInput{
		Title: strPtr("First writer"),
	})
	require.NoError(t, err)

	_, err = svc.Patch(context.Background(), "user-1", course.ID, observed, UpdateCourseInput{
		Title: strPtr("Second writer"),
	})
	ae := apierr.As(err)
	require.Equal(t, http.StatusConflict, ae.Status)
	require.Equal(t, apierr.CodeVersionConflict, ae.Code)
	require.EqualValues(t, observed, ae.Details["got"])

	reloaded, err := svc.Get(context.Background(), "user-1", course.ID)
	require.NoError(t, err)
	require.Equal(t, "First writer", reloaded.Title)
}

func TestCoursePatchRejectsBadEnums(t *testing.T) {
	env := newTestEnv(t)
	svc := newCourseService(env)
	course := seedCourse(t, env, "user-1", nil)

	_, err := svc.Patch(context.Background(), "user-1", course.ID, course.UpdatedAt.UnixMilli(), UpdateCourseInput{
		Status: strPtr("live"),
	})
	require.Equal(t, apierr.CodeBadRequest, apierr.As(err).Code)

	_, err = svc.Patch(context.Background(), "user-1", course.ID, course.UpdatedAt.UnixMilli(), UpdateCourseInput{
		Visibility: strPtr("secret"),
	})
	require.Equal(t, apierr.CodeBadRequest, apierr.As(err).Code)
}

func TestCourseGenerationStatusReport(t *testing.T) {
	env := newTestEnv(t)
	svc := newCourseService(env)
	course := seedCourse(t, env, "user-1", nil)
	module := seedModule(t, env, course.ID, 1)
	seedLesson(t, env, module.ID, 1, "A", types.GenerationStatusGenerated)
	seedLesson(t, env, module.ID, 2, "B", types.GenerationStatusPending)
	seedLesson(t, env, module.ID, 3, "C", types.GenerationStatusFailed)

	report, err := svc.GenerationStatus(context.Background(), "user-1", course.ID)
	require.NoError(t, err)
	require.Nil(t, report.Run)
	require.EqualValues(t, 1, report.Counts[types.GenerationStatusGenerated])
	require.EqualValues(t, 1, report.Counts[types.GenerationStatusPending])
	require.EqualValues(t, 1, report.Counts[types.GenerationStatusFailed])
}
