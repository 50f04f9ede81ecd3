package services

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/courseforge-backend/internal/apierr"
	"github.com/yungbote/courseforge-backend/internal/types"
)

func newLessonService(env *testEnv) LessonService {
	return NewLessonService(env.db, env.log, env.moduleRepo, env.lessonRepo)
}

func newModuleService(env *testEnv) ModuleService {
	return NewModuleService(env.db, env.log, env.courseRepo, env.moduleRepo)
}

func rawPtr(s string) *json.RawMessage {
	raw := json.RawMessage(s)
	return &raw
}

func TestModuleCreateAppendsAtEnd(t *testing.T) {
	env := newTestEnv(t)
	svc := newModuleService(env)
	course := seedCourse(t, env, "user-1", nil)
	seedModule(t, env, course.ID, 1)
	seedModule(t, env, course.ID, 2)

	module, err := svc.Create(context.Background(), "user-1", course.ID, CreateModuleInput{Title: "Closing Project"})
	require.NoError(t, err)
	require.Equal(t, 3, module.Position)
	require.Equal(t, types.CourseStatusDraft, module.Status)
}

func TestLessonCreateAppendsAtEnd(t *testing.T) {
	env := newTestEnv(t)
	svc := newLessonService(env)
	course := seedCourse(t, env, "user-1", nil)
	module := seedModule(t, env, course.ID, 1)
	seedLesson(t, env, module.ID, 1, "Existing", types.GenerationStatusGenerated)

	lesson, err := svc.Create(context.Background(), "user-1", module.ID, CreateLessonInput{Title: "Fresh Lesson"})
	require.NoError(t, err)
	require.Equal(t, 2, lesson.Position)
	require.Equal(t, types.GenerationStatusPending, lesson.GenerationStatus)
	require.JSONEq(t, "[]", string(lesson.Content))
}

func TestLessonCreateScopedToOwner(t *testing.T) {
	env := newTestEnv(t)
	svc := newLessonService(env)
	course := seedCourse(t, env, "user-1", nil)
	module := seedModule(t, env, course.ID, 1)

	_, err := svc.Create(context.Background(), "user-2", module.ID, CreateLessonInput{Title: "Nope"})
	require.Equal(t, http.StatusNotFound, apierr.As(err).Status)
}

func TestLessonPatchContentValidated(t *testing.T) {
	env := newTestEnv(t)
	svc := newLessonService(env)
	course := seedCourse(t, env, "user-1", nil)
	module := seedModule(t, env, course.ID, 1)
	lesson := seedLesson(t, env, module.ID, 1, "Editable", types.GenerationStatusGenerated)

	_, err := svc.Patch(context.Background(), "user-1", lesson.ID, lesson.UpdatedAt.UnixMilli(), UpdateLessonInput{
		Content: rawPtr(`[{"kind":"mystery"}]`),
	})
	require.Equal(t, apierr.CodeBadRequest, apierr.As(err).Code)

	updated, err := svc.Patch(context.Background(), "user-1", lesson.ID, lesson.UpdatedAt.UnixMilli(), UpdateLessonInput{
		Content: rawPtr(`[{"kind":"heading","content_md":"Intro"},{"kind":"bullets","items":["one","two"]}]`),
	})
	require.NoError(t, err)
	require.Contains(t, string(updated.Content), "Intro")
}

func TestLessonPatchStaleTimestampConflicts(t *testing.T) {
	env := newTestEnv(t)
	svc := newLessonService(env)
	course := seedCourse(t, env, "user-1", nil)
	module := seedModule(t, env, course.ID, 1)
	lesson := seedLesson(t, env, module.ID, 1, "Contested", types.GenerationStatusGenerated)
	observed := lesson.UpdatedAt.UnixMilli()

	_, err := svc.Patch(context.Background(), "user-1", lesson.ID, observed, UpdateLessonInput{
		Title: strPtr("First writer"),
	})
	require.NoError(t, err)

	_, err = svc.Patch(context.Background(), "user-1", lesson.ID, observed, UpdateLessonInput{
		Title: strPtr("Second writer"),
	})
	require.Equal(t, apierr.CodeVersionConflict, apierr.As(err).Code)
}
