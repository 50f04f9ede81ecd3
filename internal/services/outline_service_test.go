package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/courseforge-backend/internal/ai"
	"github.com/yungbote/courseforge-backend/internal/apierr"
	"github.com/yungbote/courseforge-backend/internal/types"
)

func newOutlineService(env *testEnv, provider *stubProvider) OutlineService {
	return NewOutlineService(env.db, env.log, provider, env.briefRepo, env.eventRepo)
}

func TestGenerateOutlineStoresAndAdvancesBrief(t *testing.T) {
	env := newTestEnv(t)
	svc := newOutlineService(env, &stubProvider{})
	brief := seedBrief(t, env, "user-1", nil)

	summary, err := svc.GenerateOutline(context.Background(), "user-1", brief.ID)
	require.NoError(t, err)
	require.Equal(t, 2, summary.ModuleCount)
	require.Equal(t, 5, summary.LessonCount)
	require.Equal(t, 2, summary.BriefVersion)

	reloaded, err := env.briefRepo.GetByIDForOwner(context.Background(), nil, brief.ID, "user-1")
	require.NoError(t, err)
	require.Equal(t, types.BriefStateOutlineReady, reloaded.ModeState)
	require.Equal(t, 2, reloaded.Version)

	var stored types.PlanOutline
	require.NoError(t, json.Unmarshal(reloaded.PlanOutline, &stored))
	require.Equal(t, "Go Fundamentals", stored.CourseTitle)
	require.Len(t, stored.Modules, 2)

	events, err := env.eventRepo.ListByBriefID(context.Background(), nil, brief.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, types.EventTypeGenOutline, events[0].Type)
	require.Equal(t, types.EventActorBot, events[0].Actor)
}

func TestGenerateOutlineRejectsExistingOutline(t *testing.T) {
	env := newTestEnv(t)
	svc := newOutlineService(env, &stubProvider{})
	brief := seedBrief(t, env, "user-1", func(b *types.CourseBrief) {
		b.ModeState = types.BriefStateOutlineReady
		b.PlanOutline = mustJSON(t, testOutline())
	})

	_, err := svc.GenerateOutline(context.Background(), "user-1", brief.ID)
	ae := apierr.As(err)
	require.Equal(t, http.StatusConflict, ae.Status)
	require.Equal(t, apierr.CodeStateConflict, ae.Code)
}

func TestGenerateOutlineRequiresTopic(t *testing.T) {
	env := newTestEnv(t)
	svc := newOutlineService(env, &stubProvider{})
	brief := seedBrief(t, env, "user-1", func(b *types.CourseBrief) {
		b.Topic = "   "
	})

	_, err := svc.GenerateOutline(context.Background(), "user-1", brief.ID)
	ae := apierr.As(err)
	require.Equal(t, http.StatusUnprocessableEntity, ae.Status)
	require.Equal(t, apierr.CodeValidationFailed, ae.Code)
}

func TestGenerateOutlineProviderFailureLeavesBriefUntouched(t *testing.T) {
	env := newTestEnv(t)
	svc := newOutlineService(env, &stubProvider{outlineErr: errors.New("model unavailable")})
	brief := seedBrief(t, env, "user-1", nil)

	_, err := svc.GenerateOutline(context.Background(), "user-1", brief.ID)
	ae := apierr.As(err)
	require.Equal(t, http.StatusInternalServerError, ae.Status)
	require.Equal(t, apierr.CodeProviderFailure, ae.Code)

	reloaded, err := env.briefRepo.GetByIDForOwner(context.Background(), nil, brief.ID, "user-1")
	require.NoError(t, err)
	require.Equal(t, types.BriefStateCollecting, reloaded.ModeState)
	require.Equal(t, 1, reloaded.Version)
	require.Empty(t, reloaded.PlanOutline)
}

func TestGenerateOutlineRejectsOutOfBoundsOutline(t *testing.T) {
	env := newTestEnv(t)
	bad := testOutline()
	bad.Modules[0].Lessons = nil
	svc := newOutlineService(env, &stubProvider{outline: &bad})
	brief := seedBrief(t, env, "user-1", nil)

	_, err := svc.GenerateOutline(context.Background(), "user-1", brief.ID)
	require.Equal(t, apierr.CodeProviderFailure, apierr.As(err).Code)
}

func TestRecommendGoalsRequiresTopic(t *testing.T) {
	env := newTestEnv(t)
	svc := newOutlineService(env, &stubProvider{})

	_, err := svc.RecommendGoals(context.Background(), "  ", "")
	require.Equal(t, apierr.CodeValidationFailed, apierr.As(err).Code)

	goals, err := svc.RecommendGoals(context.Background(), "Go", "")
	require.NoError(t, err)
	require.NotEmpty(t, goals)
}

func TestAssessLearnerLevelRequiresTopic(t *testing.T) {
	env := newTestEnv(t)
	svc := newOutlineService(env, &stubProvider{})

	_, err := svc.AssessLearnerLevel(context.Background(), "  ", "", nil)
	require.Equal(t, apierr.CodeValidationFailed, apierr.As(err).Code)

	assessment, err := svc.AssessLearnerLevel(context.Background(), "Go", "", []ai.PrerequisiteCheck{
		{Text: "Programming basics", Checked: true},
	})
	require.NoError(t, err)
	require.Equal(t, "intermediate", assessment.Level)
	require.NotEmpty(t, assessment.Explanation)
}

func TestAnalyzePrerequisitesStoresSuggestions(t *testing.T) {
	env := newTestEnv(t)
	svc := newOutlineService(env, &stubProvider{})
	brief := seedBrief(t, env, "user-1", nil)

	prereqs, err := svc.AnalyzePrerequisites(context.Background(), "user-1", brief.ID)
	require.NoError(t, err)
	require.NotEmpty(t, prereqs)

	reloaded, err := env.briefRepo.GetByIDForOwner(context.Background(), nil, brief.ID, "user-1")
	require.NoError(t, err)
	require.Equal(t, 2, reloaded.Version)

	var stored []string
	require.NoError(t, json.Unmarshal(reloaded.PrereqSuggestions, &stored))
	require.Equal(t, prereqs, stored)
}
