package services

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/courseforge-backend/internal/apierr"
	"github.com/yungbote/courseforge-backend/internal/types"
)

func newBriefService(env *testEnv) BriefService {
	return NewBriefService(env.db, env.log, env.briefRepo, env.eventRepo)
}

func strPtr(s string) *string { return &s }

func TestBriefCreateStartsAtVersionOne(t *testing.T) {
	env := newTestEnv(t)
	svc := newBriefService(env)

	brief, err := svc.Create(context.Background(), "user-1", CreateBriefInput{
		Source: types.BriefSourceManual,
		Topic:  "Go Fundamentals",
		Goals:  []string{"Learn syntax", "Write a CLI"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, brief.Version)
	require.Equal(t, types.BriefStateCollecting, brief.ModeState)

	var goals []string
	require.NoError(t, json.Unmarshal(brief.Goals, &goals))
	require.Equal(t, []string{"Learn syntax", "Write a CLI"}, goals)
}

func TestBriefCreateRejectsBadSource(t *testing.T) {
	env := newTestEnv(t)
	svc := newBriefService(env)

	_, err := svc.Create(context.Background(), "user-1", CreateBriefInput{Source: "import"})
	ae := apierr.As(err)
	require.Equal(t, http.StatusBadRequest, ae.Status)
	require.Equal(t, apierr.CodeBadRequest, ae.Code)
}

func TestBriefPatchBumpsVersionByOne(t *testing.T) {
	env := newTestEnv(t)
	svc := newBriefService(env)
	brief := seedBrief(t, env, "user-1", nil)

	updated, err := svc.Patch(context.Background(), "user-1", brief.ID, 1, UpdateBriefInput{
		Topic: strPtr("Advanced Go"),
	})
	require.NoError(t, err)
	require.Equal(t, 2, updated.Version)
	require.Equal(t, "Advanced Go", updated.Topic)
	require.Equal(t, types.BriefStateCollecting, updated.ModeState)
}

func TestBriefPatchStaleVersionConflicts(t *testing.T) {
	env := newTestEnv(t)
	svc := newBriefService(env)
	brief := seedBrief(t, env, "user-1", nil)

	_, err := svc.Patch(context.Background(), "user-1", brief.ID, 1, UpdateBriefInput{Topic: strPtr("First edit")})
	require.NoError(t, err)

	// second writer still holds version 1
	_, err = svc.Patch(context.Background(), "user-1", brief.ID, 1, UpdateBriefInput{Topic: strPtr("Second edit")})
	ae := apierr.As(err)
	require.Equal(t, http.StatusConflict, ae.Status)
	require.Equal(t, apierr.CodeVersionConflict, ae.Code)
	require.EqualValues(t, 2, ae.Details["expected"])
	require.EqualValues(t, 1, ae.Details["got"])

	reloaded, err := svc.Get(context.Background(), "user-1", brief.ID)
	require.NoError(t, err)
	require.Equal(t, "First edit", reloaded.Topic)
}

func TestBriefPatchTerminalRejected(t *testing.T) {
	env := newTestEnv(t)
	svc := newBriefService(env)
	brief := seedBrief(t, env, "user-1", func(b *types.CourseBrief) {
		b.ModeState = types.BriefStateAbandoned
	})

	_, err := svc.Patch(context.Background(), "user-1", brief.ID, 1, UpdateBriefInput{Topic: strPtr("Too late")})
	ae := apierr.As(err)
	require.Equal(t, http.StatusConflict, ae.Status)
	require.Equal(t, apierr.CodeStateConflict, ae.Code)
}

func TestBriefAbandonIsTerminal(t *testing.T) {
	env := newTestEnv(t)
	svc := newBriefService(env)
	brief := seedBrief(t, env, "user-1", nil)

	abandoned, err := svc.Abandon(context.Background(), "user-1", brief.ID)
	require.NoError(t, err)
	require.Equal(t, types.BriefStateAbandoned, abandoned.ModeState)
	require.Equal(t, 2, abandoned.Version)

	_, err = svc.Abandon(context.Background(), "user-1", brief.ID)
	require.Equal(t, apierr.CodeStateConflict, apierr.As(err).Code)
}

func TestBriefGetScopedToOwner(t *testing.T) {
	env := newTestEnv(t)
	svc := newBriefService(env)
	brief := seedBrief(t, env, "user-1", nil)

	_, err := svc.Get(context.Background(), "user-2", brief.ID)
	require.Equal(t, http.StatusNotFound, apierr.As(err).Status)

	_, err = svc.Get(context.Background(), "user-1", uuid.New())
	require.Equal(t, http.StatusNotFound, apierr.As(err).Status)
}

func TestBriefAppendEventRejectsServiceOwnedTypes(t *testing.T) {
	env := newTestEnv(t)
	svc := newBriefService(env)
	brief := seedBrief(t, env, "user-1", nil)

	_, err := svc.AppendEvent(context.Background(), "user-1", brief.ID, types.EventActorUser, types.EventTypeCommit, nil)
	require.Equal(t, apierr.CodeBadRequest, apierr.As(err).Code)

	event, err := svc.AppendEvent(context.Background(), "user-1", brief.ID, types.EventActorUser, types.EventTypeAnswer, json.RawMessage(`{"text":"beginner"}`))
	require.NoError(t, err)
	require.Equal(t, types.EventTypeAnswer, event.Type)

	events, err := svc.ListEvents(context.Background(), "user-1", brief.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
}
