package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/courseforge-backend/internal/ai"
	"github.com/yungbote/courseforge-backend/internal/logger"
	"github.com/yungbote/courseforge-backend/internal/repos"
	"github.com/yungbote/courseforge-backend/internal/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(
		&types.CourseBrief{},
		&types.BriefEvent{},
		&types.Course{},
		&types.CourseModule{},
		&types.Lesson{},
		&types.GenerationRun{},
	))
	return gdb
}

func newTestLogger() *logger.Logger {
	return &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
}

type testEnv struct {
	db         *gorm.DB
	log        *logger.Logger
	briefRepo  repos.BriefRepo
	eventRepo  repos.BriefEventRepo
	courseRepo repos.CourseRepo
	moduleRepo repos.CourseModuleRepo
	lessonRepo repos.LessonRepo
	runRepo    repos.GenerationRunRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gdb := newTestDB(t)
	log := newTestLogger()
	return &testEnv{
		db:         gdb,
		log:        log,
		briefRepo:  repos.NewBriefRepo(gdb, log),
		eventRepo:  repos.NewBriefEventRepo(gdb, log),
		courseRepo: repos.NewCourseRepo(gdb, log),
		moduleRepo: repos.NewCourseModuleRepo(gdb, log),
		lessonRepo: repos.NewLessonRepo(gdb, log),
		runRepo:    repos.NewGenerationRunRepo(gdb, log),
	}
}

func mustJSON(t *testing.T, v interface{}) datatypes.JSON {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return datatypes.JSON(raw)
}

func seedBrief(t *testing.T, env *testEnv, owner string, mutate func(*types.CourseBrief)) *types.CourseBrief {
	t.Helper()
	now := time.Now().Add(-time.Minute).Truncate(time.Millisecond)
	brief := &types.CourseBrief{
		ID:          uuid.New(),
		OwnerUserID: owner,
		Source:      types.BriefSourceManual,
		ModeState:   types.BriefStateCollecting,
		Topic:       "Go Fundamentals",
		Details:     "A practical introduction to Go.",
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if mutate != nil {
		mutate(brief)
	}
	_, err := env.briefRepo.Create(context.Background(), nil, []*types.CourseBrief{brief})
	require.NoError(t, err)
	return brief
}

func seedCourse(t *testing.T, env *testEnv, owner string, mutate func(*types.Course)) *types.Course {
	t.Helper()
	now := time.Now().Add(-time.Minute).Truncate(time.Millisecond)
	course := &types.Course{
		ID:          uuid.New(),
		OwnerUserID: owner,
		Title:       "Go Fundamentals",
		Slug:        "go-fundamentals-" + uuid.NewString()[:6],
		Summary:     "A practical introduction to Go.",
		Status:      types.CourseStatusDraft,
		Visibility:  types.VisibilityPrivate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if mutate != nil {
		mutate(course)
	}
	_, err := env.courseRepo.Create(context.Background(), nil, []*types.Course{course})
	require.NoError(t, err)
	return course
}

func seedModule(t *testing.T, env *testEnv, courseID uuid.UUID, position int) *types.CourseModule {
	t.Helper()
	now := time.Now().Add(-time.Minute).Truncate(time.Millisecond)
	module := &types.CourseModule{
		ID:        uuid.New(),
		CourseID:  courseID,
		Title:     fmt.Sprintf("Module %d", position),
		Position:  position,
		Status:    types.CourseStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := env.moduleRepo.Create(context.Background(), nil, []*types.CourseModule{module})
	require.NoError(t, err)
	return module
}

func seedLesson(t *testing.T, env *testEnv, moduleID uuid.UUID, position int, title, genStatus string) *types.Lesson {
	t.Helper()
	now := time.Now().Add(-time.Minute).Truncate(time.Millisecond)
	lesson := &types.Lesson{
		ID:               uuid.New(),
		ModuleID:         moduleID,
		Title:            title,
		Position:         position,
		Status:           types.LessonStatusDraft,
		Content:          datatypes.JSON([]byte("[]")),
		GenerationStatus: genStatus,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	_, err := env.lessonRepo.Create(context.Background(), nil, []*types.Lesson{lesson})
	require.NoError(t, err)
	return lesson
}

func testOutline() types.PlanOutline {
	return types.PlanOutline{
		CourseTitle:   "Go Fundamentals",
		CourseSummary: "Learn Go from the ground up.",
		Modules: []types.OutlineModule{
			{
				Title:   "Getting Started",
				Summary: "Toolchain and first programs.",
				Lessons: []types.OutlineLesson{
					{Title: "Installing Go"},
					{Title: "Hello, World"},
					{Title: "The Go Toolchain"},
				},
			},
			{
				Title: "Core Language",
				Lessons: []types.OutlineLesson{
					{Title: "Types and Values"},
					{Title: "Control Flow"},
				},
			},
		},
	}
}

// stubProvider scripts provider behavior per test. Zero value succeeds with
// canned results. Safe for concurrent use.
type stubProvider struct {
	outline    *types.PlanOutline
	outlineErr error
	lessonErr  func(lessonTitle string) error

	mu            sync.Mutex
	generateCalls []string
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.generateCalls...)
}

func (s *stubProvider) GenerateOutline(ctx context.Context, req ai.OutlineRequest) (*ai.OutlineResult, error) {
	if s.outlineErr != nil {
		return nil, s.outlineErr
	}
	outline := testOutline()
	if s.outline != nil {
		outline = *s.outline
	}
	return &ai.OutlineResult{Outline: outline, Tokens: ai.TokenUsage{Input: 10, Output: 100}}, nil
}

func (s *stubProvider) GenerateLessonContent(ctx context.Context, req ai.LessonContentRequest) (*ai.LessonContentResult, error) {
	s.mu.Lock()
	s.generateCalls = append(s.generateCalls, req.LessonTitle)
	s.mu.Unlock()
	if s.lessonErr != nil {
		if err := s.lessonErr(req.LessonTitle); err != nil {
			return nil, err
		}
	}
	return &ai.LessonContentResult{
		Blocks: []types.LessonBlock{
			{Kind: "heading", ContentMD: req.LessonTitle},
			{Kind: "paragraph", ContentMD: "Generated content."},
		},
		ReadingTimeMinutes: 5,
	}, nil
}

func (s *stubProvider) RecommendGoals(ctx context.Context, req ai.PlanningRequest) ([]string, error) {
	return []string{"Learn the basics of " + req.Topic}, nil
}

func (s *stubProvider) AnalyzePrerequisites(ctx context.Context, req ai.PlanningRequest) ([]string, error) {
	return []string{"Familiarity with " + req.Topic}, nil
}

func (s *stubProvider) AssessLearnerLevel(ctx context.Context, req ai.LevelAssessmentRequest) (*ai.LevelAssessment, error) {
	return &ai.LevelAssessment{Level: "intermediate", Explanation: "Some prerequisites met for " + req.Topic + "."}, nil
}
