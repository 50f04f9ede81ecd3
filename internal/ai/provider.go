package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/courseforge-backend/internal/logger"
	"github.com/yungbote/courseforge-backend/internal/types"
	"github.com/yungbote/courseforge-backend/internal/utils"
)

// Provider is the single seam to the AI backend. It is selected once at
// process startup and injected into the services that need it; callers must
// treat every method as slow and fallible.
type Provider interface {
	Name() string
	GenerateOutline(ctx context.Context, req OutlineRequest) (*OutlineResult, error)
	GenerateLessonContent(ctx context.Context, req LessonContentRequest) (*LessonContentResult, error)
	RecommendGoals(ctx context.Context, req PlanningRequest) ([]string, error)
	AnalyzePrerequisites(ctx context.Context, req PlanningRequest) ([]string, error)
	AssessLearnerLevel(ctx context.Context, req LevelAssessmentRequest) (*LevelAssessment, error)
}

type TokenUsage struct {
	Input  int `json:"in"`
	Output int `json:"out"`
}

type OutlineRequest struct {
	Topic            string
	Details          string
	LearnerLevel     string
	TargetDifficulty string
	Goals            []string
}

type OutlineResult struct {
	Outline types.PlanOutline
	Tokens  TokenUsage
}

type LessonContentRequest struct {
	CourseTitle      string
	CourseSummary    string
	ModuleTitle      string
	LessonTitle      string
	Details          string
	LearnerLevel     string
	TargetDifficulty string
}

type LessonContentResult struct {
	Blocks             []types.LessonBlock
	ReadingTimeMinutes int
	Tokens             TokenUsage
}

type PlanningRequest struct {
	Topic   string
	Details string
}

// PrerequisiteCheck is one prerequisite with whether the learner reports
// meeting it.
type PrerequisiteCheck struct {
	Text    string `json:"text"`
	Checked bool   `json:"checked"`
}

type LevelAssessmentRequest struct {
	Topic         string
	Details       string
	Prerequisites []PrerequisiteCheck
}

type LevelAssessment struct {
	Level       string `json:"level"`
	Explanation string `json:"explanation"`
}

// NewFromEnv picks the provider implementation from AI_PROVIDER. The choice
// happens exactly once; nothing downstream consults configuration again.
func NewFromEnv(log *logger.Logger) (Provider, error) {
	name := strings.ToLower(strings.TrimSpace(utils.GetEnv("AI_PROVIDER", "mock", log)))
	switch name {
	case "", "mock":
		return NewMockProvider(), nil
	case "openai":
		return NewOpenAIProvider(log)
	default:
		return nil, fmt.Errorf("unknown AI_PROVIDER %q", name)
	}
}
