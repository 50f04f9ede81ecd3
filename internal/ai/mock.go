package ai

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/yungbote/courseforge-backend/internal/types"
)

// mockProvider produces deterministic structured output: the request is
// hashed to seed a small PRNG, so identical inputs reproduce identical
// results. Useful for tests and local development without an API key.
type mockProvider struct{}

func NewMockProvider() Provider {
	return &mockProvider{}
}

func (m *mockProvider) Name() string { return "mock" }

// FNV-1a, matching the 32-bit string hash the seed derives from.
func hashString(s string) uint32 {
	h := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}

// prng is a mulberry32 generator; cheap and stable across platforms.
type prng struct {
	state uint32
}

func newPRNG(seed uint32) *prng {
	return &prng{state: seed}
}

func (p *prng) next() float64 {
	p.state += 0x6d2b79f5
	t := p.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return float64(t^(t>>14)) / 4294967296.0
}

func clampInt(n, min, max int) int {
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

func titleCase(s string) string {
	words := strings.Split(s, " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

var cannedModules = []string{
	"Foundations",
	"Core Concepts",
	"Hands-on Practice",
	"Patterns & Techniques",
	"Project Workshop",
	"Review & Next Steps",
}

var cannedLessonStems = []string{
	"Overview",
	"Setup",
	"Basics",
	"Deep Dive",
	"Walkthrough",
	"Examples",
	"Checklist",
	"Recap",
}

func (m *mockProvider) GenerateOutline(ctx context.Context, req OutlineRequest) (*OutlineResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		topic = "Untitled Course"
	}
	goals := make([]string, 0, len(req.Goals))
	for _, g := range req.Goals {
		if strings.TrimSpace(g) != "" {
			goals = append(goals, g)
		}
	}

	rand := newPRNG(hashString(topic))

	baseModuleCount := 3
	if len(goals) > 0 {
		baseModuleCount = len(goals)
	}
	moduleCount := clampInt(int(math.Round(float64(baseModuleCount)+rand.next()*2)), 2, 6)

	modules := make([]types.OutlineModule, 0, moduleCount)
	for i := 0; i < moduleCount; i++ {
		label := cannedModules[i%len(cannedModules)]
		if len(goals) > 0 {
			label = goals[i%len(goals)]
		}

		lessonCount := clampInt(1+int(rand.next()*5), 1, 5)
		lessons := make([]types.OutlineLesson, 0, lessonCount)
		for j := 0; j < lessonCount; j++ {
			stem := cannedLessonStems[(i+j)%len(cannedLessonStems)]
			raw := truncate(stem+" "+topic, 120)
			lessons = append(lessons, types.OutlineLesson{
				Title: fmt.Sprintf("Lesson %d: %s", j+1, titleCase(raw)),
			})
		}

		modules = append(modules, types.OutlineModule{
			Title:   truncate(fmt.Sprintf("Module %d: %s", i+1, label), types.OutlineModuleTitleMaxLen),
			Summary: truncate(fmt.Sprintf("Learn %s in the context of %s.", strings.ToLower(label), topic), types.OutlineModuleSummaryMaxLen),
			Lessons: lessons,
		})
	}

	summary := strings.TrimSpace(req.Details)
	if summary == "" {
		summary = fmt.Sprintf("An AI-drafted outline for %s, covering fundamentals, core skills, and practical exercises.", topic)
	}

	outTokens := 200
	for _, mod := range modules {
		outTokens += len(mod.Lessons) * 10
	}

	// Short topics like "Go" would miss the outline's minimum title length.
	courseTitle := truncate(topic, types.OutlineCourseTitleMaxLen)
	if len(courseTitle) < types.OutlineTitleMinLen {
		courseTitle = truncate(courseTitle+" Course", types.OutlineCourseTitleMaxLen)
	}

	return &OutlineResult{
		Outline: types.PlanOutline{
			CourseTitle:   courseTitle,
			CourseSummary: truncate(summary, types.OutlineCourseSummaryMaxLen),
			Modules:       modules,
		},
		Tokens: TokenUsage{
			Input:  int(math.Round(50 + rand.next()*100)),
			Output: outTokens,
		},
	}, nil
}

func (m *mockProvider) GenerateLessonContent(ctx context.Context, req LessonContentRequest) (*LessonContentResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	level := req.LearnerLevel
	if level == "" {
		level = "intermediate"
	}
	diff := req.TargetDifficulty
	if diff == "" {
		diff = "standard"
	}

	rand := newPRNG(hashString(req.CourseTitle + req.ModuleTitle + req.LessonTitle + req.Details + level + diff))

	blocks := []types.LessonBlock{
		{Kind: "heading", ContentMD: req.LessonTitle},
		{Kind: "paragraph", ContentMD: fmt.Sprintf("Welcome to the lesson %q in the module %q for the course %q.", req.LessonTitle, req.ModuleTitle, req.CourseTitle)},
	}
	if strings.TrimSpace(req.Details) != "" {
		blocks = append(blocks, types.LessonBlock{Kind: "paragraph", ContentMD: "Context: " + req.Details})
	}
	blocks = append(blocks, types.LessonBlock{
		Kind:      "callout",
		ContentMD: fmt.Sprintf("This lesson is tailored for %s learners at a %s difficulty.", level, diff),
	})

	sections := []string{"Key Concepts", "Step-by-Step Explanation", "Practical Example", "Summary & Next Steps"}
	bullets := []string{
		fmt.Sprintf("Understand the main idea behind %s", req.LessonTitle),
		fmt.Sprintf("Learn how %s applies to real-world scenarios", req.LessonTitle),
		fmt.Sprintf("Avoid common mistakes in %s", req.LessonTitle),
		"Practice with a hands-on exercise",
	}
	for i, section := range sections {
		blocks = append(blocks,
			types.LessonBlock{Kind: "heading", ContentMD: section},
			types.LessonBlock{Kind: "bullets", Items: []string{bullets[i%len(bullets)]}},
		)
	}
	blocks = append(blocks, types.LessonBlock{Kind: "paragraph", ContentMD: "Congratulations on completing the lesson!"})

	return &LessonContentResult{
		Blocks:             blocks,
		ReadingTimeMinutes: 3 + int(rand.next()*10),
		Tokens: TokenUsage{
			Input:  int(math.Round(30 + rand.next()*40)),
			Output: int(math.Round(200 + rand.next()*100)),
		},
	}, nil
}

func (m *mockProvider) RecommendGoals(ctx context.Context, req PlanningRequest) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	topic := strings.TrimSpace(req.Topic)
	rand := newPRNG(hashString(topic + req.Details))

	templates := []string{
		"Understand the fundamentals of %s",
		"Build a small project using %s",
		"Learn the standard tooling around %s",
		"Recognize common pitfalls in %s",
		"Apply %s to a real-world problem",
	}
	count := clampInt(3+int(rand.next()*3), 3, 5)
	goals := make([]string, 0, count)
	for i := 0; i < count; i++ {
		goals = append(goals, fmt.Sprintf(templates[i%len(templates)], topic))
	}
	return goals, nil
}

// AssessLearnerLevel grades the share of prerequisites the learner checked:
// >=75% advanced, >=40% intermediate, otherwise novice.
func (m *mockProvider) AssessLearnerLevel(ctx context.Context, req LevelAssessmentRequest) (*LevelAssessment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	topic := strings.TrimSpace(req.Topic)
	total := len(req.Prerequisites)
	checked := 0
	for _, p := range req.Prerequisites {
		if p.Checked {
			checked++
		}
	}
	percentage := 0.0
	if total > 0 {
		percentage = float64(checked) / float64(total) * 100
	}

	switch {
	case percentage >= 75:
		return &LevelAssessment{
			Level:       "advanced",
			Explanation: fmt.Sprintf("You have strong foundational knowledge with %d out of %d prerequisites met. You're ready to dive into advanced %s concepts and build on your existing expertise.", checked, total, topic),
		}, nil
	case percentage >= 40:
		return &LevelAssessment{
			Level:       "intermediate",
			Explanation: fmt.Sprintf("You have some prerequisite knowledge with %d out of %d prerequisites met. This course will build on what you know while introducing new %s concepts at a moderate pace.", checked, total, topic),
		}, nil
	default:
		return &LevelAssessment{
			Level:       "novice",
			Explanation: fmt.Sprintf("You're just getting started with %d out of %d prerequisites met. This course will cover %s fundamentals from the ground up, ensuring you have a solid foundation.", checked, total, topic),
		}, nil
	}
}

func (m *mockProvider) AnalyzePrerequisites(ctx context.Context, req PlanningRequest) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	topic := strings.TrimSpace(req.Topic)
	rand := newPRNG(hashString("prereqs:" + topic + req.Details))

	templates := []string{
		"Basic familiarity with the terminology of %s",
		"Comfort reading introductory material about %s",
		"Access to an environment where %s can be practiced",
		"Willingness to experiment with %s hands-on",
	}
	count := clampInt(2+int(rand.next()*3), 2, 4)
	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, fmt.Sprintf(templates[i%len(templates)], topic))
	}
	return out, nil
}
