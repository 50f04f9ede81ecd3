package ai

import (
	"context"
	"reflect"
	"strings"
	"testing"
)

func TestMockOutlineIsDeterministic(t *testing.T) {
	p := NewMockProvider()
	req := OutlineRequest{Topic: "Go Fundamentals", Details: "from scratch", Goals: []string{"Syntax", "Tooling"}}

	first, err := p.GenerateOutline(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.GenerateOutline(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first.Outline, second.Outline) {
		t.Error("identical requests should produce identical outlines")
	}
}

func TestMockOutlineWithinBounds(t *testing.T) {
	p := NewMockProvider()
	topics := []string{"Go", "Distributed Systems", "Photography for Beginners", "SQL", "x"}
	for _, topic := range topics {
		res, err := p.GenerateOutline(context.Background(), OutlineRequest{Topic: topic})
		if err != nil {
			t.Fatalf("topic %q: %v", topic, err)
		}
		outline := res.Outline
		outline.Normalize()
		if err := outline.Validate(); err != nil {
			t.Errorf("topic %q produced invalid outline: %v", topic, err)
		}
		if n := len(outline.Modules); n < 2 || n > 6 {
			t.Errorf("topic %q: module count %d outside [2,6]", topic, n)
		}
		for i, m := range outline.Modules {
			if n := len(m.Lessons); n < 1 || n > 5 {
				t.Errorf("topic %q module %d: lesson count %d outside [1,5]", topic, i, n)
			}
		}
	}
}

func TestMockLessonContentDeterministicAndWellFormed(t *testing.T) {
	p := NewMockProvider()
	req := LessonContentRequest{
		CourseTitle: "Go Fundamentals",
		ModuleTitle: "Basics",
		LessonTitle: "Hello, World",
	}
	first, err := p.GenerateLessonContent(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.GenerateLessonContent(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first.Blocks, second.Blocks) {
		t.Error("identical requests should produce identical blocks")
	}
	if first.ReadingTimeMinutes != second.ReadingTimeMinutes {
		t.Error("reading time should be deterministic")
	}
	if first.ReadingTimeMinutes < 3 || first.ReadingTimeMinutes > 13 {
		t.Errorf("reading time %d outside [3,13]", first.ReadingTimeMinutes)
	}
	if len(first.Blocks) == 0 {
		t.Fatal("expected content blocks")
	}
	if first.Blocks[0].Kind != "heading" || first.Blocks[0].ContentMD != req.LessonTitle {
		t.Errorf("first block should be the lesson heading, got %+v", first.Blocks[0])
	}
	for i, b := range first.Blocks {
		switch b.Kind {
		case "heading", "paragraph", "callout":
			if b.ContentMD == "" {
				t.Errorf("block %d (%s) has empty content", i, b.Kind)
			}
		case "bullets", "steps":
			if len(b.Items) == 0 {
				t.Errorf("block %d (%s) has no items", i, b.Kind)
			}
		case "divider":
		default:
			t.Errorf("block %d has unknown kind %q", i, b.Kind)
		}
	}
}

func TestMockPlanningHelpersBounded(t *testing.T) {
	p := NewMockProvider()

	goals, err := p.RecommendGoals(context.Background(), PlanningRequest{Topic: "Go"})
	if err != nil {
		t.Fatal(err)
	}
	if n := len(goals); n < 3 || n > 5 {
		t.Errorf("goal count %d outside [3,5]", n)
	}

	prereqs, err := p.AnalyzePrerequisites(context.Background(), PlanningRequest{Topic: "Go"})
	if err != nil {
		t.Fatal(err)
	}
	if n := len(prereqs); n < 2 || n > 4 {
		t.Errorf("prerequisite count %d outside [2,4]", n)
	}
}

func TestMockAssessLearnerLevelGradesCheckedShare(t *testing.T) {
	p := NewMockProvider()
	prereqs := func(checked, total int) []PrerequisiteCheck {
		out := make([]PrerequisiteCheck, total)
		for i := range out {
			out[i] = PrerequisiteCheck{Text: "Prerequisite", Checked: i < checked}
		}
		return out
	}

	cases := []struct {
		checked, total int
		want           string
	}{
		{4, 4, "advanced"},
		{3, 4, "advanced"},
		{2, 4, "intermediate"},
		{1, 4, "novice"},
		{0, 4, "novice"},
		{0, 0, "novice"},
	}
	for _, tc := range cases {
		res, err := p.AssessLearnerLevel(context.Background(), LevelAssessmentRequest{
			Topic:         "Go",
			Prerequisites: prereqs(tc.checked, tc.total),
		})
		if err != nil {
			t.Fatalf("%d/%d: %v", tc.checked, tc.total, err)
		}
		if res.Level != tc.want {
			t.Errorf("%d/%d checked: level = %q, want %q", tc.checked, tc.total, res.Level, tc.want)
		}
		if res.Explanation == "" {
			t.Errorf("%d/%d checked: empty explanation", tc.checked, tc.total)
		}
	}
}

func TestMockOutlineFollowsGoals(t *testing.T) {
	p := NewMockProvider()
	goals := []string{"Read Go code", "Write Go code", "Ship Go services"}
	res, err := p.GenerateOutline(context.Background(), OutlineRequest{Topic: "Go", Goals: goals})
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, m := range res.Outline.Modules {
		for _, g := range goals {
			if strings.Contains(m.Title, g) {
				found = true
			}
		}
	}
	if !found {
		t.Error("expected at least one module title derived from a goal")
	}
}
