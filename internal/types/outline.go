package types

import (
	"fmt"
	"strings"
)

// Structural bounds for an AI-proposed outline. An outline outside these
// bounds is rejected before it is stored on a brief.
const (
	OutlineMaxModules          = 20
	OutlineMaxLessonsPerModule = 20
	OutlineTitleMinLen         = 3
	OutlineCourseTitleMaxLen   = 140
	OutlineCourseSummaryMaxLen = 600
	OutlineModuleTitleMaxLen   = 120
	OutlineModuleSummaryMaxLen = 500
	OutlineLessonTitleMaxLen   = 140
)

type OutlineLesson struct {
	Title string `json:"title"`
}

type OutlineModule struct {
	Title   string          `json:"title"`
	Summary string          `json:"summary,omitempty"`
	Lessons []OutlineLesson `json:"lessons"`
}

// PlanOutline is the JSON contract for the outline stored on a brief before
// commit. Module and lesson order is significant.
type PlanOutline struct {
	CourseTitle   string          `json:"courseTitle"`
	CourseSummary string          `json:"courseSummary"`
	Modules       []OutlineModule `json:"modules"`
}

func (o *PlanOutline) Normalize() {
	o.CourseTitle = strings.TrimSpace(o.CourseTitle)
	o.CourseSummary = strings.TrimSpace(o.CourseSummary)
	for i := range o.Modules {
		o.Modules[i].Title = strings.TrimSpace(o.Modules[i].Title)
		o.Modules[i].Summary = strings.TrimSpace(o.Modules[i].Summary)
		for j := range o.Modules[i].Lessons {
			o.Modules[i].Lessons[j].Title = strings.TrimSpace(o.Modules[i].Lessons[j].Title)
		}
	}
}

func (o *PlanOutline) Validate() error {
	if n := len(o.CourseTitle); n < OutlineTitleMinLen || n > OutlineCourseTitleMaxLen {
		return fmt.Errorf("course title length %d out of range [%d,%d]", n, OutlineTitleMinLen, OutlineCourseTitleMaxLen)
	}
	if n := len(o.CourseSummary); n < 1 || n > OutlineCourseSummaryMaxLen {
		return fmt.Errorf("course summary length %d out of range [1,%d]", n, OutlineCourseSummaryMaxLen)
	}
	if n := len(o.Modules); n < 1 || n > OutlineMaxModules {
		return fmt.Errorf("module count %d out of range [1,%d]", n, OutlineMaxModules)
	}
	for i, m := range o.Modules {
		if n := len(m.Title); n < OutlineTitleMinLen || n > OutlineModuleTitleMaxLen {
			return fmt.Errorf("module %d title length %d out of range [%d,%d]", i+1, n, OutlineTitleMinLen, OutlineModuleTitleMaxLen)
		}
		if n := len(m.Summary); n > OutlineModuleSummaryMaxLen {
			return fmt.Errorf("module %d summary length %d exceeds %d", i+1, n, OutlineModuleSummaryMaxLen)
		}
		if n := len(m.Lessons); n < 1 || n > OutlineMaxLessonsPerModule {
			return fmt.Errorf("module %d lesson count %d out of range [1,%d]", i+1, n, OutlineMaxLessonsPerModule)
		}
		for j, l := range m.Lessons {
			if n := len(l.Title); n < OutlineTitleMinLen || n > OutlineLessonTitleMaxLen {
				return fmt.Errorf("module %d lesson %d title length %d out of range [%d,%d]", i+1, j+1, n, OutlineTitleMinLen, OutlineLessonTitleMaxLen)
			}
		}
	}
	return nil
}

func (o *PlanOutline) ModuleCount() int { return len(o.Modules) }

func (o *PlanOutline) LessonCount() int {
	total := 0
	for _, m := range o.Modules {
		total += len(m.Lessons)
	}
	return total
}
