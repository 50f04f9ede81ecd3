package types

// Pure JSON contract for lesson content blocks. Not a DB model; the lesson
// `content` column holds an array of these, defaulting to [].

type LessonBlock struct {
	Kind      string   `json:"kind"`                 // heading|paragraph|bullets|steps|callout|divider
	ContentMD string   `json:"content_md,omitempty"` // for heading/paragraph/callout
	Items     []string `json:"items,omitempty"`      // bullets/steps
}
