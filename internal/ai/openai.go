package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/courseforge-backend/internal/logger"
	"github.com/yungbote/courseforge-backend/internal/types"
	"github.com/yungbote/courseforge-backend/internal/utils"
)

type openAIProvider struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	maxRetries int
}

func NewOpenAIProvider(log *logger.Logger) (Provider, error) {
	apiKey := utils.GetEnv("OPENAI_API_KEY", "", log)
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	baseURL := utils.GetEnv("OPENAI_BASE_URL", "https://api.openai.com", log)
	model := utils.GetEnv("OPENAI_MODEL", "gpt-4o-mini", log)

	// generation workloads run long; keep the default timeout generous
	timeoutSec := utils.GetEnvAsInt("OPENAI_TIMEOUT_SECONDS", 180, log)
	maxRetries := utils.GetEnvAsInt("OPENAI_MAX_RETRIES", 4, log)

	return &openAIProvider{
		log:        log.With("service", "OpenAIProvider"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: maxRetries,
	}, nil
}

func (p *openAIProvider) Name() string { return "openai" }

type openAIHTTPError struct {
	StatusCode int
	Body       string
}

func (e *openAIHTTPError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

func isRetryableHTTP(code int) bool {
	if code == 408 || code == 429 {
		return true
	}
	return code >= 500 && code <= 599
}

func isRetryableErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var httpErr *openAIHTTPError
	if errors.As(err, &httpErr) {
		return isRetryableHTTP(httpErr.StatusCode)
	}
	return false
}

func jitterSleep(base time.Duration) time.Duration {
	// +/- 20%
	if base <= 0 {
		return 0
	}
	delta := base.Seconds() * 0.2
	low := base.Seconds() - delta
	v := low + rand.Float64()*2*delta
	return time.Duration(v * float64(time.Second))
}

func (p *openAIProvider) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &openAIHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (p *openAIProvider) do(ctx context.Context, method, path string, body any, out any) error {
	backoff := 1 * time.Second

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, raw, err := p.doOnce(ctx, method, path, body)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("openai decode error: %w; raw=%s", uErr, string(raw))
			}
			return nil
		}

		if !isRetryableErr(err) || attempt == p.maxRetries {
			return err
		}

		// Respect Retry-After when present
		sleepFor := backoff
		if resp != nil {
			if ra := strings.TrimSpace(resp.Header.Get("Retry-After")); ra != "" {
				if secs, parseErr := strconv.Atoi(ra); parseErr == nil && secs > 0 {
					sleepFor = time.Duration(secs) * time.Second
				}
			}
		}
		if sleepFor > 10*time.Second {
			sleepFor = 10 * time.Second
		}
		sleepFor = jitterSleep(sleepFor)

		p.log.Warn("OpenAI request retrying", "attempt", attempt+1, "sleep", sleepFor.String(), "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleepFor):
		}
		backoff *= 2
	}
	return fmt.Errorf("openai retries exhausted")
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// generateJSON runs a schema-constrained chat completion and unmarshals the
// model output into out. usage is optional.
func (p *openAIProvider) generateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any, out any, usage *TokenUsage) error {
	body := map[string]any{
		"model": p.model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   schemaName,
				"strict": true,
				"schema": schema,
			},
		},
	}

	var resp chatResponse
	if err := p.do(ctx, http.MethodPost, "/v1/chat/completions", body, &resp); err != nil {
		return err
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("openai returned no choices")
	}
	if usage != nil {
		usage.Input = resp.Usage.PromptTokens
		usage.Output = resp.Usage.CompletionTokens
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), out); err != nil {
		return fmt.Errorf("openai content decode error: %w", err)
	}
	return nil
}

func stringSchema() map[string]any { return map[string]any{"type": "string"} }

func stringArraySchema() map[string]any {
	return map[string]any{"type": "array", "items": stringSchema()}
}

func (p *openAIProvider) GenerateOutline(ctx context.Context, req OutlineRequest) (*OutlineResult, error) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"courseTitle":   stringSchema(),
			"courseSummary": stringSchema(),
			"modules": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"title":   stringSchema(),
						"summary": stringSchema(),
						"lessons": map[string]any{
							"type": "array",
							"items": map[string]any{
								"type":                 "object",
								"properties":           map[string]any{"title": stringSchema()},
								"required":             []string{"title"},
								"additionalProperties": false,
							},
						},
					},
					"required":             []string{"title", "summary", "lessons"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"courseTitle", "courseSummary", "modules"},
		"additionalProperties": false,
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Topic: %s\n", req.Topic)
	if req.Details != "" {
		fmt.Fprintf(&sb, "Details: %s\n", req.Details)
	}
	if req.LearnerLevel != "" {
		fmt.Fprintf(&sb, "Learner level: %s\n", req.LearnerLevel)
	}
	if req.TargetDifficulty != "" {
		fmt.Fprintf(&sb, "Target difficulty: %s\n", req.TargetDifficulty)
	}
	if len(req.Goals) > 0 {
		fmt.Fprintf(&sb, "Goals: %s\n", strings.Join(req.Goals, "; "))
	}
	sb.WriteString("\nCreate a course outline with 2-6 modules and 1-5 lessons per module. Keep titles specific.")

	var outline types.PlanOutline
	var usage TokenUsage
	err := p.generateJSON(ctx,
		"You design structured, coherent course outlines from a short brief.",
		sb.String(), "course_outline", schema, &outline, &usage)
	if err != nil {
		return nil, err
	}
	return &OutlineResult{Outline: outline, Tokens: usage}, nil
}

func (p *openAIProvider) GenerateLessonContent(ctx context.Context, req LessonContentRequest) (*LessonContentResult, error) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"blocks": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"kind":       map[string]any{"type": "string", "enum": []string{"heading", "paragraph", "bullets", "steps", "callout", "divider"}},
						"content_md": stringSchema(),
						"items":      stringArraySchema(),
					},
					"required":             []string{"kind", "content_md", "items"},
					"additionalProperties": false,
				},
			},
			"reading_time_minutes": map[string]any{"type": "integer"},
		},
		"required":             []string{"blocks", "reading_time_minutes"},
		"additionalProperties": false,
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Course: %s\nModule: %s\nLesson: %s\n", req.CourseTitle, req.ModuleTitle, req.LessonTitle)
	if req.CourseSummary != "" {
		fmt.Fprintf(&sb, "Course summary: %s\n", req.CourseSummary)
	}
	if req.Details != "" {
		fmt.Fprintf(&sb, "Context: %s\n", req.Details)
	}
	if req.LearnerLevel != "" {
		fmt.Fprintf(&sb, "Learner level: %s\n", req.LearnerLevel)
	}
	if req.TargetDifficulty != "" {
		fmt.Fprintf(&sb, "Target difficulty: %s\n", req.TargetDifficulty)
	}
	sb.WriteString("\nWrite the full lesson as an ordered list of content blocks.")

	var out struct {
		Blocks             []types.LessonBlock `json:"blocks"`
		ReadingTimeMinutes int                 `json:"reading_time_minutes"`
	}
	var usage TokenUsage
	err := p.generateJSON(ctx,
		"You write clear, practical lessons as structured content blocks.",
		sb.String(), "lesson_content", schema, &out, &usage)
	if err != nil {
		return nil, err
	}
	return &LessonContentResult{Blocks: out.Blocks, ReadingTimeMinutes: out.ReadingTimeMinutes, Tokens: usage}, nil
}

func (p *openAIProvider) RecommendGoals(ctx context.Context, req PlanningRequest) ([]string, error) {
	schema := map[string]any{
		"type":                 "object",
		"properties":           map[string]any{"goals": stringArraySchema()},
		"required":             []string{"goals"},
		"additionalProperties": false,
	}
	var out struct {
		Goals []string `json:"goals"`
	}
	prompt := fmt.Sprintf("Topic: %s\nDetails: %s\n\nSuggest 3-5 concrete learning goals.", req.Topic, req.Details)
	if err := p.generateJSON(ctx, "You suggest concise, actionable learning goals.", prompt, "learning_goals", schema, &out, nil); err != nil {
		return nil, err
	}
	return out.Goals, nil
}

func (p *openAIProvider) AssessLearnerLevel(ctx context.Context, req LevelAssessmentRequest) (*LevelAssessment, error) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"level":       map[string]any{"type": "string", "enum": []string{"novice", "intermediate", "advanced"}},
			"explanation": stringSchema(),
		},
		"required":             []string{"level", "explanation"},
		"additionalProperties": false,
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Topic: %s\n", req.Topic)
	if req.Details != "" {
		fmt.Fprintf(&sb, "Details: %s\n", req.Details)
	}
	sb.WriteString("Prerequisites:\n")
	for _, pr := range req.Prerequisites {
		mark := "not met"
		if pr.Checked {
			mark = "met"
		}
		fmt.Fprintf(&sb, "- %s (%s)\n", pr.Text, mark)
	}
	sb.WriteString("\nGrade the learner's starting level for this topic and explain briefly.")

	var out LevelAssessment
	if err := p.generateJSON(ctx,
		"You assess a learner's starting level from which prerequisites they already meet.",
		sb.String(), "level_assessment", schema, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *openAIProvider) AnalyzePrerequisites(ctx context.Context, req PlanningRequest) ([]string, error) {
	schema := map[string]any{
		"type":                 "object",
		"properties":           map[string]any{"prerequisites": stringArraySchema()},
		"required":             []string{"prerequisites"},
		"additionalProperties": false,
	}
	var out struct {
		Prerequisites []string `json:"prerequisites"`
	}
	prompt := fmt.Sprintf("Topic: %s\nDetails: %s\n\nList the prerequisites a learner should have.", req.Topic, req.Details)
	if err := p.generateJSON(ctx, "You identify the prerequisites a course topic assumes.", prompt, "prerequisites", schema, &out, nil); err != nil {
		return nil, err
	}
	return out.Prerequisites, nil
}
