package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/courseforge-backend/internal/ai"
	"github.com/yungbote/courseforge-backend/internal/apierr"
	"github.com/yungbote/courseforge-backend/internal/logger"
	"github.com/yungbote/courseforge-backend/internal/services"
)

// AIHandler exposes the operations that call out to the AI provider. The
// planning calls are synchronous; lesson content generation is enqueued and
// answered with 202 before any generation happens.
type AIHandler struct {
	outlines services.OutlineService
	gen      services.ContentGenerationService
	log      *logger.Logger
}

func NewAIHandler(outlines services.OutlineService, gen services.ContentGenerationService, baseLog *logger.Logger) *AIHandler {
	return &AIHandler{outlines: outlines, gen: gen, log: baseLog.With("handler", "AIHandler")}
}

type generateOutlineRequest struct {
	BriefID uuid.UUID `json:"brief_id" binding:"required"`
}

func (h *AIHandler) GenerateOutline(c *gin.Context) {
	owner, err := callerID(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	var req generateOutlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.New(http.StatusBadRequest, apierr.CodeBadRequest, err))
		return
	}
	summary, err := h.outlines.GenerateOutline(c.Request.Context(), owner, req.BriefID)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

type planningRequest struct {
	Topic   string `json:"topic"`
	Details string `json:"details"`
}

func (h *AIHandler) RecommendGoals(c *gin.Context) {
	if _, err := callerID(c); err != nil {
		RespondError(c, err)
		return
	}
	var req planningRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.New(http.StatusBadRequest, apierr.CodeBadRequest, err))
		return
	}
	goals, err := h.outlines.RecommendGoals(c.Request.Context(), req.Topic, req.Details)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"goals": goals})
}

type analyzePrerequisitesRequest struct {
	BriefID *uuid.UUID `json:"brief_id"`
	Topic   string     `json:"topic"`
	Details string     `json:"details"`
}

// AnalyzePrerequisites works in two modes: with brief_id the suggestions are
// stored on the brief; with a bare topic the call is ad hoc.
func (h *AIHandler) AnalyzePrerequisites(c *gin.Context) {
	owner, err := callerID(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	var req analyzePrerequisitesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.New(http.StatusBadRequest, apierr.CodeBadRequest, err))
		return
	}
	var prereqs []string
	if req.BriefID != nil {
		prereqs, err = h.outlines.AnalyzePrerequisites(c.Request.Context(), owner, *req.BriefID)
	} else {
		prereqs, err = h.outlines.AnalyzePrerequisitesForTopic(c.Request.Context(), req.Topic, req.Details)
	}
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"prerequisites": prereqs})
}

type assessLevelRequest struct {
	Topic         string                 `json:"topic" binding:"required"`
	Details       string                 `json:"details"`
	Prerequisites []ai.PrerequisiteCheck `json:"prerequisites" binding:"required"`
}

func (h *AIHandler) AssessLearnerLevel(c *gin.Context) {
	if _, err := callerID(c); err != nil {
		RespondError(c, err)
		return
	}
	var req assessLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.Validation(err))
		return
	}
	assessment, err := h.outlines.AssessLearnerLevel(c.Request.Context(), req.Topic, req.Details, req.Prerequisites)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, assessment)
}

type generateLessonContentRequest struct {
	CourseID uuid.UUID `json:"course_id" binding:"required"`
}

func (h *AIHandler) GenerateLessonContent(c *gin.Context) {
	owner, err := callerID(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	var req generateLessonContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.Validation(err))
		return
	}
	run, err := h.gen.Start(c.Request.Context(), owner, req.CourseID)
	if err != nil {
		RespondError(c, err)
		return
	}
	h.log.Info("Lesson content generation accepted", "course_id", req.CourseID, "run_id", run.ID)
	c.JSON(http.StatusAccepted, gin.H{"ok": true, "run_id": run.ID})
}
