package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/courseforge-backend/internal/apierr"
	"github.com/yungbote/courseforge-backend/internal/logger"
	"github.com/yungbote/courseforge-backend/internal/services"
)

type LessonHandler struct {
	svc services.LessonService
	log *logger.Logger
}

func NewLessonHandler(svc services.LessonService, baseLog *logger.Logger) *LessonHandler {
	return &LessonHandler{svc: svc, log: baseLog.With("handler", "LessonHandler")}
}

type createLessonRequest struct {
	ModuleID uuid.UUID `json:"module_id" binding:"required"`
	Title    string    `json:"title"`
}

func (h *LessonHandler) Create(c *gin.Context) {
	owner, err := callerID(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	var req createLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.New(http.StatusBadRequest, apierr.CodeBadRequest, err))
		return
	}
	lesson, err := h.svc.Create(c.Request.Context(), owner, req.ModuleID, services.CreateLessonInput{Title: req.Title})
	if err != nil {
		RespondError(c, err)
		return
	}
	c.Header("ETag", TimeETag(lesson.UpdatedAt))
	c.JSON(http.StatusCreated, lesson)
}

func (h *LessonHandler) Get(c *gin.Context) {
	owner, err := callerID(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		RespondError(c, err)
		return
	}
	lesson, err := h.svc.Get(c.Request.Context(), owner, id)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.Header("ETag", TimeETag(lesson.UpdatedAt))
	c.JSON(http.StatusOK, lesson)
}

func (h *LessonHandler) Patch(c *gin.Context) {
	owner, err := callerID(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		RespondError(c, err)
		return
	}
	expected, err := RequireIfMatch(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	var input services.UpdateLessonInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, apierr.New(http.StatusBadRequest, apierr.CodeBadRequest, err))
		return
	}
	lesson, err := h.svc.Patch(c.Request.Context(), owner, id, expected, input)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.Header("ETag", TimeETag(lesson.UpdatedAt))
	c.JSON(http.StatusOK, lesson)
}
