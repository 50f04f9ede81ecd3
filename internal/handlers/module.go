package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/courseforge-backend/internal/apierr"
	"github.com/yungbote/courseforge-backend/internal/logger"
	"github.com/yungbote/courseforge-backend/internal/services"
)

type ModuleHandler struct {
	svc     services.ModuleService
	lessons services.LessonService
	log     *logger.Logger
}

func NewModuleHandler(svc services.ModuleService, lessons services.LessonService, baseLog *logger.Logger) *ModuleHandler {
	return &ModuleHandler{svc: svc, lessons: lessons, log: baseLog.With("handler", "ModuleHandler")}
}

type createModuleRequest struct {
	CourseID uuid.UUID `json:"course_id" binding:"required"`
	Title    string    `json:"title"`
	Summary  string    `json:"summary"`
}

func (h *ModuleHandler) Create(c *gin.Context) {
	owner, err := callerID(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	var req createModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.New(http.StatusBadRequest, apierr.CodeBadRequest, err))
		return
	}
	module, err := h.svc.Create(c.Request.Context(), owner, req.CourseID, services.CreateModuleInput{
		Title:   req.Title,
		Summary: req.Summary,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, module)
}

func (h *ModuleHandler) Get(c *gin.Context) {
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
	module, err := h.svc.Get(c.Request.Context(), owner, id)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, module)
}

func (h *ModuleHandler) ListLessons(c *gin.Context) {
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
	lessons, err := h.lessons.ListForModule(c.Request.Context(), owner, id)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lessons": lessons})
}
