package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/courseforge-backend/internal/apierr"
	"github.com/yungbote/courseforge-backend/internal/logger"
	"github.com/yungbote/courseforge-backend/internal/services"
)

type CourseHandler struct {
	svc     services.CourseService
	modules services.ModuleService
	log     *logger.Logger
}

func NewCourseHandler(svc services.CourseService, modules services.ModuleService, baseLog *logger.Logger) *CourseHandler {
	return &CourseHandler{
		svc:     svc,
		modules: modules,
		log:     baseLog.With("handler", "CourseHandler"),
	}
}

func (h *CourseHandler) List(c *gin.Context) {
	owner, err := callerID(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	courses, err := h.svc.List(c.Request.Context(), owner, 0)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"courses": courses})
}

func (h *CourseHandler) Get(c *gin.Context) {
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
	course, err := h.svc.Get(c.Request.Context(), owner, id)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.Header("ETag", TimeETag(course.UpdatedAt))
	c.JSON(http.StatusOK, course)
}

func (h *CourseHandler) Patch(c *gin.Context) {
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
	var input services.UpdateCourseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, apierr.New(http.StatusBadRequest, apierr.CodeBadRequest, err))
		return
	}
	course, err := h.svc.Patch(c.Request.Context(), owner, id, expected, input)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.Header("ETag", TimeETag(course.UpdatedAt))
	c.JSON(http.StatusOK, course)
}

func (h *CourseHandler) ListModules(c *gin.Context) {
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
	modules, err := h.modules.ListForCourse(c.Request.Context(), owner, id)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"modules": modules})
}

func (h *CourseHandler) GenerationStatus(c *gin.Context) {
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
	report, err := h.svc.GenerationStatus(c.Request.Context(), owner, id)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
