package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/courseforge-backend/internal/apierr"
	"github.com/yungbote/courseforge-backend/internal/logger"
	"github.com/yungbote/courseforge-backend/internal/services"
)

type BriefHandler struct {
	svc    services.BriefService
	commit services.CommitService
	log    *logger.Logger
}

func NewBriefHandler(svc services.BriefService, commit services.CommitService, baseLog *logger.Logger) *BriefHandler {
	return &BriefHandler{svc: svc, commit: commit, log: baseLog.With("handler", "BriefHandler")}
}

func (h *BriefHandler) Create(c *gin.Context) {
	owner, err := callerID(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	var input services.CreateBriefInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, apierr.New(http.StatusBadRequest, apierr.CodeBadRequest, err))
		return
	}
	brief, err := h.svc.Create(c.Request.Context(), owner, input)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.Header("ETag", BriefETag(brief.Version))
	c.JSON(http.StatusCreated, brief)
}

func (h *BriefHandler) List(c *gin.Context) {
	owner, err := callerID(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	briefs, err := h.svc.List(c.Request.Context(), owner, 0)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"briefs": briefs})
}

func (h *BriefHandler) Get(c *gin.Context) {
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
	brief, err := h.svc.Get(c.Request.Context(), owner, id)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.Header("ETag", BriefETag(brief.Version))
	c.JSON(http.StatusOK, brief)
}

func (h *BriefHandler) Patch(c *gin.Context) {
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
	var input services.UpdateBriefInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, apierr.New(http.StatusBadRequest, apierr.CodeBadRequest, err))
		return
	}
	brief, err := h.svc.Patch(c.Request.Context(), owner, id, int(expected), input)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.Header("ETag", BriefETag(brief.Version))
	c.JSON(http.StatusOK, brief)
}

func (h *BriefHandler) Abandon(c *gin.Context) {
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
	brief, err := h.svc.Abandon(c.Request.Context(), owner, id)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.Header("ETag", BriefETag(brief.Version))
	c.JSON(http.StatusOK, brief)
}

func (h *BriefHandler) Commit(c *gin.Context) {
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
	result, err := h.commit.Commit(c.Request.Context(), owner, id)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *BriefHandler) ListEvents(c *gin.Context) {
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
	events, err := h.svc.ListEvents(c.Request.Context(), owner, id)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

type appendEventRequest struct {
	Actor   string          `json:"actor"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (h *BriefHandler) AppendEvent(c *gin.Context) {
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
	var req appendEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.New(http.StatusBadRequest, apierr.CodeBadRequest, err))
		return
	}
	if req.Actor == "" || req.Type == "" {
		RespondError(c, apierr.New(http.StatusBadRequest, apierr.CodeBadRequest,
			fmt.Errorf("actor and type are required")))
		return
	}
	event, err := h.svc.AppendEvent(c.Request.Context(), owner, id, req.Actor, req.Type, req.Payload)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, event)
}
