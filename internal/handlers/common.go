package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/courseforge-backend/internal/apierr"
	"github.com/yungbote/courseforge-backend/internal/requestdata"
)

func callerID(c *gin.Context) (string, error) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == "" {
		return "", apierr.New(http.StatusForbidden, apierr.CodeAuthRequired, fmt.Errorf("no caller identity"))
	}
	return rd.UserID, nil
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apierr.New(http.StatusBadRequest, apierr.CodeBadRequest,
			fmt.Errorf("invalid %s: %w", name, err))
	}
	return id, nil
}
