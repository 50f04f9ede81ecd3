package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/courseforge-backend/internal/apierr"
)

type errorBody struct {
	Message string                 `json:"message"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// RespondError writes the standard error envelope for any error, mapping
// unknown errors to a 500.
func RespondError(c *gin.Context, err error) {
	ae := apierr.As(err)
	c.JSON(ae.Status, errorEnvelope{Error: errorBody{
		Message: ae.Error(),
		Code:    ae.Code,
		Details: ae.Details,
	}})
}
