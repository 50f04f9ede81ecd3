package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/courseforge-backend/internal/apierr"
	"github.com/yungbote/courseforge-backend/internal/handlers"
	"github.com/yungbote/courseforge-backend/internal/logger"
	"github.com/yungbote/courseforge-backend/internal/requestdata"
)

// Auth validates the bearer token and stashes the caller identity in the
// request context. Missing or invalid tokens get 401; a valid token with no
// subject gets 403.
func Auth(secret []byte, log *logger.Logger) gin.HandlerFunc {
	authLog := log.With("middleware", "Auth")
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			handlers.RespondError(c, apierr.New(http.StatusUnauthorized, apierr.CodeAuthRequired,
				fmt.Errorf("missing bearer token")))
			c.Abort()
			return
		}
		tokenString := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			authLog.Debug("Token rejected", "error", err)
			handlers.RespondError(c, apierr.New(http.StatusUnauthorized, apierr.CodeAuthRequired,
				fmt.Errorf("invalid token")))
			c.Abort()
			return
		}

		subject, err := token.Claims.GetSubject()
		if err != nil || subject == "" {
			handlers.RespondError(c, apierr.New(http.StatusForbidden, apierr.CodeAuthRequired,
				fmt.Errorf("token has no subject")))
			c.Abort()
			return
		}

		ctx := requestdata.WithRequestData(c.Request.Context(), &requestdata.RequestData{
			TokenString: tokenString,
			UserID:      subject,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
