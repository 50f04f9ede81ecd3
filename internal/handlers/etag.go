package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/courseforge-backend/internal/apierr"
)

// Entity tokens are weak ETags. Briefs use their integer version; courses
// and lessons use updated_at in epoch milliseconds.

func BriefETag(version int) string {
	return fmt.Sprintf(`W/"%d"`, version)
}

func TimeETag(t time.Time) string {
	return fmt.Sprintf(`W/"%d"`, t.UnixMilli())
}

// parseIfMatch extracts the numeric token from an If-Match header value.
// Accepts W/"123", "123", or a bare 123.
func parseIfMatch(raw string) (int64, error) {
	v := strings.TrimSpace(raw)
	v = strings.TrimPrefix(v, "W/")
	v = strings.Trim(v, `"`)
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed If-Match value %q", raw)
	}
	return n, nil
}

// RequireIfMatch reads the If-Match header for a conditional write: absent
// yields 428, malformed yields 400.
func RequireIfMatch(c *gin.Context) (int64, error) {
	raw := c.GetHeader("If-Match")
	if raw == "" {
		return 0, apierr.New(http.StatusPreconditionRequired, apierr.CodePreconditionRequired,
			fmt.Errorf("If-Match header is required for this operation"))
	}
	n, err := parseIfMatch(raw)
	if err != nil {
		return 0, apierr.New(http.StatusBadRequest, apierr.CodeBadRequest, err)
	}
	return n, nil
}
