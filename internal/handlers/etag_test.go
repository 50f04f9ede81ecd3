package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/courseforge-backend/internal/apierr"
)

func newTestContext(headers map[string]string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest(http.MethodPatch, "/", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	c.Request = req
	return c
}

func TestBriefETagFormat(t *testing.T) {
	if got := BriefETag(7); got != `W/"7"` {
		t.Errorf("BriefETag(7) = %q", got)
	}
}

func TestTimeETagFormat(t *testing.T) {
	ts := time.UnixMilli(1724800000123)
	if got := TimeETag(ts); got != `W/"1724800000123"` {
		t.Errorf("TimeETag = %q", got)
	}
}

func TestRequireIfMatchParsesVariants(t *testing.T) {
	cases := map[string]int64{
		`W/"3"`:          3,
		`"3"`:            3,
		`3`:              3,
		` W/"42" `:       42,
		`W/"1724800000"`: 1724800000,
	}
	for header, want := range cases {
		c := newTestContext(map[string]string{"If-Match": header})
		got, err := RequireIfMatch(c)
		if err != nil {
			t.Errorf("If-Match %q: unexpected error %v", header, err)
			continue
		}
		if got != want {
			t.Errorf("If-Match %q: got %d, want %d", header, got, want)
		}
	}
}

func TestRequireIfMatchAbsentIs428(t *testing.T) {
	c := newTestContext(nil)
	_, err := RequireIfMatch(c)
	ae := apierr.As(err)
	if ae.Status != http.StatusPreconditionRequired {
		t.Errorf("status = %d, want 428", ae.Status)
	}
	if ae.Code != apierr.CodePreconditionRequired {
		t.Errorf("code = %q", ae.Code)
	}
}

func TestRequireIfMatchMalformedIs400(t *testing.T) {
	for _, header := range []string{`W/"abc"`, `*`, `W/""`} {
		c := newTestContext(map[string]string{"If-Match": header})
		_, err := RequireIfMatch(c)
		ae := apierr.As(err)
		if ae.Status != http.StatusBadRequest {
			t.Errorf("If-Match %q: status = %d, want 400", header, ae.Status)
		}
	}
}
