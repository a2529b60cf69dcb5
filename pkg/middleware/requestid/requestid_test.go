package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveWithID(header string) (*httptest.ResponseRecorder, string) {
	gin.SetMode(gin.TestMode)
	var seen string
	r := gin.New()
	r.Use(Middleware())
	r.GET("/ping", func(c *gin.Context) {
		seen = Value(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
	if header != "" {
		req.Header.Set("X-Request-ID", header)
	}
	r.ServeHTTP(w, req)
	return w, seen
}

func TestRequestIDKeepsWellFormedHeader(t *testing.T) {
	w, seen := serveWithID("planner-ui.42_a")

	assert.Equal(t, "planner-ui.42_a", seen)
	assert.Equal(t, "planner-ui.42_a", w.Header().Get("X-Request-ID"))
}

func TestRequestIDReplacesMissingOrUnsafeHeader(t *testing.T) {
	for _, header := range []string{"", "id with spaces", "x\tinjected", strings.Repeat("a", 65)} {
		w, seen := serveWithID(header)
		_, err := uuid.Parse(seen)
		require.NoError(t, err, "header %q", header)
		assert.Equal(t, seen, w.Header().Get("X-Request-ID"))
	}
}
