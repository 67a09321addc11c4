package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/customeros/mailbridge/internal/utils"
)

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/v1/ping", handlers...)
	return r
}

func TestAPIKeyMiddleware(t *testing.T) {
	r := newRouter(APIKeyMiddleware(APIKeyConfig{HeaderName: APIKeyHeader, ValidAPIKey: "secret"}), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		key    string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "guess", http.StatusUnauthorized},
		{"valid", "secret", http.StatusNoContent},
		{"valid with whitespace", " secret ", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/ping", nil)
			if tt.key != "" {
				req.Header.Set(APIKeyHeader, tt.key)
			}
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestCustomContextMiddleware(t *testing.T) {
	// Arrange
	var appSource, requestId string
	r := newRouter(CustomContextMiddleware("mailbridge-api"), func(c *gin.Context) {
		appSource = utils.GetAppSourceFromContext(c.Request.Context())
		requestId = utils.GetRequestIdFromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	// Act
	generated := httptest.NewRecorder()
	r.ServeHTTP(generated, httptest.NewRequest(http.MethodGet, "/v1/ping", nil))
	generatedId := requestId

	supplied := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/ping", nil)
	req.Header.Set(RequestIdHeader, "req_fromcaller")
	r.ServeHTTP(supplied, req)

	// Assert
	assert.Equal(t, "mailbridge-api", appSource)
	assert.True(t, strings.HasPrefix(generatedId, "req_"))
	assert.Equal(t, generatedId, generated.Header().Get(RequestIdHeader))
	assert.Equal(t, "req_fromcaller", requestId)
	assert.Equal(t, "req_fromcaller", supplied.Header().Get(RequestIdHeader))
}
