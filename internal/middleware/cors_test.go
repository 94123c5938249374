package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestOriginPolicy(t *testing.T) {
	p := newOriginPolicy([]string{"https://app.example.ng/", "https://*.staging.example.ng"})

	assert.True(t, p.allows("https://app.example.ng"))
	assert.True(t, p.allows("https://pr-12.staging.example.ng"))
	assert.False(t, p.allows("https://staging.example.ng"))
	assert.False(t, p.allows("http://pr-12.staging.example.ng"))
	assert.False(t, p.allows("https://evil.example.com"))

	assert.True(t, newOriginPolicy(nil).allows("https://anything.test"))
	assert.True(t, newOriginPolicy([]string{"*"}).allows("https://anything.test"))
}

func TestCORSPreflight(t *testing.T) {
	router := gin.New()
	router.Use(CORS([]string{"https://app.example.ng"}))
	router.POST("/api/reports", func(c *gin.Context) { t.Fatal("preflight must not reach the handler") })

	req := httptest.NewRequest(http.MethodOptions, "/api/reports", nil)
	req.Header.Set("Origin", "https://app.example.ng")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.ng", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "X-2FA-Token")
}

func TestCORSUnknownOrigin(t *testing.T) {
	router := gin.New()
	router.Use(CORS([]string{"https://app.example.ng"}))
	router.GET("/api/me", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}
