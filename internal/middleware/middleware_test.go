package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

type stubValidator struct {
	claims *models.OfficerClaims
}

func (s stubValidator) ValidateToken(token string) (*models.OfficerClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return s.claims, nil
}

func newTestRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/", handlers...)
	return r
}

func serve(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestJWTAndLevelGuard(t *testing.T) {
	v := stubValidator{claims: &models.OfficerClaims{OfficerID: "off-1", Level: models.LevelMandal}}

	r := newTestRouter(JWT(v))
	assert.Equal(t, http.StatusUnauthorized, serve(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Token good").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Bearer bad").Code)
	assert.Equal(t, http.StatusNoContent, serve(r, "bearer good").Code)

	guarded := newTestRouter(JWT(v), RequireLevels(models.LevelHOD))
	assert.Equal(t, http.StatusForbidden, serve(guarded, "Bearer good").Code)

	open := newTestRouter(JWT(v), RequireLevels(models.LevelMandal, models.LevelHOD))
	assert.Equal(t, http.StatusNoContent, serve(open, "Bearer good").Code)
}

func TestRateLimiterWindow(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }
	r := newTestRouter(rl.Middleware())

	first := serve(r, "")
	assert.Equal(t, http.StatusNoContent, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, http.StatusNoContent, serve(r, "").Code)

	blocked := serve(r, "")
	require.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.Equal(t, "61", blocked.Header().Get("Retry-After"))
	assert.Contains(t, blocked.Body.String(), "RATE_LIMITED")

	now = now.Add(time.Minute)
	assert.Equal(t, http.StatusNoContent, serve(r, "").Code)
}

type observed struct {
	path   string
	status int
}

type recordingObserver struct{ calls []observed }

func (r *recordingObserver) ObserveHTTPRequest(_, path string, status int, _ time.Duration) {
	r.calls = append(r.calls, observed{path: path, status: status})
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)
	obs := &recordingObserver{}
	r := gin.New()
	r.Use(Metrics(obs))
	r.GET("/track/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/track/GRV-ABC-1234", "/nowhere"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	require.Len(t, obs.calls, 2)
	assert.Equal(t, observed{path: "/track/:id", status: http.StatusOK}, obs.calls[0])
	assert.Equal(t, observed{path: "unmatched", status: http.StatusNotFound}, obs.calls[1])
}
