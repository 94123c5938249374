package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/apperr"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/config"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/identity"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/models"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/ratelimit"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/service"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/service/servicetest"
)

const jwtSecret = "middleware-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func token(t *testing.T, subject string, expires time.Time) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, identity.ProviderClaims{
		Email: subject + "@example.ng",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}).SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return signed
}

type gateFixture struct {
	gate   *service.AccessGate
	events *servicetest.Events
	log    *service.SecurityLogService
}

func newGate(profiles ...models.Profile) gateFixture {
	events := servicetest.NewEvents()
	store := servicetest.NewProfiles(profiles...)
	securityLog := service.NewSecurityLogService(events, store, nil, nil, config.SecurityConfig{}, zerolog.Nop())
	twoFactor := service.NewTwoFactorService(servicetest.NewTwoFactor(), config.TwoFactorConfig{Issuer: "Test"}, zerolog.Nop())
	gate := service.NewAccessGate(identity.NewJWTVerifier(jwtSecret), store, twoFactor, securityLog, zerolog.Nop())
	return gateFixture{gate: gate, events: events, log: securityLog}
}

func jsonBody(s string) io.Reader {
	return strings.NewReader(s)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestAuthenticateStoresIdentity(t *testing.T) {
	f := newGate(models.Profile{ID: "seller-1", Role: models.RoleSeller})
	router := gin.New()
	router.GET("/me", Authenticate(f.gate, NewResponder(zerolog.Nop(), "test")), func(c *gin.Context) {
		ident, ok := CurrentIdentity(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"id": ident.ID, "role": ident.Role})
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, "seller-1", time.Now().Add(time.Hour)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "seller", decode(t, rec)["role"])
	assert.Len(t, f.events.OfType(models.EventLoginSuccess), 1)
}

func TestAuthenticateRejectsMissingToken(t *testing.T) {
	f := newGate()
	router := gin.New()
	router.GET("/me", Authenticate(f.gate, NewResponder(zerolog.Nop(), "test")), func(c *gin.Context) {
		t.Fatal("handler must not run")
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthenticated", decode(t, rec)["error"])
	assert.Empty(t, f.events.All())
}

func TestAuthenticateExpiredTokenIsAttributed(t *testing.T) {
	f := newGate()
	router := gin.New()
	router.GET("/me", Authenticate(f.gate, NewResponder(zerolog.Nop(), "test")))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, "buyer-9", time.Now().Add(-time.Hour)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	failed := f.events.OfType(models.EventLoginFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, "buyer-9", *failed[0].UserID)
}

func TestRequireRolesDeniesAndRecords(t *testing.T) {
	f := newGate(models.Profile{ID: "buyer-1", Role: models.RoleBuyer})
	respond := NewResponder(zerolog.Nop(), "test")
	router := gin.New()
	router.GET("/admin/stats",
		Authenticate(f.gate, respond),
		RequireRoles(f.gate, respond, models.RoleAdmin),
		func(c *gin.Context) { t.Fatal("handler must not run") },
	)

	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, "buyer-1", time.Now().Add(time.Hour)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", decode(t, rec)["error"])
	denied := f.events.OfType(models.EventUnauthorizedAccess)
	require.Len(t, denied, 1)
	assert.Equal(t, "/admin/stats", denied[0].Details["path"])
	assert.Len(t, f.events.OfType(models.EventSuspiciousActivity), 1)
}

func TestRequireRolesWithoutIdentity(t *testing.T) {
	f := newGate()
	respond := NewResponder(zerolog.Nop(), "test")
	router := gin.New()
	router.GET("/x", RequireRoles(f.gate, respond, models.RoleAdmin))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestResponderShapes(t *testing.T) {
	cases := []struct {
		name       string
		env        string
		err        error
		status     int
		code       string
		message    string
		fields     bool
		requires2F bool
	}{
		{
			name:   "validation carries fields",
			err:    apperr.Validation("Invalid verification decision", map[string]string{"review_notes": "too short"}),
			status: http.StatusBadRequest, code: "validation_error", message: "Invalid verification decision", fields: true,
		},
		{
			name:   "step up required is flagged",
			err:    apperr.New(apperr.KindStepUpRequired, "2fa_required", "Two-factor authentication required"),
			status: http.StatusUnauthorized, code: "2fa_required", message: "Two-factor authentication required", requires2F: true,
		},
		{
			name:   "conflict",
			err:    apperr.Conflict("already_decided", "Verification has already been verified"),
			status: http.StatusConflict, code: "already_decided", message: "Verification has already been verified",
		},
		{
			name: "transient is sanitized in production", env: "production",
			err:    apperr.Transient("Identity provider unavailable", errors.New("dial tcp 10.0.0.7:443: i/o timeout")),
			status: http.StatusInternalServerError, code: "service_unavailable",
			message: "An internal error occurred. Please try again later.",
		},
		{
			name: "unclassified error", env: "production",
			err:    errors.New("pq: relation missing"),
			status: http.StatusInternalServerError, code: "internal_error",
			message: "An internal error occurred. Please try again later.",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			respond := NewResponder(zerolog.Nop(), tc.env)
			router := gin.New()
			router.GET("/", func(c *gin.Context) { respond.Error(c, tc.err) })

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tc.status, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, tc.code, body["error"])
			assert.Equal(t, tc.message, body["message"])
			_, hasFields := body["fields"]
			assert.Equal(t, tc.fields, hasFields)
			_, flagged := body["requires2FA"]
			assert.Equal(t, tc.requires2F, flagged)
		})
	}
}

func TestBindErrorUsesJSONNames(t *testing.T) {
	UseJSONFieldNames()

	type body struct {
		VerificationID string `json:"verification_id" binding:"required,uuid"`
	}
	router := gin.New()
	respond := NewResponder(zerolog.Nop(), "test")
	router.POST("/", func(c *gin.Context) {
		var b body
		if err := c.ShouldBindJSON(&b); err != nil {
			respond.Error(c, BindError(err))
			return
		}
		c.Status(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", jsonBody(`{"verification_id":"V1"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := decode(t, rec)["fields"].(map[string]any)
	assert.Equal(t, "must be a valid id", fields["verification_id"])
}

type eventLog struct {
	mu     sync.Mutex
	events []service.EventInput
}

func (l *eventLog) Record(ctx context.Context, in service.EventInput) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, in)
}

func TestRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter := ratelimit.New(client, 2, time.Minute, "test:")
	events := &eventLog{}
	router := gin.New()
	router.POST("/auth/login-failed", RateLimit(limiter, ByIP("login"), events, zerolog.Nop()), func(c *gin.Context) {
		c.Status(http.StatusAccepted)
	})

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/auth/login-failed", nil)
		req.RemoteAddr = "196.46.20.10:5555"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusAccepted, send().Code)
	assert.Equal(t, http.StatusAccepted, send().Code)

	rec := send()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.Len(t, events.events, 1)
	assert.Equal(t, models.EventRateLimitExceeded, events.events[0].Type)
	assert.Equal(t, "196.46.20.10", events.events[0].Origin.IPAddress)
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	return false, 0, errors.New("redis: connection refused")
}

func TestRateLimitFailsOpen(t *testing.T) {
	router := gin.New()
	router.GET("/", RateLimit(brokenLimiter{}, ByIP("x"), &eventLog{}, zerolog.Nop()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestIDReplacesGarbage(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "<script>")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.NotEqual(t, "<script>", rec.Header().Get(requestIDHeader))
	assert.Len(t, rec.Header().Get(requestIDHeader), 36)
}

func TestRecoveryReturnsInternalError(t *testing.T) {
	router := gin.New()
	router.Use(RequestID(), Recovery(zerolog.Nop()))
	router.GET("/boom", func(c *gin.Context) { panic("nil map write") })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_error", decode(t, rec)["error"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}
