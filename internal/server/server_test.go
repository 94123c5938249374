package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/config"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/handlers"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/metrics"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/models"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/service"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/service/servicetest"
)

func newTestServer(t *testing.T) *HTTPServer {
	t.Helper()
	srv, _ := newSecurityServer(t, nil)
	return srv
}

// newSecurityServer wires the failed-login endpoint over an in-memory event
// store so tests can see which address the events were recorded against.
func newSecurityServer(t *testing.T, trustedProxies []string) (*HTTPServer, *servicetest.Events) {
	t.Helper()
	cfg := &config.AppConfig{
		Environment:      "test",
		HTTP:             config.HTTPConfig{Host: "127.0.0.1", Port: 0, TrustedProxies: trustedProxies},
		AllowCORSOrigins: []string{"https://app.example.ng"},
	}
	registry := prometheus.NewRegistry()
	events := servicetest.NewEvents()
	securityLog := service.NewSecurityLogService(events, servicetest.NewProfiles(), nil, nil, config.SecurityConfig{}, zerolog.Nop())
	t.Cleanup(securityLog.Drain)

	handlerSet := handlers.NewHandlerSet(handlers.Deps{
		Log:         zerolog.Nop(),
		Environment: "test",
		SecurityLog: securityLog,
	})
	srv, err := NewHTTPServer(cfg, zerolog.Nop(), metrics.New(registry), registry, handlerSet)
	require.NoError(t, err)
	return srv, events
}

func reportFailedLogin(srv *HTTPServer, remoteAddr, forwardedFor string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login-failed", nil)
	req.RemoteAddr = remoteAddr
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthAndRequestID(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestMetricsEndpointCountsRequests(t *testing.T) {
	srv := newTestServer(t)

	srv.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/healthz", nil))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `path="/api/healthz"`)
}

func TestUnknownRouteIs404(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestForwardedForIgnoredFromUntrustedPeer(t *testing.T) {
	srv, events := newSecurityServer(t, nil)

	for i := 0; i < 6; i++ {
		rec := reportFailedLogin(srv, "203.0.113.9:4321", fmt.Sprintf("10.0.0.%d", i))
		require.Equal(t, http.StatusAccepted, rec.Code)
	}

	failed := events.OfType(models.EventLoginFailed)
	require.Len(t, failed, 6)
	for _, e := range failed {
		require.NotNil(t, e.IPAddress)
		assert.Equal(t, "203.0.113.9", *e.IPAddress)
	}

	suspicious := events.OfType(models.EventSuspiciousActivity)
	require.NotEmpty(t, suspicious)
	assert.Equal(t, "203.0.113.9", *suspicious[0].IPAddress)
	assert.Equal(t, service.PatternMultipleFailedLogins, suspicious[0].Details["pattern"])
}

func TestForwardedForHonoredFromTrustedProxy(t *testing.T) {
	srv, events := newSecurityServer(t, []string{"192.0.2.0/24"})

	rec := reportFailedLogin(srv, "192.0.2.10:443", "198.51.100.7")
	require.Equal(t, http.StatusAccepted, rec.Code)

	failed := events.OfType(models.EventLoginFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, "198.51.100.7", *failed[0].IPAddress)
}

func TestInvalidTrustedProxyRejected(t *testing.T) {
	cfg := &config.AppConfig{
		Environment: "test",
		HTTP:        config.HTTPConfig{TrustedProxies: []string{"not-an-address"}},
	}
	registry := prometheus.NewRegistry()
	handlerSet := handlers.NewHandlerSet(handlers.Deps{Log: zerolog.Nop(), Environment: "test"})

	_, err := NewHTTPServer(cfg, zerolog.Nop(), metrics.New(registry), registry, handlerSet)
	assert.Error(t, err)
}
