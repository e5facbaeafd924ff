package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prohmpiriya/event-booking/internal/di"
	"github.com/prohmpiriya/event-booking/internal/handler"
	"github.com/prohmpiriya/event-booking/pkg/config"
	"github.com/prohmpiriya/event-booking/pkg/logger"
	"github.com/prohmpiriya/event-booking/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "router-test-secret"

func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		App: config.AppConfig{Debug: true},
		JWT: config.JWTConfig{Secret: testSecret, Issuer: "event-booking"},
	}
	// Services are nil: these tests only reach middleware and health
	container := &di.Container{
		HealthHandler:  handler.NewHealthHandler(nil, nil),
		AuthHandler:    handler.NewAuthHandler(nil),
		EventHandler:   handler.NewEventHandler(nil),
		BookingHandler: handler.NewBookingHandler(nil),
	}
	return newRouter(cfg, container, logger.NewNop())
}

func token(t *testing.T, role string) string {
	t.Helper()
	claims := middleware.TokenClaims{
		UserID: "11111111-1111-1111-1111-111111111111",
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "event-booking",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func TestRouter_Health(t *testing.T) {
	r := testRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRouter_RequiresToken(t *testing.T) {
	r := testRouter()

	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/v1/events"},
		{http.MethodGet, "/api/v1/events/top"},
		{http.MethodGet, "/api/v1/events/e1"},
		{http.MethodGet, "/api/v1/bookings"},
		{http.MethodPost, "/api/v1/bookings"},
		{http.MethodPut, "/api/v1/bookings/b1"},
		{http.MethodDelete, "/api/v1/bookings/b1"},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(rt.method, rt.path, strings.NewReader("{}")))
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRouter_EventWritesAdminOnly(t *testing.T) {
	r := testRouter()
	userToken := token(t, middleware.RoleUser)

	routes := []struct{ method, path string }{
		{http.MethodPost, "/api/v1/events"},
		{http.MethodPut, "/api/v1/events/e1"},
		{http.MethodDelete, "/api/v1/events/e1"},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			req := httptest.NewRequest(rt.method, rt.path, strings.NewReader("{}"))
			req.Header.Set("Authorization", "Bearer "+userToken)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusForbidden, w.Code)
		})
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	r := testRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/payments", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
