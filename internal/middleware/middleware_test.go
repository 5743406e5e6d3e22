package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/care-portal/internal/model"
	"github.com/jwalitptl/care-portal/internal/service/guard"
	"github.com/jwalitptl/care-portal/pkg/errors"
	"github.com/jwalitptl/care-portal/pkg/httputil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeEvaluator struct {
	decision guard.Decision
	clientID string
	path     string
}

func (f *fakeEvaluator) Evaluate(_ context.Context, clientID, path string) guard.Decision {
	f.clientID = clientID
	f.path = path
	d := f.decision
	d.Path = path
	return d
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestRouteGuard(t *testing.T) {
	tests := []struct {
		name     string
		decision guard.Decision
		accept   string
		status   int
		location string
	}{
		{
			name:     "render passes through",
			decision: guard.Decision{Kind: guard.KindRender, State: guard.StateAuthenticatedWithSubscription},
			status:   http.StatusOK,
		},
		{
			name:     "browser redirected to login with origin",
			decision: guard.Decision{Kind: guard.KindRedirectLogin, From: "/SecureNeat/dashboard"},
			accept:   "text/html,application/xhtml+xml",
			status:   http.StatusFound,
			location: "/login?from=%2FSecureNeat%2Fdashboard",
		},
		{
			name:     "api client gets 401",
			decision: guard.Decision{Kind: guard.KindRedirectLogin, From: "/SecureNeat/dashboard"},
			accept:   "application/json",
			status:   http.StatusUnauthorized,
		},
		{
			name:     "subscription required is 402",
			decision: guard.Decision{Kind: guard.KindSubscriptionRequired, Reason: guard.ReasonPlanRequired},
			status:   http.StatusPaymentRequired,
		},
		{
			name:     "loading is 503",
			decision: guard.Decision{Kind: guard.KindLoading},
			status:   http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := &fakeEvaluator{decision: tt.decision}
			r := gin.New()
			r.Use(func(c *gin.Context) { c.Set(ContextClientID, "client-1"); c.Next() })
			r.GET("/api/views/*path", RouteGuard(ev, ParamPath("path")), func(c *gin.Context) {
				d, ok := Decision(c)
				require.True(t, ok)
				c.JSON(http.StatusOK, d)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/views/SecureNeat/dashboard", nil)
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "client-1", ev.clientID)
			assert.Equal(t, "/SecureNeat/dashboard", ev.path)
			if tt.location != "" {
				assert.Equal(t, tt.location, w.Header().Get("Location"))
			}
		})
	}
}

func TestRouteGuard_DeniedBodyCarriesDecision(t *testing.T) {
	ev := &fakeEvaluator{decision: guard.Decision{Kind: guard.KindSubscriptionRequired, Reason: guard.ReasonCapabilityRequired}}
	r := gin.New()
	r.GET("/api/usage/counters", RouteGuard(ev, StaticPath("/usage")), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/usage/counters", nil))

	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	details, ok := resp.Error.Details.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, guard.ReasonCapabilityRequired, details["reason"])
	assert.Equal(t, "/usage", details["path"])
}

func TestLoginLocation(t *testing.T) {
	assert.Equal(t, "/login", LoginLocation(""))
	assert.Equal(t, "/login?from=%2Fadmin%3Ftab%3D1", LoginLocation("/admin?tab=1"))
}

func TestClientSession_StableAcrossRequests(t *testing.T) {
	r := gin.New()
	r.Use(ClientSession(SessionConfig{CookieName: "portal_session", Secret: "0123456789abcdef0123456789abcdef", MaxAge: 3600})...)
	r.GET("/id", func(c *gin.Context) { c.String(http.StatusOK, ClientID(c)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/id", nil))
	first := w.Body.String()
	require.NotEmpty(t, first)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/id", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, first, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/id", nil))
	assert.NotEqual(t, first, w.Body.String())
}

func TestValidation_RoleTag(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(), Validation(DefaultValidationConfig()))
	r.POST("/register", func(c *gin.Context) {
		var req model.RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(errors.BadRequest("invalid request body", err))
			return
		}
		c.Status(http.StatusCreated)
	})

	body := `{"email":"a@b.co","username":"a","password":"longenough","first_name":"A","last_name":"B","role":"wizard"}`
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "validation failed", resp.Error.Message)
	fields, ok := resp.Error.Details.([]interface{})
	require.True(t, ok)
	require.Len(t, fields, 1)
	assert.Equal(t, "role", fields[0].(map[string]interface{})["field"])

	body = strings.Replace(body, "wizard", "doctor", 1)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(body)))
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestErrorHandler_RendersAppError(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/x", func(c *gin.Context) {
		_ = c.Error(errors.NotFound("alert", nil))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "alert not found", decodeResponse(t, w).Error.Message)
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/panic", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, decodeResponse(t, w).Success)
}

func TestRateLimit_PerClientIP(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: rate.Limit(0.001), Burst: 1})
	r := gin.New()
	r.Use(rl.RateLimit())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1"))
	assert.Equal(t, http.StatusOK, do("10.0.0.2"))
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS(DefaultCORSConfig()))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))

	req = httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestTimeout_SetsDeadline(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(time.Second, "/stream"))
	r.GET("/x", func(c *gin.Context) {
		_, ok := c.Request.Context().Deadline()
		c.JSON(http.StatusOK, ok)
	})
	r.GET("/stream", func(c *gin.Context) {
		_, ok := c.Request.Context().Deadline()
		c.JSON(http.StatusOK, ok)
	})

	for path, want := range map[string]string{"/x": "true", "/stream": "false"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, want, w.Body.String(), path)
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextRequestID)) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderXRequestID, "abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Body.String())
	assert.Equal(t, "abc", w.Header().Get(HeaderXRequestID))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Len(t, w.Body.String(), 36)
}

func TestSizeLimit(t *testing.T) {
	r := gin.New()
	r.Use(SizeLimit(8))
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("0123456789")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
