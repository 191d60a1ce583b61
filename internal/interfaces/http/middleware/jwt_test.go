package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dronestore/storefront/internal/infrastructure/auth"
	"github.com/dronestore/storefront/internal/infrastructure/config"
	"github.com/dronestore/storefront/internal/infrastructure/logger"
	"github.com/dronestore/storefront/internal/interfaces/http/dto"
)

func newTestJWTService(ttl time.Duration) *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars",
		AccessTokenExpiration: ttl,
		Issuer:                "storefront-test",
	})
}

func issue(t *testing.T, svc *auth.JWTService, userID string) string {
	t.Helper()
	tok, err := svc.Issue(userID, "pilot")
	require.NoError(t, err)
	return tok.Token
}

func jwtRouter(mw gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw)
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": GetJWTUserID(c), "log_user": logger.GetUserID(c.Request.Context())})
	})
	return r
}

func authGet(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if header != "" {
		req.Header.Set(AuthHeaderKey, header)
	}
	return serve(r, req)
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func TestJWTAuth(t *testing.T) {
	svc := newTestJWTService(15 * time.Minute)
	expired := newTestJWTService(-time.Minute)
	other := auth.NewJWTService(config.JWTConfig{
		Secret:                "a-completely-different-secret-key",
		AccessTokenExpiration: time.Minute,
		Issuer:                "storefront-test",
	})
	r := jwtRouter(JWTAuth(JWTAuthConfig{Verifier: svc, SkipPaths: []string{"/health"}}))

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing header", "", dto.ErrCodeUnauthorized},
		{"wrong scheme", "Basic dXNlcjpwYXNz", dto.ErrCodeUnauthorized},
		{"empty bearer", BearerPrefix + "  ", dto.ErrCodeUnauthorized},
		{"garbage token", BearerPrefix + "not.a.jwt", dto.ErrCodeTokenInvalid},
		{"token from another secret", BearerPrefix + issue(t, other, "42"), dto.ErrCodeTokenInvalid},
		{"expired", BearerPrefix + issue(t, expired, "42"), dto.ErrCodeTokenExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := authGet(r, tt.header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, tt.code, errorCode(t, w))
		})
	}

	t.Run("valid token exposes user id", func(t *testing.T) {
		w := authGet(r, BearerPrefix+issue(t, svc, "42"))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"user":"42","log_user":"42"}`, w.Body.String())
	})

	t.Run("skip path needs no token", func(t *testing.T) {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

type verifierFunc func(string) (*auth.Claims, error)

func (f verifierFunc) Verify(token string) (*auth.Claims, error) { return f(token) }

func TestJWTAuth_Verifier(t *testing.T) {
	var got string
	r := jwtRouter(JWTAuth(JWTAuthConfig{Verifier: verifierFunc(func(token string) (*auth.Claims, error) {
		got = token
		return &auth.Claims{UserID: "pilot-9"}, nil
	})}))

	w := authGet(r, BearerPrefix+" opaque ")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "opaque", got)
	assert.JSONEq(t, `{"user":"pilot-9","log_user":"pilot-9"}`, w.Body.String())
}

func TestJWTAuth_OnError(t *testing.T) {
	var seen error
	r := jwtRouter(JWTAuth(JWTAuthConfig{
		Verifier: newTestJWTService(time.Minute),
		OnError: func(c *gin.Context, err error) {
			seen = err
			c.AbortWithStatus(http.StatusTeapot)
		},
	}))

	w := authGet(r, "")
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.ErrorIs(t, seen, errMissingToken)
}
