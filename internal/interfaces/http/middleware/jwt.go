package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dronestore/storefront/internal/infrastructure/auth"
	"github.com/dronestore/storefront/internal/infrastructure/logger"
	"github.com/dronestore/storefront/internal/interfaces/http/dto"
)

const (
	JWTUserIDKey  = "jwt_user_id"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

var errMissingToken = errors.New("missing bearer token")

// TokenVerifier checks a bearer token and returns its claims
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// JWTAuthConfig configures JWTAuth
type JWTAuthConfig struct {
	Verifier TokenVerifier
	Logger   *zap.Logger
	// SkipPaths are exact paths served without a token
	SkipPaths []string
	// OnError replaces the default 401 envelope
	OnError func(c *gin.Context, err error)
}

// JWTAuth rejects requests without a valid bearer token. The verified user is
// exposed to handlers through GetJWTUserID and to the logs through the
// request context.
func JWTAuth(cfg JWTAuthConfig) gin.HandlerFunc {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.OnError == nil {
		cfg.OnError = func(c *gin.Context, err error) { rejectToken(c, cfg.Logger, err) }
	}
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		claims, err := authenticate(c.GetHeader(AuthHeaderKey), cfg.Verifier)
		if err != nil {
			cfg.OnError(c, err)
			return
		}

		setUser(c, claims.UserID)
		cfg.Logger.Debug("JWT authentication successful", zap.String("user_id", claims.UserID))
		c.Next()
	}
}

func authenticate(header string, verifier TokenVerifier) (*auth.Claims, error) {
	token, ok := strings.CutPrefix(header, BearerPrefix)
	if token = strings.TrimSpace(token); !ok || token == "" {
		return nil, errMissingToken
	}
	return verifier.Verify(token)
}

func setUser(c *gin.Context, userID string) {
	c.Set(JWTUserIDKey, userID)
	c.Set(logger.GinUserIDKey, userID)

	ctx := c.Request.Context()
	ctx, _ = logger.WithUserID(ctx, logger.FromContext(ctx), userID)
	c.Request = c.Request.WithContext(ctx)
}

func rejectToken(c *gin.Context, log *zap.Logger, err error) {
	code, msg := dto.ErrCodeUnauthorized, "Authentication required"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, msg = dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrMissingUserID):
		code, msg = dto.ErrCodeTokenInvalid, "Invalid token"
	}

	log.Warn("JWT authentication failed",
		zap.Error(err),
		zap.String("code", code),
		zap.String("path", c.Request.URL.Path),
	)
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(code, msg, GetRequestID(c)))
}

// GetJWTUserID returns the verified user, empty on unauthenticated routes
func GetJWTUserID(c *gin.Context) string {
	return c.GetString(JWTUserIDKey)
}
