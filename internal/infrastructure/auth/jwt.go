package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dronestore/storefront/internal/infrastructure/config"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrMissingUserID = errors.New("missing user_id in claims")
)

// Claims identify the shopper a storefront token was issued to
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"user_id"`
	Username string `json:"username,omitempty"`
}

// Expiry returns the exp claim, zero when absent
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// AccessToken is a signed bearer token
type AccessToken struct {
	Token     string    `json:"access_token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// JWTService issues and verifies HS256 shopper tokens
type JWTService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	parser *jwt.Parser
}

func NewJWTService(cfg config.JWTConfig) *JWTService {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	return &JWTService{
		secret: []byte(cfg.Secret),
		ttl:    cfg.AccessTokenExpiration,
		issuer: cfg.Issuer,
		parser: jwt.NewParser(opts...),
	}
}

// TTL is the lifetime of issued tokens
func (s *JWTService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for userID
func (s *JWTService) Issue(userID, username string) (*AccessToken, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}

	now := time.Now()
	expires := now.Add(s.ttl)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		UserID:   userID,
		Username: username,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &AccessToken{Token: signed, ExpiresAt: expires}, nil
}

// Verify checks signature, issuer and validity window. Failures other than
// expiry wrap ErrInvalidToken.
func (s *JWTService) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := s.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	case claims.UserID == "":
		return nil, ErrMissingUserID
	}
	return claims, nil
}

// ParseUnverified reads claims without checking signature or expiry. Clients
// use it to learn who they are; only the server verifies.
func ParseUnverified(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID == "" {
		return nil, ErrMissingUserID
	}
	return claims, nil
}
