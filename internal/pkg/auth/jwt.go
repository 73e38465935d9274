package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/bildungsfortschritt/api/internal/pkg/apperrors"
)

// TokenType separates access from refresh tokens
type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

// JWTConfig defines JWT configuration settings
type JWTConfig struct {
	AccessSecret    string
	RefreshSecret   string
	AccessTokenExp  time.Duration
	RefreshTokenExp time.Duration
	Issuer          string
	Audience        []string
}

// JWTService issues and verifies HS256 tokens
type JWTService struct {
	config JWTConfig
	now    func() time.Time
}

// NewJWTService creates a new JWT service
func NewJWTService(config JWTConfig) *JWTService {
	return &JWTService{config: config, now: time.Now}
}

// Claims defines JWT token content
type Claims struct {
	UserID    int64     `json:"userId"`
	TokenType TokenType `json:"tokenType"`
	jwt.RegisteredClaims
}

// TokenPair is the result of a successful login or registration
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
}

func (s *JWTService) secret(t TokenType) []byte {
	if t == RefreshToken {
		return []byte(s.config.RefreshSecret)
	}
	return []byte(s.config.AccessSecret)
}

func (s *JWTService) ttl(t TokenType) time.Duration {
	if t == RefreshToken {
		return s.config.RefreshTokenExp
	}
	return s.config.AccessTokenExp
}

func (s *JWTService) sign(userID int64, t TokenType) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID:    userID,
		TokenType: t,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl(t))),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.config.Issuer,
			Audience:  s.config.Audience,
			Subject:   strconv.FormatInt(userID, 10),
			ID:        uuid.New().String(),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret(t))
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", t, err)
	}
	return token, nil
}

// GenerateAccessToken creates a short lived access token
func (s *JWTService) GenerateAccessToken(userID int64) (string, error) {
	return s.sign(userID, AccessToken)
}

// GenerateTokenPair creates an access and a refresh token for userID
func (s *JWTService) GenerateTokenPair(userID int64) (*TokenPair, error) {
	access, err := s.sign(userID, AccessToken)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(userID, RefreshToken)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessTTL:    s.config.AccessTokenExp,
		RefreshTTL:   s.config.RefreshTokenExp,
	}, nil
}

// RefreshTTL is the lifetime of refresh tokens and of the refresh cookie
func (s *JWTService) RefreshTTL() time.Duration {
	return s.config.RefreshTokenExp
}

// Validate verifies signature, expiry, issuer, audience and token type
func (s *JWTService) Validate(tokenString string, want TokenType) (*Claims, error) {
	if tokenString == "" {
		return nil, apperrors.ErrTokenNotFound
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.config.Issuer),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if len(s.config.Audience) > 0 {
		opts = append(opts, jwt.WithAudience(s.config.Audience[0]))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return s.secret(want), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TokenType != want || claims.UserID <= 0 {
		return nil, apperrors.ErrTokenInvalid
	}
	return claims, nil
}

// ExtractBearerToken extracts the token from an Authorization header
func ExtractBearerToken(authHeader string) (string, error) {
	const prefix = "Bearer "
	if len(authHeader) <= len(prefix) || !strings.EqualFold(authHeader[:len(prefix)], prefix) {
		return "", apperrors.ErrTokenNotFound
	}
	return strings.TrimSpace(authHeader[len(prefix):]), nil
}
