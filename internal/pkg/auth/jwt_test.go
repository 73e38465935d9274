package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bildungsfortschritt/api/internal/pkg/apperrors"
)

func newTestService() *JWTService {
	return NewJWTService(JWTConfig{
		AccessSecret:    "access-secret",
		RefreshSecret:   "refresh-secret",
		AccessTokenExp:  time.Hour,
		RefreshTokenExp: 7 * 24 * time.Hour,
		Issuer:          "bildungsfortschritt-app",
		Audience:        []string{"web-app"},
	})
}

func TestJWTService_RoundTrip(t *testing.T) {
	s := newTestService()

	pair, err := s.GenerateTokenPair(42)
	require.NoError(t, err)

	claims, err := s.Validate(pair.AccessToken, AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "42", claims.Subject)

	claims, err = s.Validate(pair.RefreshToken, RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
}

func TestJWTService_RejectsWrongKind(t *testing.T) {
	s := newTestService()
	pair, err := s.GenerateTokenPair(1)
	require.NoError(t, err)

	_, err = s.Validate(pair.RefreshToken, AccessToken)
	assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)

	_, err = s.Validate(pair.AccessToken, RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)
}

func TestJWTService_Expired(t *testing.T) {
	s := newTestService()
	issued := time.Now().Add(-2 * time.Hour)
	s.now = func() time.Time { return issued }

	token, err := s.GenerateAccessToken(1)
	require.NoError(t, err)

	s.now = time.Now
	_, err = s.Validate(token, AccessToken)
	assert.ErrorIs(t, err, apperrors.ErrTokenExpired)
}

func TestJWTService_RejectsForeignAudienceAndIssuer(t *testing.T) {
	other := NewJWTService(JWTConfig{
		AccessSecret:   "access-secret",
		AccessTokenExp: time.Hour,
		Issuer:         "someone-else",
		Audience:       []string{"web-app"},
	})
	token, err := other.GenerateAccessToken(1)
	require.NoError(t, err)

	_, err = newTestService().Validate(token, AccessToken)
	assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)

	_, err = newTestService().Validate("", AccessToken)
	assert.ErrorIs(t, err, apperrors.ErrTokenNotFound)

	_, err = newTestService().Validate("not.a.jwt", AccessToken)
	assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)
}

func TestExtractBearerToken(t *testing.T) {
	tok, err := ExtractBearerToken("Bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", tok)

	_, err = ExtractBearerToken("abc.def.ghi")
	assert.ErrorIs(t, err, apperrors.ErrTokenNotFound)

	_, err = ExtractBearerToken("")
	assert.ErrorIs(t, err, apperrors.ErrTokenNotFound)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("Geheim123")
	require.NoError(t, err)
	assert.NotEqual(t, "Geheim123", hash)
	assert.True(t, CheckPassword(hash, "Geheim123"))
	assert.False(t, CheckPassword(hash, "geheim123"))
}
