package server

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonathan/mentor-match/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-signing-minimum-32-bytes"

func setupTestJWTService(_ *testing.T, expirationHours int) *JWTService {
	return NewJWTService(&config.JWTConfig{
		Secret:          testSecret,
		ExpirationHours: expirationHours,
		Issuer:          config.DefaultJWTIssuer,
	})
}

func TestJWTService_RoundTrip(t *testing.T) {
	service := setupTestJWTService(t, 24)
	userID := uuid.New()

	token, expiresAt, err := service.GenerateToken(userID)
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3, "JWT should have 3 parts separated by dots")
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), expiresAt, time.Minute)

	got, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestJWTService_UniqueTokens(t *testing.T) {
	service := setupTestJWTService(t, 24)
	userID := uuid.New()

	token1, _, err := service.GenerateToken(userID)
	require.NoError(t, err)
	token2, _, err := service.GenerateToken(userID)
	require.NoError(t, err)

	assert.NotEqual(t, token1, token2, "token id should differ between issues")
}

func TestJWTService_InvalidSignature(t *testing.T) {
	issuer := setupTestJWTService(t, 24)
	other := NewJWTService(&config.JWTConfig{
		Secret:          "different-secret-key-for-jwt-signing-minimum-32-bytes",
		ExpirationHours: 24,
	})

	token, _, err := issuer.GenerateToken(uuid.New())
	require.NoError(t, err)

	got, err := other.ValidateToken(token)
	assert.Error(t, err)
	assert.Equal(t, uuid.Nil, got)
	assert.Contains(t, err.Error(), "signature")
}

func TestJWTService_WrongIssuer(t *testing.T) {
	service := setupTestJWTService(t, 24)
	foreign := NewJWTService(&config.JWTConfig{Secret: testSecret, ExpirationHours: 24, Issuer: "someone-else"})

	token, _, err := foreign.GenerateToken(uuid.New())
	require.NoError(t, err)

	_, err = service.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTService_Expired(t *testing.T) {
	service := setupTestJWTService(t, 1)
	issuedAt := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return issuedAt }

	userID := uuid.New()
	token, _, err := service.GenerateToken(userID)
	require.NoError(t, err)

	service.now = func() time.Time { return issuedAt.Add(30 * time.Minute) }
	got, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)

	service.now = func() time.Time { return issuedAt.Add(2 * time.Hour) }
	_, err = service.ValidateToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestJWTService_RejectsOtherAlgorithms(t *testing.T) {
	service := setupTestJWTService(t, 24)
	claims := jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		Issuer:    config.DefaultJWTIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = service.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTService_RequiresExpiry(t *testing.T) {
	service := setupTestJWTService(t, 24)
	claims := jwt.RegisteredClaims{Subject: uuid.NewString(), Issuer: config.DefaultJWTIssuer}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = service.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTService_SubjectMustBeUUID(t *testing.T) {
	service := setupTestJWTService(t, 24)
	claims := jwt.RegisteredClaims{
		Subject:   "alice",
		Issuer:    config.DefaultJWTIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = service.ValidateToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subject")
}

func TestJWTService_MalformedTokens(t *testing.T) {
	service := setupTestJWTService(t, 24)

	for _, token := range []string{"", "invalid", "invalid.token", "invalid.token.format.extra", "invalid.base64.signature"} {
		t.Run(token, func(t *testing.T) {
			got, err := service.ValidateToken(token)
			assert.Error(t, err)
			assert.Equal(t, uuid.Nil, got)
		})
	}
}
