package utils

import (
	"testing"

	"github.com/guruqool/guruqool-backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	config.AppConfig = &config.Config{JWTSecret: "test_secret_key_12345"}

	token, err := GenerateToken("guru-1", "guru")
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "guru-1", claims.UserID)
	assert.Equal(t, "guru", claims.Role)
	assert.NotEmpty(t, claims.ID)
}

func TestValidateTokenRejectsOtherSecret(t *testing.T) {
	config.AppConfig = &config.Config{JWTSecret: "first"}
	token, err := GenerateToken("student-1", "student")
	require.NoError(t, err)

	config.AppConfig = &config.Config{JWTSecret: "second"}
	_, err = ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateUsername(t *testing.T) {
	assert.True(t, ValidateUsername("guru_anita"))
	assert.False(t, ValidateUsername("ab"))
	assert.False(t, ValidateUsername("has space"))
}
