package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/carteraclaro/backend/src/config"
)

func TestMain(m *testing.M) {
	config.Cfg = &config.AppConfig{AccessTokenExpiry: time.Hour}
	m.Run()
}

func TestHashAndComparePassword(t *testing.T) {
	service := NewAuthService("test-secret")

	hash, err := service.HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.NoError(t, service.CompareHashAndPassword(hash, "correct horse battery staple"))
	assert.Error(t, service.CompareHashAndPassword(hash, "wrong password"))
}

func TestGenerateAndValidateToken(t *testing.T) {
	service := NewAuthService("test-secret")

	token, err := service.GenerateToken("operator")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	subject, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "operator", subject)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, err := NewAuthService("secret-one").GenerateToken("operator")
	require.NoError(t, err)

	_, err = NewAuthService("secret-two").ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_Garbage(t *testing.T) {
	_, err := NewAuthService("test-secret").ValidateToken("not.a.token")
	assert.Error(t, err)
}

func TestGenerateToken_ExpiredTokenRejected(t *testing.T) {
	service := NewAuthService("test-secret")

	original := config.Cfg.AccessTokenExpiry
	config.Cfg.AccessTokenExpiry = -time.Minute
	defer func() { config.Cfg.AccessTokenExpiry = original }()

	token, err := service.GenerateToken("operator")
	require.NoError(t, err)

	_, err = service.ValidateToken(token)
	assert.Error(t, err)
}
