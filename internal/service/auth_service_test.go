package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_Login(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	secret := []byte("test-secret")
	svc := NewAuthService(hash, secret, time.Hour)
	require.True(t, svc.Enabled())

	_, err = svc.Login(LoginRequest{Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	res, err := svc.Login(LoginRequest{Password: "s3cret"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), res.ExpiresAt, time.Minute)

	token, err := jwt.Parse(res.AccessToken, func(*jwt.Token) (interface{}, error) { return secret, nil })
	require.NoError(t, err)
	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, RoleAdmin, claims["role"])
}

func TestAuthService_Disabled(t *testing.T) {
	svc := NewAuthService("", nil, time.Hour)
	assert.False(t, svc.Enabled())

	_, err := svc.Login(LoginRequest{Password: "anything"})
	assert.ErrorIs(t, err, ErrUnsupported)
}
