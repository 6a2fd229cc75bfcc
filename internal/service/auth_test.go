package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsridhar76/go-ordermgmt/internal/auth"
	"github.com/nsridhar76/go-ordermgmt/internal/domain"
	"github.com/nsridhar76/go-ordermgmt/internal/service"
)

func newAuthService(t *testing.T) (*service.AuthService, *auth.Tokens) {
	t.Helper()
	tokens, err := auth.NewTokens(auth.TokensConfig{
		AccessSecret:  []byte("access"),
		RefreshSecret: []byte("refresh"),
	})
	require.NoError(t, err)
	return service.NewAuthService(tokens, nil), tokens
}

func TestAuthService_LoginTest(t *testing.T) {
	svc, tokens := newAuthService(t)

	pair, err := svc.LoginTest(3)
	require.NoError(t, err)
	assert.Equal(t, "bearer", pair.TokenType)
	assert.EqualValues(t, 1800, pair.ExpiresIn)
	assert.EqualValues(t, 3, pair.CustomerID)

	claims, err := tokens.Verify(pair.AccessToken, auth.TokenTypeAccess)
	require.NoError(t, err)
	assert.EqualValues(t, 3, claims.CustomerID)

	_, err = svc.LoginTest(0)
	assert.True(t, domain.IsValidation(err))
}

func TestAuthService_Refresh(t *testing.T) {
	svc, tokens := newAuthService(t)

	pair, err := svc.LoginTest(3)
	require.NoError(t, err)

	refreshed, err := svc.Refresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.EqualValues(t, 3, refreshed.CustomerID)

	_, err = tokens.Verify(refreshed.AccessToken, auth.TokenTypeAccess)
	assert.NoError(t, err)

	_, err = svc.Refresh(pair.AccessToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
