package service

import (
	"github.com/ThreeDotsLabs/watermill"

	"github.com/nsridhar76/go-ordermgmt/internal/auth"
	"github.com/nsridhar76/go-ordermgmt/internal/domain"
)

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	CustomerID   int64  `json:"customer_id"`
}

type AuthService struct {
	tokens *auth.Tokens
	logger watermill.LoggerAdapter
}

func NewAuthService(tokens *auth.Tokens, logger watermill.LoggerAdapter) *AuthService {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &AuthService{tokens: tokens, logger: logger}
}

// LoginTest issues tokens for any positive customer id. There is no
// credential check; it exists for development and tests.
func (s *AuthService) LoginTest(customerID int64) (TokenPair, error) {
	if customerID <= 0 {
		return TokenPair{}, domain.NewValidationError("customer_id", "must be positive")
	}

	pair, err := s.issue(customerID)
	if err != nil {
		return TokenPair{}, err
	}

	s.logger.Info("Test login", watermill.LogFields{"customer_id": customerID})
	return pair, nil
}

// Refresh exchanges a valid refresh token for a new token pair.
func (s *AuthService) Refresh(refreshToken string) (TokenPair, error) {
	claims, err := s.tokens.Verify(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	return s.issue(claims.CustomerID)
}

func (s *AuthService) issue(customerID int64) (TokenPair, error) {
	access, err := s.tokens.CreateAccessToken(customerID)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.tokens.CreateRefreshToken(customerID)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
		CustomerID:   customerID,
	}, nil
}
