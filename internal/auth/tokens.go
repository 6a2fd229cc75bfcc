// Package auth issues and verifies the JWTs identifying customers.
package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/nsridhar76/go-ordermgmt/internal/domain"
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the JWT claims of both token types.
type Claims struct {
	CustomerID int64     `json:"customer_id"`
	Type       TokenType `json:"type"`
	jwt.RegisteredClaims
}

type TokensConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

func (c *TokensConfig) setDefaults() {
	if c.AccessTTL <= 0 {
		c.AccessTTL = 30 * time.Minute
	}
	if c.RefreshTTL <= 0 {
		c.RefreshTTL = 7 * 24 * time.Hour
	}
}

func (c TokensConfig) validate() error {
	if len(c.AccessSecret) == 0 {
		return errors.New("missing access token secret")
	}
	if len(c.RefreshSecret) == 0 {
		return errors.New("missing refresh token secret")
	}
	return nil
}

// Tokens signs and verifies HS256 tokens. Access and refresh tokens use
// separate secrets.
type Tokens struct {
	config TokensConfig
	now    func() time.Time
}

func NewTokens(config TokensConfig) (*Tokens, error) {
	config.setDefaults()
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &Tokens{config: config, now: time.Now}, nil
}

// AccessTTL is the lifetime of access tokens.
func (t *Tokens) AccessTTL() time.Duration { return t.config.AccessTTL }

func (t *Tokens) CreateAccessToken(customerID int64) (string, error) {
	return t.sign(customerID, TokenTypeAccess, t.config.AccessSecret, t.config.AccessTTL)
}

func (t *Tokens) CreateRefreshToken(customerID int64) (string, error) {
	return t.sign(customerID, TokenTypeRefresh, t.config.RefreshSecret, t.config.RefreshTTL)
}

// Verify parses token and checks its signature, expiry and type. Every
// failure is reported as domain.ErrUnauthorized.
func (t *Tokens) Verify(token string, expected TokenType) (*Claims, error) {
	secret := t.config.AccessSecret
	if expected == TokenTypeRefresh {
		secret = t.config.RefreshSecret
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(
		token,
		claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, errors.Wrap(domain.ErrUnauthorized, err.Error())
	}
	if claims.Type != expected {
		return nil, errors.Wrap(domain.ErrUnauthorized, "invalid token type")
	}
	if claims.CustomerID <= 0 {
		return nil, errors.Wrap(domain.ErrUnauthorized, "invalid token payload")
	}
	return claims, nil
}

func (t *Tokens) sign(customerID int64, typ TokenType, secret []byte, ttl time.Duration) (string, error) {
	now := t.now()
	claims := Claims{
		CustomerID: customerID,
		Type:       typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(customerID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	return signed, errors.Wrap(err, "cannot sign token")
}
