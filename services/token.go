package services

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lborres/medauth/core"
)

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	grace  time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl, refreshGrace time.Duration, now func() time.Time) *TokenIssuer {
	if ttl <= 0 {
		ttl = core.DefaultTokenTTL
	}
	if refreshGrace < 0 {
		refreshGrace = 0
	}
	if now == nil {
		now = time.Now
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, grace: refreshGrace, now: now}
}

// Issue signs a token for u, valid for the configured TTL from now.
func (ti *TokenIssuer) Issue(u *core.User) (string, time.Time, error) {
	now := ti.now()
	exp := now.Add(ti.ttl)

	claims := core.NewTokenClaims(u)
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(exp)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, claims.Expires(), nil
}

// Verify checks signature and expiry. An expired token with a valid signature
// yields ErrTokenExpired; anything else unacceptable yields ErrInvalidToken.
func (ti *TokenIssuer) Verify(token string) (*core.TokenClaims, error) {
	if token == "" {
		return nil, core.ErrInvalidToken
	}

	claims := &core.TokenClaims{}
	_, err := jwt.ParseWithClaims(token, claims, ti.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ti.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, core.ErrTokenExpired
		}
		return nil, core.ErrInvalidToken
	}
	return claims, nil
}

// VerifyForRefresh is Verify with a grace window: a correctly signed token
// that expired less than the refresh grace ago is still accepted.
func (ti *TokenIssuer) VerifyForRefresh(token string) (*core.TokenClaims, error) {
	if token == "" {
		return nil, core.ErrInvalidToken
	}

	claims := &core.TokenClaims{}
	_, err := jwt.ParseWithClaims(token, claims, ti.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, core.ErrInvalidToken
	}

	exp := claims.Expires()
	if exp.IsZero() {
		return nil, core.ErrInvalidToken
	}
	if ti.now().After(exp.Add(ti.grace)) {
		return nil, core.ErrTokenExpired
	}
	return claims, nil
}

// TTL returns the lifetime of issued tokens.
func (ti *TokenIssuer) TTL() time.Duration {
	return ti.ttl
}

// Grace is the refresh window after expiry.
func (ti *TokenIssuer) Grace() time.Duration {
	return ti.grace
}

func (ti *TokenIssuer) keyFunc(*jwt.Token) (interface{}, error) {
	return ti.secret, nil
}
