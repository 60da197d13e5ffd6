package core

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Account is the stored credential record for a registered identity
//
// This is the only type that carries the password hash
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose in JSON
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	Department   string    `json:"department,omitempty"`
	Avatar       string    `json:"avatar,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// User is the public identity of an account, the model returned to clients
type User struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
	Avatar     string `json:"avatar,omitempty"`
}

// User strips the secret from the account.
func (a *Account) User() *User {
	return &User{
		ID:         a.ID,
		Email:      a.Email,
		Name:       a.Name,
		Role:       a.Role,
		Department: a.Department,
		Avatar:     a.Avatar,
	}
}

// TokenClaims is the payload of a session token: the public identity plus the
// registered temporal claims.
type TokenClaims struct {
	jwt.RegisteredClaims
	UID        string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
	Avatar     string `json:"avatar,omitempty"`
}

// NewTokenClaims copies the public identity into a claim set. Temporal claims
// are left to the issuer.
func NewTokenClaims(u *User) *TokenClaims {
	return &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: u.ID},
		UID:              u.ID,
		Email:            u.Email,
		Name:             u.Name,
		Role:             u.Role,
		Department:       u.Department,
		Avatar:           u.Avatar,
	}
}

// User returns the identity carried by the token.
func (c *TokenClaims) User() *User {
	id := c.UID
	if id == "" {
		id = c.Subject
	}
	return &User{
		ID:         id,
		Email:      c.Email,
		Name:       c.Name,
		Role:       c.Role,
		Department: c.Department,
		Avatar:     c.Avatar,
	}
}

// Expires returns the expiration time, zero when absent.
func (c *TokenClaims) Expires() time.Time {
	if c.ExpiresAt != nil {
		return c.ExpiresAt.Time
	}
	return time.Time{}
}

// Issued returns the issued-at time, zero when absent.
func (c *TokenClaims) Issued() time.Time {
	if c.IssuedAt != nil {
		return c.IssuedAt.Time
	}
	return time.Time{}
}

// ResetTicket is a single-use password reset credential.
//
// Only the hash of the token is stored; the raw value goes to the account owner.
type ResetTicket struct {
	TokenHash string    `json:"-"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// Expired reports whether the ticket is inert at the given instant.
func (t *ResetTicket) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// NormalizeEmail is the canonical form used for lookups and uniqueness.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
