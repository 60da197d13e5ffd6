package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lborres/medauth/core"
)

var doctor = &core.User{
	ID:         "u-1",
	Email:      "doctor@medinexus.com",
	Name:       "Dr. Zhang",
	Role:       core.RoleDoctor,
	Department: "Internal Medicine",
	Avatar:     "/avatars/doctor.png",
}

// Requirement: verify(issue(u)) returns u's claims while the token is fresh.
func TestTokenIssuer_RoundTrip(t *testing.T) {
	// Arrange
	clock := newFakeClock()
	issuer := NewTokenIssuer(testSecret, 0, 0, clock.Now)

	// Act
	token, exp, err := issuer.Issue(doctor)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	claims, err := issuer.Verify(token)

	// Assert
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if got := claims.User(); *got != *doctor {
		t.Errorf("claims.User() = %+v, want %+v", got, doctor)
	}
	if !exp.Equal(clock.Now().Add(24 * time.Hour)) {
		t.Errorf("expiresAt = %v, want now+24h", exp)
	}
	if !claims.Issued().Equal(clock.Now()) {
		t.Errorf("issuedAt = %v, want %v", claims.Issued(), clock.Now())
	}
}

// Requirement: tokens are valid just under 24h and expired just over it.
func TestTokenIssuer_ExpiryBoundary(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		wantErr error
	}{
		{"fresh", 0, nil},
		{"23h59m", 23*time.Hour + 59*time.Minute, nil},
		{"24h01m", 24*time.Hour + time.Minute, core.ErrTokenExpired},
		{"a week later", 7 * 24 * time.Hour, core.ErrTokenExpired},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			clock := newFakeClock()
			issuer := NewTokenIssuer(testSecret, core.DefaultTokenTTL, 0, clock.Now)
			token, _, _ := issuer.Issue(doctor)

			// Act
			clock.Advance(test.elapsed)
			_, err := issuer.Verify(token)

			// Assert
			if !errors.Is(err, test.wantErr) {
				t.Errorf("Verify() error = %v, want %v", err, test.wantErr)
			}
		})
	}
}

// Requirement: anything but a correctly signed HS256 token is Invalid, never Expired.
func TestTokenIssuer_Invalid(t *testing.T) {
	clock := newFakeClock()
	issuer := NewTokenIssuer(testSecret, 0, 0, clock.Now)
	good, _, _ := issuer.Issue(doctor)

	otherKey := NewTokenIssuer("another-secret-that-is-also-32-bytes!!", 0, 0, clock.Now)
	foreign, _, _ := otherKey.Issue(doctor)

	// Expired and signed with the wrong key: signature is judged first.
	past := NewTokenIssuer("another-secret-that-is-also-32-bytes!!", 0, 0, func() time.Time {
		return clock.Now().Add(-48 * time.Hour)
	})
	foreignExpired, _, _ := past.Issue(doctor)

	claims := core.NewTokenClaims(doctor)
	claims.ExpiresAt = jwt.NewNumericDate(clock.Now().Add(time.Hour))
	unsigned, _ := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)

	parts := strings.Split(good, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-token"},
		{"wrong key", foreign},
		{"wrong key and expired", foreignExpired},
		{"alg none", unsigned},
		{"tampered payload", tampered},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := issuer.Verify(test.token)
			if !errors.Is(err, core.ErrInvalidToken) {
				t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestTokenIssuer_MissingExpiryIsInvalid(t *testing.T) {
	clock := newFakeClock()
	issuer := NewTokenIssuer(testSecret, 0, 0, clock.Now)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, core.NewTokenClaims(doctor)).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}

	if _, err := issuer.Verify(token); !errors.Is(err, core.ErrInvalidToken) {
		t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
	}
	if _, err := issuer.VerifyForRefresh(token); !errors.Is(err, core.ErrInvalidToken) {
		t.Errorf("VerifyForRefresh() error = %v, want ErrInvalidToken", err)
	}
}

// Requirement: refresh accepts a recently expired token but never a bad signature.
func TestTokenIssuer_VerifyForRefresh(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		wantErr error
	}{
		{"still valid", time.Hour, nil},
		{"expired within grace", 48 * time.Hour, nil},
		{"expired beyond grace", 24*time.Hour + 8*24*time.Hour, core.ErrTokenExpired},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			clock := newFakeClock()
			issuer := NewTokenIssuer(testSecret, core.DefaultTokenTTL, core.DefaultRefreshGrace, clock.Now)
			token, _, _ := issuer.Issue(doctor)

			clock.Advance(test.elapsed)
			claims, err := issuer.VerifyForRefresh(token)

			if !errors.Is(err, test.wantErr) {
				t.Fatalf("VerifyForRefresh() error = %v, want %v", err, test.wantErr)
			}
			if err == nil && claims.Email != doctor.Email {
				t.Errorf("claims.Email = %q", claims.Email)
			}
		})
	}

	t.Run("bad signature", func(t *testing.T) {
		clock := newFakeClock()
		issuer := NewTokenIssuer(testSecret, 0, core.DefaultRefreshGrace, clock.Now)
		foreign, _, _ := NewTokenIssuer("another-secret-that-is-also-32-bytes!!", 0, 0, clock.Now).Issue(doctor)

		if _, err := issuer.VerifyForRefresh(foreign); !errors.Is(err, core.ErrInvalidToken) {
			t.Errorf("VerifyForRefresh() error = %v, want ErrInvalidToken", err)
		}
	})
}
