package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/lborres/medauth/core"
)

type AuthService struct {
	credentials *CredentialStore
	tokens      *TokenIssuer
	resets      *ResetManager
	roles       core.Roles
}

// Ensure AuthService implements AuthHandler
var _ core.AuthHandler = (*AuthService)(nil)

func NewAuthService(credentials *CredentialStore, tokens *TokenIssuer, resets *ResetManager, roles core.Roles) *AuthService {
	if len(roles) == 0 {
		roles = core.DefaultRoles()
	}
	return &AuthService{
		credentials: credentials,
		tokens:      tokens,
		resets:      resets,
		roles:       roles,
	}
}

// Login authenticates with email and password and issues a session token
func (s *AuthService) Login(ctx context.Context, input core.LoginInput) (*core.AuthResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	acc, err := s.credentials.Verify(ctx, input.Email, input.Password)
	if err != nil {
		return nil, err
	}

	return s.issue(acc.User())
}

// Register creates an account and signs it in
func (s *AuthService) Register(ctx context.Context, input core.RegisterInput) (*core.AuthResult, error) {
	if err := input.Validate(s.roles); err != nil {
		return nil, err
	}

	acc, err := s.credentials.Create(ctx, NewAccount{
		Email:      input.Email,
		Password:   input.Password,
		Name:       input.Name,
		Role:       input.Role,
		Department: input.Department,
	})
	if err != nil {
		return nil, err
	}

	return s.issue(acc.User())
}

// RequestPasswordReset always answers with the same message
func (s *AuthService) RequestPasswordReset(ctx context.Context, input core.ResetRequestInput) (*core.MessageResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	msg, err := s.resets.Request(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	return &core.MessageResult{Message: msg}, nil
}

// ConsumePasswordReset redeems a reset token for a new password
func (s *AuthService) ConsumePasswordReset(ctx context.Context, input core.ResetConsumeInput) (*core.MessageResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	msg, err := s.resets.Consume(ctx, input.Token, input.NewPassword)
	if err != nil {
		return nil, err
	}
	return &core.MessageResult{Message: msg}, nil
}

// Refresh exchanges a valid or recently expired token for a fresh one.
// The identity is reloaded so profile changes reach the new token.
func (s *AuthService) Refresh(ctx context.Context, token string) (*core.AuthResult, error) {
	claims, err := s.tokens.VerifyForRefresh(token)
	if err != nil {
		return nil, err
	}

	// The subject is stable across email changes; the other claims may be stale.
	acc, err := s.credentials.FindByID(ctx, claims.User().ID)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return nil, core.ErrInvalidToken
		}
		return nil, err
	}

	return s.issue(acc.User())
}

// GetSession returns the identity carried by a currently valid token
func (s *AuthService) GetSession(_ context.Context, token string) (*core.SessionData, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	return &core.SessionData{
		User:      claims.User(),
		IssuedAt:  claims.Issued(),
		ExpiresAt: claims.Expires(),
	}, nil
}

// VerifyToken checks signature and expiry
func (s *AuthService) VerifyToken(token string) (*core.TokenClaims, error) {
	return s.tokens.Verify(token)
}

// PurgeExpiredTickets reaps expired reset tickets
func (s *AuthService) PurgeExpiredTickets(ctx context.Context) (int, error) {
	return s.resets.PurgeExpired(ctx)
}

func (s *AuthService) issue(u *core.User) (*core.AuthResult, error) {
	token, exp, err := s.tokens.Issue(u)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &core.AuthResult{User: u, Token: token, ExpiresAt: exp}, nil
}
