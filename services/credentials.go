package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/lborres/medauth/core"
	"github.com/lborres/medauth/pkg/crypto"
)

// NewAccount is the registration payload after validation.
type NewAccount struct {
	Email      string
	Password   string
	Name       string
	Role       string
	Department string
	Avatar     string
}

// CredentialStore owns account records and the password hashing boundary.
// Callers hand it plaintext passwords; only hashes reach storage.
type CredentialStore struct {
	db             core.AccountStorage
	passwordHasher crypto.PasswordHandler
}

func NewCredentialStore(db core.AccountStorage, passwordHasher crypto.PasswordHandler) *CredentialStore {
	return &CredentialStore{db: db, passwordHasher: passwordHasher}
}

// FindByEmail looks the account up case-insensitively.
func (cs *CredentialStore) FindByEmail(ctx context.Context, email string) (*core.Account, error) {
	acc, err := cs.db.GetAccountByEmail(ctx, core.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return nil, core.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return acc, nil
}

// FindByID looks the account up by its stable id.
func (cs *CredentialStore) FindByID(ctx context.Context, id string) (*core.Account, error) {
	acc, err := cs.db.GetAccountByID(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return nil, core.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return acc, nil
}

// Verify checks the password for email. An unknown email and a wrong password
// both yield ErrInvalidCredentials.
func (cs *CredentialStore) Verify(ctx context.Context, email, password string) (*core.Account, error) {
	acc, err := cs.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return nil, core.ErrInvalidCredentials
		}
		return nil, err
	}

	valid, err := cs.passwordHasher.Verify(password, acc.PasswordHash)
	if err != nil {
		// A hash we cannot decode can never match.
		if errors.Is(err, crypto.ErrInvalidHash) || errors.Is(err, crypto.ErrUnsupported) {
			return nil, core.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		return nil, core.ErrInvalidCredentials
	}

	return acc, nil
}

// Create registers a new account. The avatar defaults to the role avatar.
func (cs *CredentialStore) Create(ctx context.Context, in NewAccount) (*core.Account, error) {
	// Step 1: Reject a taken email early
	if _, err := cs.FindByEmail(ctx, in.Email); err == nil {
		return nil, core.ErrDuplicateEmail
	} else if !errors.Is(err, core.ErrUserNotFound) {
		return nil, err
	}

	// Step 2: Hash the password
	hash, err := cs.passwordHasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	avatar := in.Avatar
	if avatar == "" {
		avatar = core.DefaultAvatar(in.Role)
	}

	// Step 3: Persist; storage still enforces uniqueness under races
	acc := &core.Account{
		ID:           uuid.NewString(),
		Email:        core.NormalizeEmail(in.Email),
		PasswordHash: hash,
		Name:         in.Name,
		Role:         in.Role,
		Department:   in.Department,
		Avatar:       avatar,
	}
	if err := cs.db.CreateAccount(ctx, acc); err != nil {
		if errors.Is(err, core.ErrDuplicateEmail) {
			return nil, core.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return acc, nil
}

// UpdateSecret replaces the password of the account with email.
func (cs *CredentialStore) UpdateSecret(ctx context.Context, email, newPassword string) error {
	hash, err := cs.passwordHasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := cs.db.UpdatePasswordHash(ctx, core.NormalizeEmail(email), hash); err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return core.ErrUserNotFound
		}
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}
