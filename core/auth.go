package core

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// LoginInput contains the credentials for authentication
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in LoginInput) Validate() error {
	return wrapValidation(validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required),
		validation.Field(&in.Password, validation.Required),
	))
}

// RegisterInput contains the data needed to register a new account
type RegisterInput struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
}

// Validate checks required fields and that the role is one of roles.
func (in RegisterInput) Validate(roles Roles) error {
	return wrapValidation(validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.Password, validation.Required),
		validation.Field(&in.Name, validation.Required),
		validation.Field(&in.Role, validation.Required, roles.Rule()),
	))
}

type ResetRequestInput struct {
	Email string `json:"email"`
}

func (in ResetRequestInput) Validate() error {
	return wrapValidation(validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required),
	))
}

type ResetConsumeInput struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (in ResetConsumeInput) Validate() error {
	return wrapValidation(validation.ValidateStruct(&in,
		validation.Field(&in.Token, validation.Required),
		validation.Field(&in.NewPassword, validation.Required),
	))
}

// AuthResult is returned by login, registration and refresh
type AuthResult struct {
	User      *User     `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// MessageResult is a human-readable acknowledgement
type MessageResult struct {
	Message string `json:"message"`
}

// SessionData is the identity behind a verified token
type SessionData struct {
	User      *User     `json:"user"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func wrapValidation(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrValidation, err.Error())
}
