// Package auth provides password authentication and JWT session tokens.
package auth

import (
	"context"

	"github.com/mmynk/settleup/internal/models"
)

// Authenticator registers and verifies users. PasswordAuthenticator is the
// only implementation; the service layer depends on this interface so other
// credential kinds can be added without touching it.
type Authenticator interface {
	// Register creates an account. Emails are stored lowercased.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate returns the user for a valid email and credential, or
	// ErrInvalidCredentials.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential reports whether credential is acceptable for Register.
	ValidateCredential(credential string) error
}

var _ Authenticator = (*PasswordAuthenticator)(nil)
