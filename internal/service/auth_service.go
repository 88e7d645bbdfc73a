package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mmynk/settleup/internal/auth"
	"github.com/mmynk/settleup/internal/errs"
	"github.com/mmynk/settleup/internal/models"
)

// AuthService registers and logs in users.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	users         auth.UserStorage
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, users auth.UserStorage, logger *slog.Logger) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		users:         users,
		logger:        logger,
	}
}

// Session is an authenticated user with a bearer token.
type Session struct {
	User  *models.User
	Token string
}

// Register creates a new user account and signs a token for it.
func (s *AuthService) Register(ctx context.Context, email, displayName, password string) (*Session, error) {
	s.logger.Info("Register request", "email", email)

	var violations []string
	if strings.TrimSpace(email) == "" {
		violations = append(violations, "email is required")
	}
	if strings.TrimSpace(displayName) == "" {
		violations = append(violations, "display name is required")
	}
	if err := s.authenticator.ValidateCredential(password); err != nil {
		violations = append(violations, err.Error())
	}
	if len(violations) > 0 {
		return nil, &errs.ValidationError{Violations: violations}
	}

	user, err := s.authenticator.Register(ctx, email, strings.TrimSpace(displayName), password)
	if err != nil {
		s.logger.Error("Registration failed", "email", email, "error", err)
		return nil, err
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, err
	}

	s.logger.Info("User registered successfully", "user_id", user.ID, "email", user.Email)
	return &Session{User: user, Token: token}, nil
}

// Login authenticates a user and returns a JWT token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	s.logger.Info("Login request", "email", email)

	if email == "" || password == "" {
		return nil, auth.ErrInvalidCredentials
	}

	user, err := s.authenticator.Authenticate(ctx, email, password)
	if err != nil {
		s.logger.Warn("Login failed", "email", email, "error", err)
		return nil, auth.ErrInvalidCredentials
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, err
	}

	s.logger.Info("User logged in successfully", "user_id", user.ID)
	return &Session{User: user, Token: token}, nil
}

// CurrentUser returns the authenticated user's directory entry.
func (s *AuthService) CurrentUser(ctx context.Context, actorID string) (*models.User, error) {
	if err := requireActor("CurrentUser", actorID); err != nil {
		return nil, err
	}
	user, err := s.users.GetUserByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errs.NotFound("CurrentUser", "user not found: %s", actorID)
	}
	return user, nil
}
