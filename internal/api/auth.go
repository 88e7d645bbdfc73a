package api

import (
	"context"

	"connectrpc.com/connect"

	"github.com/mmynk/settleup/internal/models"
)

type RegisterRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

type CurrentUserRequest struct{}

type CurrentUserResponse struct {
	User *models.User `json:"user"`
}

func (s *Server) authRoutes(opts []connect.HandlerOption) []route {
	return []route{
		unary(RegisterProcedure, s.register, opts),
		unary(LoginProcedure, s.login, opts),
		unary(CurrentUserProcedure, s.currentUser, opts),
	}
}

func (s *Server) register(ctx context.Context, _ string, req *RegisterRequest) (*AuthResponse, error) {
	session, err := s.auth.Register(ctx, req.Email, req.DisplayName, req.Password)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{User: session.User, Token: session.Token}, nil
}

func (s *Server) login(ctx context.Context, _ string, req *LoginRequest) (*AuthResponse, error) {
	session, err := s.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{User: session.User, Token: session.Token}, nil
}

func (s *Server) currentUser(ctx context.Context, actorID string, _ *CurrentUserRequest) (*CurrentUserResponse, error) {
	user, err := s.auth.CurrentUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return &CurrentUserResponse{User: user}, nil
}
