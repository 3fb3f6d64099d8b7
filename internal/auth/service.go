// Package auth implements signup and signin with bcrypt password hashes and JWT access tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/s1natex/tasktracker-api/internal/users"
)

var (
	ErrCredentialsTaken     = errors.New("credentials taken")
	ErrCredentialsIncorrect = errors.New("credentials incorrect")
)

type Service struct {
	users    users.Store
	tokens   *Tokens
	logger   *slog.Logger
	hashCost int
}

type Option func(*Service)

// WithHashCost overrides the bcrypt cost; tests use bcrypt.MinCost.
func WithHashCost(cost int) Option {
	return func(s *Service) {
		s.hashCost = cost
	}
}

func NewService(store users.Store, tokens *Tokens, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		users:    store,
		tokens:   tokens,
		logger:   logger,
		hashCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Signup(ctx context.Context, req SignupRequest) (TokenResponse, error) {
	if err := req.Validate(); err != nil {
		return TokenResponse{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return TokenResponse{}, fmt.Errorf("hash password: %w", err)
	}
	u, err := s.users.Create(ctx, users.NewUser{
		Email:        req.Email,
		UserName:     req.UserName,
		PasswordHash: string(hash),
	})
	if errors.Is(err, users.ErrEmailTaken) {
		return TokenResponse{}, ErrCredentialsTaken
	}
	if err != nil {
		return TokenResponse{}, fmt.Errorf("create user: %w", err)
	}
	s.logger.InfoContext(ctx, "user_signup", slog.Int64("user_id", u.ID))
	return s.issue(u)
}

// Signin reports ErrCredentialsIncorrect for both an unknown email and a wrong password.
func (s *Service) Signin(ctx context.Context, req SigninRequest) (TokenResponse, error) {
	if err := req.Validate(); err != nil {
		return TokenResponse{}, err
	}
	u, err := s.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, users.ErrNotFound) {
		return TokenResponse{}, ErrCredentialsIncorrect
	}
	if err != nil {
		return TokenResponse{}, fmt.Errorf("load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.WarnContext(ctx, "signin_failed", slog.Int64("user_id", u.ID))
		return TokenResponse{}, ErrCredentialsIncorrect
	}
	return s.issue(u)
}

func (s *Service) issue(u users.User) (TokenResponse, error) {
	tok, err := s.tokens.Issue(u.ID, u.Email)
	if err != nil {
		return TokenResponse{}, err
	}
	return TokenResponse{AccessToken: tok}, nil
}
