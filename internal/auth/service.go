package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nextmachines/fiuupay/internal/apperr"
	"github.com/nextmachines/fiuupay/internal/identity"
)

// UserFinder is the read side of the user store the gateway depends on. It
// must return identity.ErrNotFound when the username is absent.
type UserFinder interface {
	FindByUsername(ctx context.Context, username string) (identity.User, error)
}

// Token is the login response handed back to clients.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in,omitempty"`
}

// Service authenticates logins and resolves bearer tokens to users.
type Service struct {
	users  UserFinder
	hasher *PasswordHasher
	tokens *TokenService

	// placeholder is compared against when the username is unknown.
	placeholder string
}

// NewService wires the gateway around its collaborators.
func NewService(users UserFinder, hasher *PasswordHasher, tokens *TokenService) *Service {
	placeholder, _ := hasher.Hash("placeholder-password")
	return &Service{users: users, hasher: hasher, tokens: tokens, placeholder: placeholder}
}

// Login verifies the credentials and issues a token for the username.
func (s *Service) Login(ctx context.Context, username, password string) (Token, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Token{}, apperr.ErrAuthFailed
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, identity.ErrNotFound) {
			return Token{}, fmt.Errorf("find user: %w", err)
		}
		// Match the cost of a real comparison.
		s.hasher.Verify(password, s.placeholder)
		return Token{}, apperr.ErrAuthFailed
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return Token{}, apperr.ErrAuthFailed
	}

	signed, err := s.tokens.Issue(user.Username)
	if err != nil {
		return Token{}, fmt.Errorf("issue token: %w", err)
	}
	return Token{
		AccessToken: signed,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.tokens.TTL().Seconds()),
	}, nil
}

// Authorize verifies the bearer token and loads the user it names.
func (s *Service) Authorize(ctx context.Context, token string) (identity.User, error) {
	subject, err := s.tokens.Verify(strings.TrimSpace(token))
	if err != nil {
		return identity.User{}, fmt.Errorf("%w: %w", apperr.ErrUnauthorized, err)
	}

	user, err := s.users.FindByUsername(ctx, subject)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return identity.User{}, apperr.ErrUserNotFound
		}
		return identity.User{}, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}
