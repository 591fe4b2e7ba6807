package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nextmachines/fiuupay/internal/apperr"
)

// MaxPasswordBytes is the longest password bcrypt hashes without truncation.
const MaxPasswordBytes = 72

// Hasher turns a plaintext password into a storable hash.
type Hasher interface {
	Hash(plaintext string) (string, error)
}

// Service manages identity lifecycle.
type Service struct {
	repo   Repository
	hasher Hasher
}

// NewService creates a new identity service.
func NewService(repo Repository, hasher Hasher) *Service {
	return &Service{repo: repo, hasher: hasher}
}

// Register validates the registration, hashes the password and stores the user.
func (s *Service) Register(ctx context.Context, reg Registration) (User, error) {
	reg.Username = strings.TrimSpace(reg.Username)
	if err := validate(reg); err != nil {
		return User{}, err
	}

	hash, err := s.hasher.Hash(reg.Password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	user := User{
		ID:           uuid.New().String(),
		Username:     reg.Username,
		PasswordHash: hash,
		CompanyName:  strings.TrimSpace(reg.CompanyName),
		Address:      strings.TrimSpace(reg.Address),
		Phone:        strings.TrimSpace(reg.Phone),
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateUsername) {
			return User{}, fmt.Errorf("%w: username already exists", apperr.ErrConflict)
		}
		return User{}, err
	}

	return user, nil
}

func validate(reg Registration) error {
	switch {
	case reg.Username == "":
		return apperr.Validation("username is required")
	case reg.Password == "":
		return apperr.Validation("password is required")
	case len(reg.Password) > MaxPasswordBytes:
		return apperr.Validation(fmt.Sprintf("password must be at most %d bytes", MaxPasswordBytes))
	case strings.TrimSpace(reg.CompanyName) == "":
		return apperr.Validation("company_name is required")
	case strings.TrimSpace(reg.Address) == "":
		return apperr.Validation("address is required")
	case strings.TrimSpace(reg.Phone) == "":
		return apperr.Validation("phone is required")
	}
	return nil
}
