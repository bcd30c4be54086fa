package users

import (
	"context"
	"errors"

	"github.com/domperidog/docshare/internal/apperr"
	"github.com/domperidog/docshare/internal/models"
)

// errBadCredentials is shared by unknown users and wrong passwords so the
// response does not reveal which usernames exist.
var errBadCredentials = apperr.Unauthenticated("incorrect username or password")

// Service encapsulates user-related business logic
type Service struct {
	repo   UserRepository
	hasher Hasher
}

func NewService(r UserRepository, h Hasher) *Service {
	return &Service{repo: r, hasher: h}
}

// Register validates the credentials, hashes the password and stores a new
// user with no favorites.
func (s *Service) Register(ctx context.Context, username, password string) (*models.User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	u := &models.User{Username: username, SecretHash: hash, Favorites: []string{}}
	if _, err := s.repo.Insert(ctx, u); err != nil {
		if errors.Is(err, ErrDuplicateUsername) {
			return nil, apperr.Conflict("username %s is already registered", username)
		}
		return nil, err
	}
	return u, nil
}

// Authenticate returns the user when password matches the stored hash.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	u, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil || !s.hasher.Verify(password, u.SecretHash) {
		return nil, errBadCredentials
	}
	return u, nil
}

// GetByUsername returns NotFound for unknown users.
func (s *Service) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.NotFound(apperr.ResourceUser)
	}
	return u, nil
}
