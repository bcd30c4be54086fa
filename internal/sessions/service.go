package sessions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Service issues, validates and revokes refresh sessions
type Service struct {
	repo Repository
}

func NewService(r Repository) *Service { return &Service{repo: r} }

// CreateSession stores a new refresh session and returns the refresh token
func (s *Service) CreateSession(ctx context.Context, username string, ttl time.Duration) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	now := time.Now().UTC()
	sess := &Session{
		RefreshToken: hex.EncodeToString(b),
		Username:     username,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return "", err
	}
	return sess.RefreshToken, nil
}

// ValidateRefresh returns the session if the refresh token is valid and not
// expired, or nil otherwise.
func (s *Service) ValidateRefresh(ctx context.Context, refresh string) (*Session, error) {
	sess, err := s.repo.GetByRefresh(ctx, refresh)
	if err != nil || sess == nil {
		return nil, err
	}
	if sess.expired(time.Now().UTC()) {
		_ = s.repo.DeleteByRefresh(ctx, refresh)
		return nil, nil
	}
	return sess, nil
}

func (s *Service) DeleteRefresh(ctx context.Context, refresh string) error {
	return s.repo.DeleteByRefresh(ctx, refresh)
}

// RevokeUser drops every refresh session of username.
func (s *Service) RevokeUser(ctx context.Context, username string) (int64, error) {
	return s.repo.DeleteByUsername(ctx, username)
}
