// Package auth resolves bearer credentials into the acting user.
package auth

import (
	"context"
	"fmt"

	"github.com/domperidog/docshare/internal/apperr"
	"github.com/domperidog/docshare/internal/models"
)

// TokenVerifier verifies locally issued tokens.
type TokenVerifier interface {
	Verify(raw string) (string, error)
}

// ExternalVerifier verifies tokens from an external identity provider.
type ExternalVerifier interface {
	Verify(ctx context.Context, raw string) (string, error)
}

// UserLookup is the identity store read used by the resolver.
type UserLookup interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// RevocationList reports revoked access tokens.
type RevocationList interface {
	Contains(ctx context.Context, token string) (bool, error)
}

var errNotAuthenticated = apperr.Unauthenticated("could not validate credentials")

// Resolver turns a raw bearer token into a stored user.
type Resolver struct {
	local    TokenVerifier
	external ExternalVerifier
	users    UserLookup
	revoked  RevocationList
}

type Option func(*Resolver)

// WithExternal adds a fallback verifier tried when local verification fails.
func WithExternal(v ExternalVerifier) Option {
	return func(r *Resolver) { r.external = v }
}

func WithRevocationList(l RevocationList) Option {
	return func(r *Resolver) { r.revoked = l }
}

func NewResolver(local TokenVerifier, users UserLookup, opts ...Option) *Resolver {
	r := &Resolver{local: local, users: users}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve returns the user named by raw's subject. Malformed, expired,
// revoked or orphaned credentials yield an Unauthenticated error; store
// failures are returned as they are.
func (r *Resolver) Resolve(ctx context.Context, raw string) (*models.User, error) {
	if raw == "" {
		return nil, errNotAuthenticated
	}
	if r.revoked != nil {
		revoked, err := r.revoked.Contains(ctx, raw)
		if err != nil {
			return nil, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return nil, errNotAuthenticated
		}
	}
	username, ok := r.subject(ctx, raw)
	if !ok {
		return nil, errNotAuthenticated
	}
	u, err := r.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errNotAuthenticated
	}
	return u, nil
}

func (r *Resolver) subject(ctx context.Context, raw string) (string, bool) {
	if r.local != nil {
		if sub, err := r.local.Verify(raw); err == nil {
			return sub, true
		}
	}
	if r.external != nil {
		if sub, err := r.external.Verify(ctx, raw); err == nil {
			return sub, true
		}
	}
	return "", false
}
