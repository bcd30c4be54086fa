package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/domperidog/docshare/internal/apperr"
	"github.com/domperidog/docshare/internal/models"
	"github.com/domperidog/docshare/internal/tokens"
	"github.com/domperidog/docshare/internal/users"
	"github.com/stretchr/testify/require"
)

type fakeExternal map[string]string

func (f fakeExternal) Verify(ctx context.Context, raw string) (string, error) {
	if sub, ok := f[raw]; ok {
		return sub, nil
	}
	return "", errors.New("unknown token")
}

type fakeRevocations struct {
	revoked map[string]bool
	err     error
}

func (f *fakeRevocations) Contains(ctx context.Context, token string) (bool, error) {
	return f.revoked[token], f.err
}

type brokenLookup struct{ err error }

func (b brokenLookup) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return nil, b.err
}

func setup(t *testing.T) (*tokens.Issuer, *users.MemoryUserRepository) {
	t.Helper()
	repo := users.NewMemoryUserRepository()
	_, err := repo.Insert(context.Background(), &models.User{Username: "alice"})
	require.NoError(t, err)
	return tokens.NewIssuer("resolver-test-secret-xxxxxxxxxxxxxxxx"), repo
}

func TestResolve_LocalToken(t *testing.T) {
	iss, repo := setup(t)
	r := NewResolver(iss, repo)
	tok, err := iss.Issue("alice", time.Minute)
	require.NoError(t, err)

	u, err := r.Resolve(context.Background(), tok)
	require.NoError(t, err)
	require.Equal(t, "alice", u.Username)
}

func TestResolve_Failures(t *testing.T) {
	iss, repo := setup(t)
	r := NewResolver(iss, repo)
	ghost, err := iss.Issue("ghost", time.Minute)
	require.NoError(t, err)
	expired, err := iss.Issue("alice", -time.Minute)
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"empty":        "",
		"malformed":    "not-a-token",
		"expired":      expired,
		"deleted user": ghost,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), raw)
			require.ErrorIs(t, err, apperr.ErrUnauthenticated)
		})
	}
}

func TestResolve_ExternalFallback(t *testing.T) {
	iss, repo := setup(t)
	r := NewResolver(iss, repo, WithExternal(fakeExternal{"idp-token": "alice"}))

	u, err := r.Resolve(context.Background(), "idp-token")
	require.NoError(t, err)
	require.Equal(t, "alice", u.Username)

	_, err = r.Resolve(context.Background(), "other")
	require.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestResolve_Revoked(t *testing.T) {
	iss, repo := setup(t)
	tok, err := iss.Issue("alice", time.Minute)
	require.NoError(t, err)

	r := NewResolver(iss, repo, WithRevocationList(&fakeRevocations{revoked: map[string]bool{tok: true}}))
	_, err = r.Resolve(context.Background(), tok)
	require.ErrorIs(t, err, apperr.ErrUnauthenticated)

	boom := errors.New("redis down")
	r = NewResolver(iss, repo, WithRevocationList(&fakeRevocations{err: boom}))
	_, err = r.Resolve(context.Background(), tok)
	require.ErrorIs(t, err, boom)
}

func TestResolve_StoreErrorIsNotUnauthenticated(t *testing.T) {
	iss, _ := setup(t)
	boom := errors.New("mongo down")
	r := NewResolver(iss, brokenLookup{err: boom})
	tok, err := iss.Issue("alice", time.Minute)
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), tok)
	require.ErrorIs(t, err, boom)
	require.False(t, apperr.IsDomain(err))
}
