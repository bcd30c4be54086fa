package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCreateAndValidateSession(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	r, err := svc.CreateSession(ctx, "alice", time.Hour)
	require.NoError(t, err)
	require.Len(t, r, 64)

	sess, err := svc.ValidateRefresh(ctx, r)
	require.NoError(t, err)
	require.NotNil(t, sess)
	require.Equal(t, "alice", sess.Username)

	require.NoError(t, svc.DeleteRefresh(ctx, r))
	sess2, err := svc.ValidateRefresh(ctx, r)
	require.NoError(t, err)
	require.Nil(t, sess2)
}

func TestValidateRefresh_Expired(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()
	r, err := svc.CreateSession(ctx, "alice", -time.Minute)
	require.NoError(t, err)

	sess, err := svc.ValidateRefresh(ctx, r)
	require.NoError(t, err)
	require.Nil(t, sess)
	require.Empty(t, repo.store)
}

func TestRevokeUser(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	a1, err := svc.CreateSession(ctx, "alice", time.Hour)
	require.NoError(t, err)
	_, err = svc.CreateSession(ctx, "alice", time.Hour)
	require.NoError(t, err)
	b1, err := svc.CreateSession(ctx, "bob", time.Hour)
	require.NoError(t, err)

	n, err := svc.RevokeUser(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	gone, err := svc.ValidateRefresh(ctx, a1)
	require.NoError(t, err)
	require.Nil(t, gone)
	kept, err := svc.ValidateRefresh(ctx, b1)
	require.NoError(t, err)
	require.NotNil(t, kept)
}
