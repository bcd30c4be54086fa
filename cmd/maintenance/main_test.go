package main

import (
	"context"
	"testing"

	"github.com/domperidog/docshare/internal/document"
	"github.com/domperidog/docshare/internal/document/repository"
	"github.com/domperidog/docshare/internal/models"
	"github.com/domperidog/docshare/internal/users"
	"github.com/stretchr/testify/require"
)

func TestCleanDanglingFavorites(t *testing.T) {
	ctx := context.Background()
	us := users.NewMemoryUserRepository()
	docs := repository.NewMemoryRepo()

	kept, err := docs.Insert(ctx, &document.Document{Title: "kept", Author: "alice", Public: true})
	require.NoError(t, err)
	_, err = us.Insert(ctx, &models.User{Username: "alice", Favorites: []string{kept, "gone-1"}})
	require.NoError(t, err)
	_, err = us.Insert(ctx, &models.User{Username: "bobby", Favorites: []string{"gone-1", "gone-2"}})
	require.NoError(t, err)
	_, err = us.Insert(ctx, &models.User{Username: "carol"})
	require.NoError(t, err)

	n, err := cleanDanglingFavorites(ctx, us, docs)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	alice, err := us.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, []string{kept}, alice.Favorites)
	bobby, err := us.FindByUsername(ctx, "bobby")
	require.NoError(t, err)
	require.Empty(t, bobby.Favorites)

	// a second run finds nothing
	n, err = cleanDanglingFavorites(ctx, us, docs)
	require.NoError(t, err)
	require.Zero(t, n)
}
