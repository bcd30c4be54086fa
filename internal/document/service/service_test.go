package service

import (
	"context"
	"errors"
	"testing"

	"github.com/domperidog/docshare/internal/apperr"
	"github.com/domperidog/docshare/internal/document"
	"github.com/domperidog/docshare/internal/document/repository"
	"github.com/domperidog/docshare/internal/models"
	"github.com/domperidog/docshare/internal/users"
	"github.com/domperidog/docshare/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc   *Service
	docs  *repository.MemoryRepo
	users *users.MemoryUserRepository
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{docs: repository.NewMemoryRepo(), users: users.NewMemoryUserRepository()}
	for _, name := range []string{"alice", "bob", "carol"} {
		_, err := f.users.Insert(context.Background(), &models.User{Username: name})
		require.NoError(t, err)
	}
	f.svc = New(f.docs, f.users, opts...)
	return f
}

// user re-reads the stored record, the way the session resolver would.
func (f *fixture) user(t *testing.T, name string) *models.User {
	t.Helper()
	u, err := f.users.FindByUsername(context.Background(), name)
	require.NoError(t, err)
	require.NotNil(t, u)
	return u
}

type failingDeletes struct {
	*repository.MemoryRepo
	failOn string
}

func (f *failingDeletes) Delete(ctx context.Context, id string) error {
	if id == f.failOn {
		return errors.New("connection reset")
	}
	return f.MemoryRepo.Delete(ctx, id)
}

type recordingArchive struct {
	ids []string
	err error
}

func (r *recordingArchive) ArchiveDocument(ctx context.Context, d *document.Document) error {
	r.ids = append(r.ids, d.ID)
	return r.err
}

type recordingRevoker struct{ users []string }

func (r *recordingRevoker) RevokeUser(ctx context.Context, username string) (int64, error) {
	r.users = append(r.users, username)
	return 1, nil
}

func TestCreate_Defaults(t *testing.T) {
	f := newFixture(t)
	d, err := f.svc.Create(context.Background(), f.user(t, "alice"), "Notes", "draft")
	require.NoError(t, err)
	require.NotEmpty(t, d.ID)
	require.Equal(t, "alice", d.Author)
	require.Empty(t, d.Editors)
	require.True(t, d.Public)
	require.False(t, d.CreationDate.IsZero())

	stored, err := f.docs.FindByID(context.Background(), d.ID)
	require.NoError(t, err)
	require.Equal(t, "draft", stored.Content)
}

func TestCreate_EmptyTitle(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), f.user(t, "alice"), "", "body")
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.Create(context.Background(), nil, "t", "body")
	require.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestEdit_ForbiddenUntilEditorAdded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	d, err := f.svc.Create(ctx, alice, "Notes", "draft")
	require.NoError(t, err)

	_, err = f.svc.Edit(ctx, bob, d.ID, "", "bob was here")
	require.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.SetEditor(ctx, alice, d.ID, "bob")
	require.NoError(t, err)

	edited, err := f.svc.Edit(ctx, bob, d.ID, "", "bob was here")
	require.NoError(t, err)
	require.Equal(t, "bob was here", edited.Content)
	require.Equal(t, "Notes", edited.Title)
}

func TestEdit_TitleSentinelAndVerbatimContent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice")
	d, err := f.svc.Create(ctx, alice, "Notes", "draft")
	require.NoError(t, err)

	got, err := f.svc.Edit(ctx, alice, d.ID, "", "")
	require.NoError(t, err)
	require.Equal(t, "Notes", got.Title)
	require.Equal(t, "", got.Content)

	got, err = f.svc.Edit(ctx, alice, d.ID, "Renamed", "  padded  ")
	require.NoError(t, err)
	require.Equal(t, "Renamed", got.Title)
	require.Equal(t, "  padded  ", got.Content)

	_, err = f.svc.Edit(ctx, alice, "missing", "x", "y")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestChangeVisibility_HidesFromOthers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	d, err := f.svc.Create(ctx, alice, "Notes", "draft")
	require.NoError(t, err)

	_, err = f.svc.ChangeVisibility(ctx, bob, d.ID, false)
	require.ErrorIs(t, err, apperr.ErrForbidden)

	hidden, err := f.svc.ChangeVisibility(ctx, alice, d.ID, false)
	require.NoError(t, err)
	require.False(t, hidden.Public)

	_, err = f.svc.Get(ctx, nil, d.ID)
	require.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.svc.Get(ctx, bob, d.ID)
	require.ErrorIs(t, err, apperr.ErrForbidden)
	own, err := f.svc.Get(ctx, alice, d.ID)
	require.NoError(t, err)
	require.Equal(t, d.ID, own.ID)

	_, err = f.svc.Get(ctx, alice, "missing")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSetEditor_InvolutionAndAuthorExcluded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice")
	d, err := f.svc.Create(ctx, alice, "Notes", "")
	require.NoError(t, err)
	_, err = f.svc.SetEditor(ctx, alice, d.ID, "carol")
	require.NoError(t, err)

	added, err := f.svc.SetEditor(ctx, alice, d.ID, "bob")
	require.NoError(t, err)
	require.Equal(t, []string{"carol", "bob"}, added.Editors)

	removed, err := f.svc.SetEditor(ctx, alice, d.ID, "bob")
	require.NoError(t, err)
	require.Equal(t, []string{"carol"}, removed.Editors)

	_, err = f.svc.SetEditor(ctx, alice, d.ID, "alice")
	require.ErrorIs(t, err, apperr.ErrValidation)
	after, err := f.docs.FindByID(ctx, d.ID)
	require.NoError(t, err)
	require.NotContains(t, after.Editors, "alice")
}

func TestSetEditor_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	d, err := f.svc.Create(ctx, alice, "Notes", "")
	require.NoError(t, err)

	_, err = f.svc.SetEditor(ctx, alice, "missing", "bob")
	require.ErrorIs(t, err, apperr.ErrNotFound)
	require.Equal(t, apperr.ResourceDocument, apperr.ResourceOf(err))

	_, err = f.svc.SetEditor(ctx, alice, d.ID, "ghost")
	require.ErrorIs(t, err, apperr.ErrNotFound)
	require.Equal(t, apperr.ResourceUser, apperr.ResourceOf(err))

	// editors may edit but not manage editors
	_, err = f.svc.SetEditor(ctx, alice, d.ID, "bob")
	require.NoError(t, err)
	_, err = f.svc.SetEditor(ctx, bob, d.ID, "carol")
	require.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestToggleFavorite_Involution(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	d, err := f.svc.Create(ctx, f.user(t, "alice"), "Notes", "")
	require.NoError(t, err)

	u, fav, err := f.svc.ToggleFavorite(ctx, f.user(t, "bob"), d.ID)
	require.NoError(t, err)
	require.True(t, fav)
	require.Equal(t, []string{d.ID}, u.Favorites)

	u, fav, err = f.svc.ToggleFavorite(ctx, f.user(t, "bob"), d.ID)
	require.NoError(t, err)
	require.False(t, fav)
	require.Empty(t, u.Favorites)
}

func TestToggleFavorite_PrivateAndMissing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice")
	d, err := f.svc.Create(ctx, alice, "Notes", "")
	require.NoError(t, err)
	_, err = f.svc.ChangeVisibility(ctx, alice, d.ID, false)
	require.NoError(t, err)

	_, _, err = f.svc.ToggleFavorite(ctx, f.user(t, "bob"), d.ID)
	require.ErrorIs(t, err, apperr.ErrForbidden)

	_, _, err = f.svc.ToggleFavorite(ctx, f.user(t, "bob"), "missing")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestToggleFavorite_SelfHealsDanglingFavorite(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.users.UpdateFavorites(ctx, "bob", users.FavoriteAdd, "gone")
	require.NoError(t, err)

	u, fav, err := f.svc.ToggleFavorite(ctx, f.user(t, "bob"), "gone")
	require.NoError(t, err)
	require.False(t, fav)
	require.Empty(t, u.Favorites)
}

func TestDelete_CleansFavoritesAndArchives(t *testing.T) {
	ctx := context.Background()
	archive := &recordingArchive{err: errors.New("bucket unavailable")}
	f := newFixture(t, WithArchiver(archive))
	alice := f.user(t, "alice")
	d, err := f.svc.Create(ctx, alice, "Notes", "")
	require.NoError(t, err)
	_, _, err = f.svc.ToggleFavorite(ctx, f.user(t, "bob"), d.ID)
	require.NoError(t, err)

	require.ErrorIs(t, f.svc.Delete(ctx, f.user(t, "bob"), d.ID), apperr.ErrForbidden)
	require.NoError(t, f.svc.Delete(ctx, alice, d.ID))
	require.Equal(t, []string{d.ID}, archive.ids)

	gone, err := f.docs.FindByID(ctx, d.ID)
	require.NoError(t, err)
	require.Nil(t, gone)
	require.Empty(t, f.user(t, "bob").Favorites)

	require.ErrorIs(t, f.svc.Delete(ctx, alice, d.ID), apperr.ErrNotFound)
}

func TestDeleteAccount_RemovesAuthoredDocuments(t *testing.T) {
	ctx := context.Background()
	revoker := &recordingRevoker{}
	f := newFixture(t, WithSessionRevoker(revoker))
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	for _, title := range []string{"a", "b", "c"} {
		_, err := f.svc.Create(ctx, alice, title, "")
		require.NoError(t, err)
	}
	kept, err := f.svc.Create(ctx, bob, "bob's", "")
	require.NoError(t, err)

	report, err := f.svc.DeleteAccount(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, DeleteReport{Total: 3, Deleted: 3}, report)
	require.True(t, report.Complete())
	require.Equal(t, []string{"alice"}, revoker.users)

	gone, err := f.users.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Nil(t, gone)
	n, err := f.docs.Count(ctx, repository.Filter{})
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	still, err := f.docs.FindByID(ctx, kept.ID)
	require.NoError(t, err)
	require.NotNil(t, still)
}

func TestDeleteAccount_PartialFailureKeepsUser(t *testing.T) {
	ctx := context.Background()
	mem := repository.NewMemoryRepo()
	uRepo := users.NewMemoryUserRepository()
	_, err := uRepo.Insert(ctx, &models.User{Username: "alice"})
	require.NoError(t, err)
	docs := &failingDeletes{MemoryRepo: mem}
	svc := New(docs, uRepo)
	alice := &models.User{Username: "alice"}

	var ids []string
	for _, title := range []string{"first", "second", "third"} {
		d, err := svc.Create(ctx, alice, title, "")
		require.NoError(t, err)
		ids = append(ids, d.ID)
	}
	// listing is newest first, so the middle document is the second deletion
	docs.failOn = ids[1]

	report, err := svc.DeleteAccount(ctx, alice)
	require.Error(t, err)
	require.False(t, apperr.IsDomain(err))
	require.Equal(t, DeleteReport{Total: 3, Deleted: 1}, report)
	require.False(t, report.Complete())

	still, err := uRepo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, still)
}

func TestMetrics_CountOutcomesAndDenials(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	d, err := f.svc.Create(ctx, f.user(t, "alice"), "Notes", "")
	require.NoError(t, err)

	okBefore := testutil.ToFloat64(metrics.DocumentOperations.WithLabelValues("edit", "ok"))
	deniedBefore := testutil.ToFloat64(metrics.AuthorizationDenied.WithLabelValues("edit"))
	forbiddenBefore := testutil.ToFloat64(metrics.DocumentOperations.WithLabelValues("edit", "forbidden"))

	_, err = f.svc.Edit(ctx, f.user(t, "alice"), d.ID, "", "x")
	require.NoError(t, err)
	_, err = f.svc.Edit(ctx, f.user(t, "carol"), d.ID, "", "x")
	require.Error(t, err)

	require.Equal(t, okBefore+1, testutil.ToFloat64(metrics.DocumentOperations.WithLabelValues("edit", "ok")))
	require.Equal(t, forbiddenBefore+1, testutil.ToFloat64(metrics.DocumentOperations.WithLabelValues("edit", "forbidden")))
	require.Equal(t, deniedBefore+1, testutil.ToFloat64(metrics.AuthorizationDenied.WithLabelValues("edit")))
}
