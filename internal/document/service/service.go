// Package service implements the document lifecycle: every mutation is
// checked against the authorization rules before it reaches the stores.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/domperidog/docshare/internal/apperr"
	"github.com/domperidog/docshare/internal/document"
	"github.com/domperidog/docshare/internal/document/authz"
	"github.com/domperidog/docshare/internal/document/repository"
	"github.com/domperidog/docshare/internal/models"
	"github.com/domperidog/docshare/internal/users"
	"github.com/domperidog/docshare/pkg/logger"
	"github.com/domperidog/docshare/pkg/metrics"
)

// Archiver keeps a copy of documents that are about to be deleted.
type Archiver interface {
	ArchiveDocument(ctx context.Context, d *document.Document) error
}

// SessionRevoker drops the refresh sessions of a deleted account.
type SessionRevoker interface {
	RevokeUser(ctx context.Context, username string) (int64, error)
}

// DeleteReport describes how far an account deletion got.
type DeleteReport struct {
	Total   int `json:"total"`
	Deleted int `json:"deleted"`
}

// Complete reports whether every authored document was removed.
func (r DeleteReport) Complete() bool { return r.Deleted == r.Total }

// Service holds only its collaborators; it is safe for concurrent use.
type Service struct {
	docs     repository.Repository
	users    users.UserRepository
	archive  Archiver
	sessions SessionRevoker
}

// Option sets an optional collaborator of the Service.
type Option func(*Service)

// WithArchiver makes the Service archive documents to a before deleting them.
func WithArchiver(a Archiver) Option {
	return func(s *Service) { s.archive = a }
}

// WithSessionRevoker drops refresh sessions when an account is deleted.
func WithSessionRevoker(r SessionRevoker) Option {
	return func(s *Service) { s.sessions = r }
}

// New returns a Service over the document and user stores.
func New(docs repository.Repository, u users.UserRepository, opts ...Option) *Service {
	s := &Service{docs: docs, users: u}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Get returns the document when actor may read it. A nil actor is anonymous.
func (s *Service) Get(ctx context.Context, actor *models.User, id string) (*document.Document, error) {
	return s.load(ctx, actor, id, authz.Read)
}

func (s *Service) Create(ctx context.Context, actor *models.User, title, content string) (d *document.Document, err error) {
	defer func() { observe("create", err) }()
	if actor == nil {
		return nil, apperr.Unauthenticated("not authenticated")
	}
	if title == "" {
		return nil, apperr.Validation("title must not be empty")
	}
	d = &document.Document{
		Title:   title,
		Content: content,
		Author:  actor.Username,
		Editors: []string{},
		Public:  true,
	}
	if _, err := s.docs.Insert(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Edit replaces the content verbatim. An empty title keeps the current one.
func (s *Service) Edit(ctx context.Context, actor *models.User, id, title, content string) (d *document.Document, err error) {
	defer func() { observe("edit", err) }()
	if _, err := s.load(ctx, actor, id, authz.Edit); err != nil {
		return nil, err
	}
	fields := repository.Fields{Content: &content}
	if title != "" {
		fields.Title = &title
	}
	return s.update(ctx, id, fields)
}

func (s *Service) ChangeVisibility(ctx context.Context, actor *models.User, id string, public bool) (d *document.Document, err error) {
	defer func() { observe("change_visibility", err) }()
	if _, err := s.load(ctx, actor, id, authz.ChangeVisibility); err != nil {
		return nil, err
	}
	return s.update(ctx, id, repository.Fields{Public: &public})
}

// SetEditor adds target to the editors when absent and removes it when
// present. The author can never become an editor.
func (s *Service) SetEditor(ctx context.Context, actor *models.User, id, target string) (d *document.Document, err error) {
	defer func() { observe("set_editor", err) }()
	doc, err := s.load(ctx, actor, id, authz.ManageEditors)
	if err != nil {
		return nil, err
	}
	if target == doc.Author {
		return nil, apperr.Validation("the author cannot be added as an editor")
	}
	u, err := s.users.FindByUsername(ctx, target)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.NotFound(apperr.ResourceUser)
	}
	d, _, err = s.docs.ToggleEditor(ctx, id, target)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound(apperr.ResourceDocument)
	}
	return d, err
}

// ToggleFavorite flips id in the actor's favorites and reports whether it is
// now a favorite. A favorite pointing at a deleted document is dropped.
func (s *Service) ToggleFavorite(ctx context.Context, actor *models.User, id string) (u *models.User, favorite bool, err error) {
	defer func() { observe("toggle_favorite", err) }()
	if actor == nil {
		return nil, false, apperr.Unauthenticated("not authenticated")
	}
	doc, err := s.docs.FindByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if doc == nil {
		if !actor.HasFavorite(id) {
			return nil, false, apperr.NotFound(apperr.ResourceDocument)
		}
		u, err = s.users.UpdateFavorites(ctx, actor.Username, users.FavoriteRemove, id)
		return u, false, s.userErr(err)
	}
	if err := s.authorize(actor, doc, authz.Read); err != nil {
		return nil, false, err
	}
	u, favorite, err = s.users.ToggleFavorite(ctx, actor.Username, id)
	return u, favorite, s.userErr(err)
}

func (s *Service) Delete(ctx context.Context, actor *models.User, id string) (err error) {
	defer func() { observe("delete", err) }()
	doc, err := s.load(ctx, actor, id, authz.Delete)
	if err != nil {
		return err
	}
	err = s.remove(ctx, doc)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(apperr.ResourceDocument)
	}
	return err
}

// DeleteAccount deletes every document the actor authored and then the
// actor's user record. When a document deletion fails the user record is
// kept so the call can be repeated; the report tells how many documents are
// already gone.
func (s *Service) DeleteAccount(ctx context.Context, actor *models.User) (report DeleteReport, err error) {
	defer func() { observe("delete_account", err) }()
	if actor == nil {
		return report, apperr.Unauthenticated("not authenticated")
	}
	authored, err := s.docs.Find(ctx, repository.Filter{Author: actor.Username}, 0, 0)
	if err != nil {
		return report, err
	}
	report.Total = len(authored)
	log := logger.With("user", actor.Username)
	for _, d := range authored {
		if err := s.remove(ctx, d); err != nil && !errors.Is(err, repository.ErrNotFound) {
			log.Errorf("account deletion stopped at document %s (%d/%d deleted): %v", d.ID, report.Deleted, report.Total, err)
			return report, fmt.Errorf("delete document %s: %w", d.ID, err)
		}
		report.Deleted++
	}
	if err := s.users.Delete(ctx, actor.Username); err != nil && !errors.Is(err, users.ErrUserNotFound) {
		return report, err
	}
	if s.sessions != nil {
		if _, err := s.sessions.RevokeUser(ctx, actor.Username); err != nil {
			log.Warnf("revoke sessions: %v", err)
		}
	}
	log.Infof("account deleted with %d documents", report.Deleted)
	return report, nil
}

// remove archives d when an archive is configured, deletes it and strips it
// from every user's favorites. Archive and favorites failures are logged only.
func (s *Service) remove(ctx context.Context, d *document.Document) error {
	log := logger.With("doc", d.ID)
	if s.archive != nil {
		if err := s.archive.ArchiveDocument(ctx, d); err != nil {
			log.Warnf("archive before delete: %v", err)
		}
	}
	if err := s.docs.Delete(ctx, d.ID); err != nil {
		return err
	}
	if n, err := s.users.RemoveFavoriteEverywhere(ctx, d.ID); err != nil {
		log.Warnf("clean favorites: %v", err)
	} else if n > 0 {
		log.Debugf("removed from %d favorites lists", n)
	}
	return nil
}

func (s *Service) load(ctx context.Context, actor *models.User, id string, op authz.Operation) (*document.Document, error) {
	doc, err := s.docs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, doc, op); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Service) authorize(actor *models.User, doc *document.Document, op authz.Operation) error {
	err := authz.Require(actor, doc, op)
	if errors.Is(err, apperr.ErrForbidden) {
		metrics.AuthorizationDenied.WithLabelValues(string(op)).Inc()
	}
	return err
}

func (s *Service) update(ctx context.Context, id string, fields repository.Fields) (*document.Document, error) {
	d, err := s.docs.UpdateFields(ctx, id, fields)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, apperr.NotFound(apperr.ResourceDocument)
	}
	return d, nil
}

func (s *Service) userErr(err error) error {
	if errors.Is(err, users.ErrUserNotFound) {
		return apperr.Unauthenticated("user no longer exists")
	}
	return err
}

func observe(op string, err error) {
	metrics.DocumentOperations.WithLabelValues(op, outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperr.ErrForbidden):
		return "forbidden"
	case errors.Is(err, apperr.ErrValidation):
		return "invalid"
	case errors.Is(err, apperr.ErrUnauthenticated):
		return "unauthenticated"
	default:
		return "error"
	}
}
