// Package query serves the read-only, paginated views over documents.
package query

import (
	"context"
	"errors"

	"github.com/domperidog/docshare/internal/apperr"
	"github.com/domperidog/docshare/internal/document"
	"github.com/domperidog/docshare/internal/document/authz"
	"github.com/domperidog/docshare/internal/document/repository"
	"github.com/domperidog/docshare/internal/models"
	"github.com/domperidog/docshare/pkg/metrics"
	"github.com/domperidog/docshare/pkg/pagination"
)

// DocumentPage is a page of documents, newest first.
type DocumentPage struct {
	CurrentPage int                  `json:"current_page"`
	TotalPages  int                  `json:"total_pages"`
	PageSize    int                  `json:"page_size"`
	Documents   []*document.Document `json:"documents"`
}

// UserPage is a page of user profiles.
type UserPage struct {
	CurrentPage int                    `json:"current_page"`
	TotalPages  int                    `json:"total_pages"`
	PageSize    int                    `json:"page_size"`
	Users       []models.PublicProfile `json:"users"`
}

// Service serves the paginated read views over the document store.
type Service struct {
	docs repository.Repository
	cfg  pagination.Config
}

// New fills zero page sizes with defaults and rejects a default above the cap.
func New(docs repository.Repository, cfg pagination.Config) (*Service, error) {
	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return &Service{docs: docs, cfg: cfg}, nil
}

// ParsePage reads raw page and page_size values with the configured
// defaults and cap.
func (s *Service) ParsePage(page, pageSize string) (pagination.Request, error) {
	r, err := pagination.Parse(page, pageSize, s.cfg)
	if err != nil {
		return r, apperr.Validation("%s", err.Error())
	}
	return r, nil
}

// Search matches q case-insensitively against title, content and author of
// public documents. An empty q lists every public document.
func (s *Service) Search(ctx context.Context, q string, r pagination.Request) (*DocumentPage, error) {
	return s.documents(ctx, repository.Filter{Query: q, PublicOnly: true}, r)
}

func (s *Service) ListAuthored(ctx context.Context, user *models.User, r pagination.Request) (*DocumentPage, error) {
	if user == nil {
		return nil, apperr.Unauthenticated("not authenticated")
	}
	return s.documents(ctx, repository.Filter{Author: user.Username}, r)
}

// ListFavorites lists the user's favorites that still exist and that the
// user may still read.
func (s *Service) ListFavorites(ctx context.Context, user *models.User, r pagination.Request) (*DocumentPage, error) {
	if user == nil {
		return nil, apperr.Unauthenticated("not authenticated")
	}
	if err := validate(r); err != nil {
		return nil, err
	}
	if len(user.Favorites) == 0 {
		return toDocumentPage(pagination.NewPage[*document.Document](nil, 0, r)), nil
	}
	return s.documents(ctx, repository.Filter{IDs: user.Favorites, ReadableBy: user.Username}, r)
}

// ListEditors pages over the editors in the order they were added.
func (s *Service) ListEditors(ctx context.Context, actor *models.User, id string, r pagination.Request) (*UserPage, error) {
	if err := validate(r); err != nil {
		return nil, err
	}
	doc, err := s.docs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.Require(actor, doc, authz.ViewEditorList); err != nil {
		if errors.Is(err, apperr.ErrForbidden) {
			metrics.AuthorizationDenied.WithLabelValues(string(authz.ViewEditorList)).Inc()
		}
		return nil, err
	}
	window := pagination.Window(doc.Editors, r)
	profiles := make([]models.PublicProfile, 0, len(window))
	for _, name := range window {
		profiles = append(profiles, models.PublicProfile{Username: name})
	}
	p := pagination.NewPage(profiles, int64(len(doc.Editors)), r)
	return &UserPage{CurrentPage: p.CurrentPage, TotalPages: p.TotalPages, PageSize: p.PageSize, Users: p.Items}, nil
}

func (s *Service) documents(ctx context.Context, f repository.Filter, r pagination.Request) (*DocumentPage, error) {
	if err := validate(r); err != nil {
		return nil, err
	}
	count, err := s.docs.Count(ctx, f)
	if err != nil {
		return nil, err
	}
	var items []*document.Document
	if r.Offset() < count {
		if items, err = s.docs.Find(ctx, f, r.Offset(), int64(r.PageSize)); err != nil {
			return nil, err
		}
	}
	return toDocumentPage(pagination.NewPage(items, count, r)), nil
}

func validate(r pagination.Request) error {
	if err := r.Validate(); err != nil {
		return apperr.Validation("%s", err.Error())
	}
	return nil
}

func toDocumentPage(p pagination.Page[*document.Document]) *DocumentPage {
	return &DocumentPage{CurrentPage: p.CurrentPage, TotalPages: p.TotalPages, PageSize: p.PageSize, Documents: p.Items}
}
