package repository

import (
	"context"
	"errors"

	"github.com/domperidog/docshare/internal/apperr"
	"github.com/domperidog/docshare/internal/document"
)

var (
	ErrNotFound = errors.New("document not found")

	// errAuthorAsEditor carries the same validation error the lifecycle
	// service reports, for callers that reach the store directly.
	errAuthorAsEditor = apperr.Validation("the author cannot be added as an editor")
)

// Filter selects documents. Zero-valued fields do not constrain the result.
type Filter struct {
	// Author matches the author username exactly.
	Author string
	// IDs restricts the result to these ids. Empty means no restriction, so
	// callers with an empty id set must short-circuit themselves.
	IDs []string
	// PublicOnly keeps only public documents.
	PublicOnly bool
	// ReadableBy keeps documents that are public, authored by, or edited by
	// this username.
	ReadableBy string
	// Query is a case-insensitive substring matched against title, content
	// and author.
	Query string
}

// Fields is a partial update. Nil pointers leave the field untouched.
type Fields struct {
	Title   *string
	Content *string
	Public  *bool
}

// Repository is the document store. Find results are ordered by creation
// date, newest first. FindByID and UpdateFields return (nil, nil) when the
// document does not exist.
type Repository interface {
	FindByID(ctx context.Context, id string) (*document.Document, error)
	Find(ctx context.Context, f Filter, skip, limit int64) ([]*document.Document, error)
	Count(ctx context.Context, f Filter) (int64, error)
	Insert(ctx context.Context, d *document.Document) (string, error)
	UpdateFields(ctx context.Context, id string, fields Fields) (*document.Document, error)
	// ToggleEditor atomically removes username from the editors when present
	// and adds it otherwise. It returns the updated document and whether the
	// username is now an editor, or ErrNotFound.
	ToggleEditor(ctx context.Context, id, username string) (*document.Document, bool, error)
	Delete(ctx context.Context, id string) error
}
