// Package authz decides whether an actor may perform an operation on a
// document. Decisions are pure: no I/O, no side effects.
package authz

import (
	"github.com/domperidog/docshare/internal/apperr"
	"github.com/domperidog/docshare/internal/document"
	"github.com/domperidog/docshare/internal/models"
)

// Operation names an action on a document.
type Operation string

const (
	Read             Operation = "read"
	Edit             Operation = "edit"
	Delete           Operation = "delete"
	ChangeVisibility Operation = "change_visibility"
	ManageEditors    Operation = "manage_editors"
	ViewEditorList   Operation = "view_editor_list"
)

// Can reports whether actor may perform op on doc. A nil actor is anonymous
// and may only read public documents.
func Can(actor *models.User, doc *document.Document, op Operation) bool {
	if doc == nil {
		return false
	}
	isAuthor := actor != nil && actor.Username == doc.Author
	isEditor := actor != nil && doc.HasEditor(actor.Username)

	switch op {
	case Read, ViewEditorList:
		return doc.Public || isAuthor || isEditor
	case Edit:
		return isAuthor || isEditor
	case Delete, ChangeVisibility, ManageEditors:
		return isAuthor
	default:
		return false
	}
}

var denials = map[Operation]string{
	Read:             "read this document",
	Edit:             "edit this document",
	Delete:           "delete this document",
	ChangeVisibility: "change the visibility of this document",
	ManageEditors:    "manage the editors of this document",
	ViewEditorList:   "view the editors of this document",
}

// Require is Can expressed as a domain error: NotFound for a nil document,
// Forbidden when the rule denies op.
func Require(actor *models.User, doc *document.Document, op Operation) error {
	if doc == nil {
		return apperr.NotFound(apperr.ResourceDocument)
	}
	if !Can(actor, doc, op) {
		return apperr.Forbidden("not allowed to " + denials[op])
	}
	return nil
}
