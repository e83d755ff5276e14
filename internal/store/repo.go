// Package store persists form, subject and questionnaire documents as
// versioned trees and runs the commit pipeline on every update. Persistence
// is optimistic: a save names the version it read, and loses to any
// concurrent writer.
package store

import (
	"context"
	"errors"

	"github.com/clinforms/clinforms/internal/doctree"
)

var (
	// ErrNotFound reports a path with no committed document.
	ErrNotFound = errors.New("document not found")
	// ErrVersionConflict reports a save that lost an optimistic race.
	ErrVersionConflict = errors.New("document version conflict")
)

// Document is one committed tree with its optimistic version.
type Document struct {
	Path    string
	Version int64
	Root    *doctree.NodeState
}

// Repository is the persistence contract. Save is compare-and-swap on the
// version the caller read: expected 0 means "must not exist yet".
type Repository interface {
	Load(ctx context.Context, path string) (*Document, error)
	Save(ctx context.Context, doc *Document, expected int64) error
	List(ctx context.Context, prefix string) ([]string, error)

	// FormsBySubject returns the committed roots of all forms attached to the
	// subject, keyed by path.
	FormsBySubject(ctx context.Context, subjectPath string) (map[string]*doctree.NodeState, error)
	// SubjectChildren lists subjects whose parent is the given subject.
	SubjectChildren(ctx context.Context, subjectPath string) ([]string, error)
	// FormsComputedFrom lists paths of forms containing an answer whose
	// computedFrom set names the given answer path.
	FormsComputedFrom(ctx context.Context, answerPath string) ([]string, error)
	// FormsCopiedFrom lists paths of forms containing a reference answer
	// copied from the given answer path.
	FormsCopiedFrom(ctx context.Context, answerPath string) ([]string, error)
}
