package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/clinforms/clinforms/internal/doctree"
	"github.com/clinforms/clinforms/internal/forms"
)

// memRepo is the in-memory repository used by tests and --memory mode.
// NodeState snapshots are immutable, so documents are shared without copying.
type memRepo struct {
	mu    sync.RWMutex
	docs  map[string]*Document
	links map[string][]answerLink // by form path
}

func NewMemRepo() Repository {
	return &memRepo{
		docs:  make(map[string]*Document),
		links: make(map[string][]answerLink),
	}
}

func (r *memRepo) Load(ctx context.Context, path string) (*Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[path]
	if !ok {
		return nil, ErrNotFound
	}
	out := *doc
	return &out, nil
}

func (r *memRepo) Save(ctx context.Context, doc *Document, expected int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.docs[doc.Path]
	if !ok && expected != 0 {
		return ErrVersionConflict
	}
	if ok && current.Version != expected {
		return ErrVersionConflict
	}
	doc.Version = expected + 1
	stored := *doc
	r.docs[doc.Path] = &stored
	r.links[doc.Path] = answerLinks(doc.Path, doc.Root)
	return nil
}

func (r *memRepo) List(ctx context.Context, prefix string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for path := range r.docs {
		if strings.HasPrefix(path, prefix) {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *memRepo) FormsBySubject(ctx context.Context, subjectPath string) (map[string]*doctree.NodeState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*doctree.NodeState)
	for path, doc := range r.docs {
		if forms.IsForm(doc.Root) && forms.SubjectPath(doc.Root) == subjectPath {
			out[path] = doc.Root
		}
	}
	return out, nil
}

func (r *memRepo) SubjectChildren(ctx context.Context, subjectPath string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for path, doc := range r.docs {
		if forms.IsSubject(doc.Root) && doc.Root.StringProperty(forms.PropParent) == subjectPath {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *memRepo) FormsComputedFrom(ctx context.Context, answerPath string) ([]string, error) {
	return r.formsLinkedFrom(answerPath, linkComputed), nil
}

func (r *memRepo) FormsCopiedFrom(ctx context.Context, answerPath string) ([]string, error) {
	return r.formsLinkedFrom(answerPath, linkCopied), nil
}

func (r *memRepo) formsLinkedFrom(answerPath, kind string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	var out []string
	for formPath, links := range r.links {
		for _, l := range links {
			if l.kind != kind || l.sourcePath != answerPath {
				continue
			}
			if _, dup := seen[formPath]; dup {
				continue
			}
			seen[formPath] = struct{}{}
			out = append(out, formPath)
		}
	}
	sort.Strings(out)
	return out
}
