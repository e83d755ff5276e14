package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/clinforms/clinforms/internal/commit"
	"github.com/clinforms/clinforms/internal/doctree"
	"github.com/clinforms/clinforms/internal/forms/editors"
)

// ChangeEvent announces one committed document change to subscribers.
type ChangeEvent struct {
	Path    string
	Version int64
	User    string
}

// Store runs the commit pipeline over every update and persists the result
// with optimistic versioning. A save that loses the version race re-reads and
// re-runs the whole update once before giving up.
type Store struct {
	repo     Repository
	pipeline *commit.Pipeline
	log      zerolog.Logger

	mu   sync.Mutex
	subs []chan ChangeEvent
}

// New builds a store with the standard editor chains. The chains run in
// order: structure first so the others see a complete tree, ordering last.
func New(repo Repository, log zerolog.Logger) *Store {
	return NewWithPipeline(repo, log, commit.NewPipeline(
		editors.StructureProvider{},
		editors.ReferenceProvider{Scope: editors.DefaultReferenceScope},
		editors.ComputedProvider{},
		editors.IdentifierProvider{},
		editors.BacklinkProvider{},
		editors.SortProvider{},
	))
}

func NewWithPipeline(repo Repository, log zerolog.Logger, pipeline *commit.Pipeline) *Store {
	return &Store{repo: repo, pipeline: pipeline, log: log}
}

// Repo exposes the underlying repository for read-side collaborators.
func (s *Store) Repo() Repository { return s.repo }

// Load returns the committed document at path.
func (s *Store) Load(ctx context.Context, path string) (*Document, error) {
	return s.repo.Load(ctx, path)
}

// Update stages a mutation of the document at path, runs the commit pipeline
// over it, and saves the result. The mutate callback receives a builder over
// the committed state (empty for a new document). On a version conflict the
// whole update re-runs once against the fresh state.
func (s *Store) Update(ctx context.Context, path, user string, mutate func(b *doctree.Builder) error) (*Document, error) {
	for attempt := 0; ; attempt++ {
		doc, changed, err := s.attempt(ctx, path, user, mutate)
		if errors.Is(err, ErrVersionConflict) && attempt == 0 {
			s.log.Warn().Str("path", path).Msg("version conflict, retrying update")
			continue
		}
		if err != nil {
			return nil, err
		}
		if changed {
			s.publish(ChangeEvent{Path: path, Version: doc.Version, User: user})
		}
		return doc, nil
	}
}

func (s *Store) attempt(ctx context.Context, path, user string, mutate func(b *doctree.Builder) error) (*Document, bool, error) {
	var (
		before  *doctree.NodeState
		version int64
	)
	doc, err := s.repo.Load(ctx, path)
	switch {
	case err == nil:
		before, version = doc.Root, doc.Version
	case errors.Is(err, ErrNotFound):
	default:
		return nil, false, err
	}

	builder := doctree.NewBuilder(before)
	if err := mutate(builder); err != nil {
		return nil, false, err
	}

	tx := &commit.TxContext{
		Ctx:    ctx,
		Path:   path,
		User:   user,
		Lookup: &storeLookup{repo: s.repo},
		Log:    s.log.With().Str("path", path).Logger(),
		Values: make(map[string]any),
	}
	if err := s.pipeline.Process(tx, before, builder); err != nil {
		return nil, false, err
	}

	after := builder.Snapshot()
	if after == nil {
		return nil, false, fmt.Errorf("update of %s produced no document", path)
	}
	// A commit that changed nothing is not persisted, so derived-value
	// recomputation reaches a fixpoint instead of bumping versions forever.
	if before != nil && before.Equal(after) {
		return &Document{Path: path, Version: version, Root: before}, false, nil
	}
	out := &Document{Path: path, Root: after}
	if err := s.repo.Save(ctx, out, version); err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// Subscribe returns a channel of committed changes. A slow subscriber drops
// events rather than blocking commits.
func (s *Store) Subscribe() <-chan ChangeEvent {
	ch := make(chan ChangeEvent, 256)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

func (s *Store) publish(ev ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			s.log.Warn().Str("path", ev.Path).Msg("subscriber queue full, dropping change event")
		}
	}
}

// storeLookup adapts the repository to the commit-time read contract. It is
// the privileged handle: it reads straight from the repository, bypassing any
// caller-level access checks.
type storeLookup struct {
	repo Repository
}

func (l *storeLookup) Document(ctx context.Context, path string) (*doctree.NodeState, error) {
	doc, err := l.repo.Load(ctx, path)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.Root, nil
}

func (l *storeLookup) FormsBySubject(ctx context.Context, subjectPath string) (map[string]*doctree.NodeState, error) {
	return l.repo.FormsBySubject(ctx, subjectPath)
}

func (l *storeLookup) SubjectChildren(ctx context.Context, subjectPath string) ([]string, error) {
	return l.repo.SubjectChildren(ctx, subjectPath)
}
