// Package propagate reacts to committed form changes: when an answer that
// other answers compute from (or were copied from) changes, the dependent
// forms are checked out, re-evaluated and saved again, outside the
// triggering commit.
package propagate

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/clinforms/clinforms/internal/doctree"
	"github.com/clinforms/clinforms/internal/forms"
	"github.com/clinforms/clinforms/internal/store"
)

// ServiceUser is the account recomputed commits are attributed to.
const ServiceUser = "forms-propagator"

// Propagator consumes the store's change feed and recomputes dependent
// answers. Each reaction runs its own store updates; convergence comes from
// the store refusing to persist a commit that changed nothing.
type Propagator struct {
	store *store.Store
	log   zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(st *store.Store, log zerolog.Logger) *Propagator {
	return &Propagator{store: st, log: log.With().Str("component", "propagator").Logger()}
}

// Start subscribes to the store and reacts until Stop is called or the
// parent context ends.
func (p *Propagator) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	p.cancel = cancel
	events := p.store.Subscribe()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-events:
				p.React(ctx, ev)
			}
		}
	}()
}

// Stop ends the reaction loop and waits for the in-flight reaction.
func (p *Propagator) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

// React processes one committed change: it finds every form holding answers
// derived from the changed form's answers and recomputes them. A form is
// visited at most once per reaction.
func (p *Propagator) React(ctx context.Context, ev store.ChangeEvent) {
	doc, err := p.store.Load(ctx, ev.Path)
	if err != nil {
		p.log.Error().Err(err).Str("path", ev.Path).Msg("cannot load changed document")
		return
	}
	if !forms.IsForm(doc.Root) {
		return
	}

	changed := make(map[string]struct{})
	forms.WalkAnswers(doc.Root, func(rel string, _ *doctree.NodeState) {
		changed[ev.Path+"/"+rel] = struct{}{}
	})

	// The changed form itself is a legitimate dependent: its own computed
	// answers stay stale in the triggering commit when only their inputs
	// changed.
	visited := make(map[string]struct{})
	for source := range changed {
		for _, kind := range []func(context.Context, string) ([]string, error){
			p.store.Repo().FormsComputedFrom,
			p.store.Repo().FormsCopiedFrom,
		} {
			dependents, err := kind(ctx, source)
			if err != nil {
				p.log.Error().Err(err).Str("source", source).Msg("dependent lookup failed")
				continue
			}
			for _, formPath := range dependents {
				if _, seen := visited[formPath]; seen {
					continue
				}
				visited[formPath] = struct{}{}
				p.recompute(ctx, formPath, changed)
			}
		}
	}
}

// recompute clears every derived answer of the target form whose sources
// intersect the changed set, then lets the commit pipeline fill them back in
// from current values.
func (p *Propagator) recompute(ctx context.Context, formPath string, changed map[string]struct{}) {
	_, err := p.store.Update(ctx, formPath, ServiceUser, func(b *doctree.Builder) error {
		forms.WalkAnswers(b.Base(), func(rel string, answer *doctree.NodeState) {
			target := forms.BuilderAt(b, rel)
			if copied := answer.StringProperty(forms.PropCopiedFrom); copied != "" {
				if _, ok := changed[copied]; ok {
					target.RemoveProperty(forms.PropValue)
					target.RemoveProperty(forms.PropCopiedFrom)
				}
				return
			}
			if v, ok := answer.Property(forms.PropComputedFrom); ok {
				for _, source := range computedSources(v) {
					if _, hit := changed[source]; hit {
						target.RemoveProperty(forms.PropValue)
						return
					}
				}
			}
		})
		return nil
	})
	if err != nil {
		p.log.Error().Err(err).Str("form", formPath).Msg("recompute failed, dropping")
		return
	}
	p.log.Debug().Str("form", formPath).Msg("dependent form recomputed")
}

func computedSources(v doctree.Value) []string {
	raw, ok := v.Raw().([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, sok := item.(string); sok {
			out = append(out, s)
		}
	}
	return out
}
