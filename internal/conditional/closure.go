// Package conditional computes the closure of a dependency set under
// extension dependency conditions.
package conditional

import (
	"context"
	"fmt"

	"github.com/specialistvlad/extforge/internal/coords"
	"github.com/specialistvlad/extforge/internal/ctxlog"
	"github.com/specialistvlad/extforge/internal/resolver"
	"github.com/specialistvlad/extforge/internal/workspace"
)

// Provider is the dependency graph provider. *workspace.Workspace
// implements it.
type Provider interface {
	Candidate(c coords.ArtifactCoords) (workspace.Candidate, error)
	DependenciesOf(c workspace.Candidate) ([]coords.ArtifactCoords, error)
}

// ExtensionResolver turns candidates into extension dependencies.
// *resolver.Resolver implements it.
type ExtensionResolver interface {
	Resolve(ctx context.Context, cand workspace.Candidate) (*resolver.ExtensionDependency, error)
}

// Engine computes closures. It holds no state between calls beyond what
// the resolver memoizes.
type Engine struct {
	provider Provider
	resolver ExtensionResolver
	devMode  bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithDevMode makes the engine walk conditional dev dependencies.
func WithDevMode(enabled bool) Option {
	return func(e *Engine) { e.devMode = enabled }
}

// New creates an engine.
func New(provider Provider, res ExtensionResolver, opts ...Option) *Engine {
	e := &Engine{provider: provider, resolver: res}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// scope is how far an extension's activation reaches.
type scope int

const (
	inactive scope = iota
	devScope
	runtimeScope
)

// walk is the state of a single Closure call.
type walk struct {
	e     *Engine
	ctx   context.Context
	order []*Artifact
	byKey map[coords.ArtifactKey]*Artifact
	// extensions and entries are parallel: entries[i] is the resolved set
	// entry that led to extensions[i].
	extensions []*resolver.ExtensionDependency
	entries    []*Artifact
	activated  map[coords.ArtifactKey]scope
}

// Closure walks roots and their transitive dependencies in declaration
// order, then activates extensions whose dependency conditions are met
// until a pass activates nothing. Every artifact key enters the resolved
// set at most once, so the loop is bounded by the number of candidates.
func (e *Engine) Closure(ctx context.Context, roots []coords.ArtifactCoords) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Conditional dependency closure started.", "roots", len(roots), "dev_mode", e.devMode)

	w := &walk{
		e:         e,
		ctx:       ctx,
		byKey:     make(map[coords.ArtifactKey]*Artifact),
		activated: make(map[coords.ArtifactKey]scope),
	}
	for _, root := range roots {
		if _, err := w.add(root, false, coords.ArtifactCoords{}); err != nil {
			return nil, err
		}
	}

	res := &Result{}
	for {
		res.Passes++
		activations, err := w.pass(res.Passes)
		if err != nil {
			return nil, err
		}
		if len(activations) == 0 {
			break
		}
		res.Activations = append(res.Activations, activations...)
	}

	for _, a := range w.order {
		if a.Dev {
			res.DevArtifacts = append(res.DevArtifacts, a)
		} else {
			res.Artifacts = append(res.Artifacts, a)
		}
	}
	res.Extensions = w.extensions

	logger.Info("Conditional dependency closure complete.",
		"artifacts", len(res.Artifacts),
		"dev_artifacts", len(res.DevArtifacts),
		"extensions", len(res.Extensions),
		"activations", len(res.Activations),
		"passes", res.Passes)
	return res, nil
}

// pass tests every extension not yet activated, in discovery order.
// Extensions discovered during the pass are tested in the same pass.
//
// An activation is dev-scoped when the extension itself or one of its
// condition keys is only in the dev set; its conditional dependencies then
// join the dev set too. A dev-scoped extension whose entry and conditions
// later become runtime is activated again, promoting what it added.
func (w *walk) pass(n int) ([]Activation, error) {
	logger := ctxlog.FromContext(w.ctx)
	var out []Activation

	for i := 0; i < len(w.extensions); i++ {
		ext := w.extensions[i]
		ok, dev := w.satisfied(i)
		if !ok {
			continue
		}
		prev := w.activated[ext.Key()]
		if prev == runtimeScope || (prev == devScope && dev) {
			continue
		}
		w.activated[ext.Key()] = runtimeScope
		if dev {
			w.activated[ext.Key()] = devScope
		}
		act := Activation{Extension: ext.Coords, Pass: n}

		for _, dep := range ext.ConditionalDependencies {
			added, err := w.add(dep, dev, ext.Coords)
			if err != nil {
				return nil, fmt.Errorf("conditional dependency %s of extension %s: %w", dep, ext.Coords, err)
			}
			switch {
			case added && dev:
				act.AddedDev = append(act.AddedDev, dep)
			case added:
				act.Added = append(act.Added, dep)
			}
		}
		if w.e.devMode && prev == inactive {
			for _, dep := range ext.ConditionalDevDependencies {
				added, err := w.add(dep, true, ext.Coords)
				if err != nil {
					return nil, fmt.Errorf("conditional dev dependency %s of extension %s: %w", dep, ext.Coords, err)
				}
				if added {
					act.AddedDev = append(act.AddedDev, dep)
				}
			}
		}

		if prev == devScope {
			if len(act.Added) == 0 {
				continue
			}
			logger.Debug("Promoted dev-scoped extension activation.",
				"extension", ext.Coords.String(), "pass", n, "promoted", len(act.Added))
		} else {
			logger.Debug("Activated extension.",
				"extension", ext.Coords.String(), "pass", n, "dev_scoped", dev,
				"added", len(act.Added), "added_dev", len(act.AddedDev))
		}
		out = append(out, act)
	}
	return out, nil
}

// satisfied reports whether every condition key of the i-th extension is
// present at any version, and whether the activation is dev-scoped: the
// extension or one of the keys is only in the dev set. Dev entries satisfy
// nothing outside dev mode. An empty condition set is always satisfied.
func (w *walk) satisfied(i int) (ok, dev bool) {
	dev = w.entries[i].Dev
	for _, k := range w.extensions[i].DependencyConditions {
		a, found := w.byKey[k]
		if !found || (a.Dev && !w.e.devMode) {
			return false, false
		}
		dev = dev || a.Dev
	}
	return true, dev
}

// add puts c and its transitive dependencies into the resolved set. It
// reports whether the set changed for c's key: a new entry, or a dev entry
// promoted to runtime.
func (w *walk) add(c coords.ArtifactCoords, dev bool, addedBy coords.ArtifactCoords) (bool, error) {
	if existing, ok := w.byKey[c.Key()]; ok {
		if dev || !existing.Dev {
			return false, nil
		}
		return true, w.promote(existing)
	}

	cand, err := w.e.provider.Candidate(c)
	if err != nil {
		return false, err
	}
	a := &Artifact{Coords: c, Candidate: cand, Dev: dev, AddedBy: addedBy}
	w.byKey[c.Key()] = a
	w.order = append(w.order, a)

	ext, err := w.e.resolver.Resolve(w.ctx, cand)
	if err != nil {
		return false, err
	}
	if ext != nil {
		a.Extension = ext
		w.extensions = append(w.extensions, ext)
		w.entries = append(w.entries, a)
	}

	deps, err := w.e.provider.DependenciesOf(cand)
	if err != nil {
		return false, err
	}
	for _, dep := range deps {
		if _, err := w.add(dep, dev, addedBy); err != nil {
			return false, err
		}
	}
	return true, nil
}

// promote moves a dev artifact, and the dev part of its dependency tree,
// into the runtime set.
func (w *walk) promote(a *Artifact) error {
	a.Dev = false
	deps, err := w.e.provider.DependenciesOf(a.Candidate)
	if err != nil {
		return err
	}
	for _, dep := range deps {
		if _, err := w.add(dep, false, a.AddedBy); err != nil {
			return err
		}
	}
	return nil
}
