package handlers

import (
	"context"
	"fmt"
	"sort"

	"github.com/specialistvlad/extforge/internal/buildstep"
	"github.com/zclconf/go-cty/cty"
)

// Func is the Go body of a declared build step. values is the step's
// evaluated `values` attribute, cty.NilVal when it declares none.
type Func func(ctx context.Context, sc *buildstep.StepContext, values cty.Value) error

// RegisteredHandler holds a compiled step handler.
type RegisteredHandler struct {
	// Description is shown by the plan output.
	Description string
	Fn          Func
}

// Module is implemented by every package that contributes handlers.
type Module interface {
	Register(h *Handlers)
}

// Handlers holds all the registered handlers.
type Handlers struct {
	all map[string]*RegisteredHandler
}

// New creates and initializes a new Handlers instance.
func New() *Handlers {
	return &Handlers{
		all: make(map[string]*RegisteredHandler),
	}
}

// RegisterHandler registers a Go function under a handler name.
func (r *Handlers) RegisterHandler(name string, handler *RegisteredHandler) {
	if _, exists := r.all[name]; exists {
		panic(fmt.Sprintf("step handler with name '%s' already registered", name))
	}
	if handler == nil || handler.Fn == nil {
		panic(fmt.Sprintf("step handler '%s' has no function", name))
	}
	r.all[name] = handler
}

// Handler returns the handler registered under name.
func (r *Handlers) Handler(name string) (*RegisteredHandler, bool) {
	h, ok := r.all[name]
	return h, ok
}

// Names returns the registered handler names, sorted.
func (r *Handlers) Names() []string {
	names := make([]string, 0, len(r.all))
	for name := range r.all {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Bind returns the step body that calls the named handler with values.
func (r *Handlers) Bind(name string, values cty.Value) (buildstep.StepFunc, error) {
	h, ok := r.all[name]
	if !ok {
		return nil, fmt.Errorf("unknown step handler %q, registered handlers: %v", name, r.Names())
	}
	return func(ctx context.Context, sc *buildstep.StepContext) error {
		return h.Fn(ctx, sc, values)
	}, nil
}

// Register registers every module's handlers.
func (r *Handlers) Register(modules ...Module) *Handlers {
	for _, m := range modules {
		m.Register(r)
	}
	return r
}
