package testutil

import (
	"context"

	"github.com/specialistvlad/extforge/internal/buildstep"
	"github.com/specialistvlad/extforge/internal/handlers"
	"github.com/zclconf/go-cty/cty"
)

// NoOpModule registers a single "noop" handler that produces nothing and
// always succeeds.
type NoOpModule struct{}

// Register implements the handlers.Module interface.
func (m *NoOpModule) Register(r *handlers.Handlers) {
	r.RegisterHandler("noop", &handlers.RegisteredHandler{
		Description: "does nothing",
		Fn: func(context.Context, *buildstep.StepContext, cty.Value) error {
			return nil
		},
	})
}
