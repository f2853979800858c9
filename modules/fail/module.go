package fail

import (
	"context"
	"errors"

	"github.com/specialistvlad/extforge/internal/buildstep"
	"github.com/specialistvlad/extforge/internal/handlers"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the handlers.Module interface for this package.
type Module struct{}

// Fail always returns an error carrying the `message` value. It is used to
// exercise failure handling in build definitions.
func Fail(ctx context.Context, sc *buildstep.StepContext, values cty.Value) error {
	message := "step failed"
	if _, err := handlers.DecodeAttr(values, "message", &message); err != nil {
		return err
	}
	return errors.New(message)
}

// Register registers the handler with the engine.
func (m *Module) Register(r *handlers.Handlers) {
	r.RegisterHandler("fail", &handlers.RegisteredHandler{
		Description: "fails with the configured message",
		Fn:          Fail,
	})
}
