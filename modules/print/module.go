package print

import (
	"context"
	"sort"

	"github.com/specialistvlad/extforge/internal/buildstep"
	"github.com/specialistvlad/extforge/internal/ctxlog"
	"github.com/specialistvlad/extforge/internal/handlers"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Module implements the handlers.Module interface for this package.
type Module struct{}

// Print logs every consumed item at info level. An optional `message`
// value is logged first.
func Print(ctx context.Context, sc *buildstep.StepContext, values cty.Value) error {
	logger := ctxlog.FromContext(ctx)

	var message string
	if _, err := handlers.DecodeAttr(values, "message", &message); err != nil {
		return err
	}
	if message != "" {
		logger.Info(message)
	}

	// Sort types for consistent output
	types := sc.ConsumedTypes()
	sort.Strings(types)

	for _, typ := range types {
		for _, it := range sc.ConsumeAll(typ) {
			raw, err := ctyjson.Marshal(it.Value, it.Value.Type())
			if err != nil {
				return err
			}
			logger.Info("Build item.", "type", typ, "producer", it.Producer, "value", string(raw))
		}
	}
	return nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *handlers.Handlers) {
	r.RegisterHandler("print", &handlers.RegisteredHandler{
		Description: "logs consumed items",
		Fn:          Print,
	})
}
