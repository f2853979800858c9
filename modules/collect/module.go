package collect

import (
	"context"

	"github.com/specialistvlad/extforge/internal/buildstep"
	"github.com/specialistvlad/extforge/internal/handlers"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the handlers.Module interface for this package.
type Module struct{}

// Collect gathers every consumed item into one object keyed by item type.
// Each attribute is a tuple of item values in producer plan order. The
// object is produced once for every declared output type.
func Collect(ctx context.Context, sc *buildstep.StepContext, values cty.Value) error {
	attrs := make(map[string]cty.Value)
	for _, typ := range sc.ConsumedTypes() {
		items := sc.ConsumeAll(typ)
		vals := make([]cty.Value, 0, len(items))
		for _, it := range items {
			vals = append(vals, it.Value)
		}
		attrs[typ] = cty.TupleVal(vals)
	}

	v := cty.EmptyObjectVal
	if len(attrs) > 0 {
		v = cty.ObjectVal(attrs)
	}
	for _, typ := range sc.ProducedTypes() {
		if err := sc.Produce(typ, v); err != nil {
			return err
		}
	}
	return nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *handlers.Handlers) {
	r.RegisterHandler("collect", &handlers.RegisteredHandler{
		Description: "aggregates consumed items by type",
		Fn:          Collect,
	})
}
