package emit

import (
	"context"

	"github.com/specialistvlad/extforge/internal/buildstep"
	"github.com/specialistvlad/extforge/internal/handlers"
	"github.com/zclconf/go-cty/cty"
)

// Name is the handler name; steps that name no handler use it.
const Name = "emit"

// Module implements the handlers.Module interface for this package.
type Module struct{}

// Emit produces one item per declared output type. The item value is the
// values attribute named after the type, or the step id when there is no
// such attribute. A list or tuple given for a multi type is spread into
// one item per element.
func Emit(ctx context.Context, sc *buildstep.StepContext, values cty.Value) error {
	for _, typ := range sc.ProducedTypes() {
		v, ok := handlers.Attr(values, typ)
		if !ok {
			v = cty.StringVal(sc.StepID())
		}

		t, _ := sc.ItemType(typ)
		if t.Multi && !v.IsNull() && v.IsKnown() && (v.Type().IsTupleType() || v.Type().IsListType()) {
			for it := v.ElementIterator(); it.Next(); {
				_, elem := it.Element()
				if err := sc.Produce(typ, elem); err != nil {
					return err
				}
			}
			continue
		}
		if err := sc.Produce(typ, v); err != nil {
			return err
		}
	}
	return nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *handlers.Handlers) {
	r.RegisterHandler(Name, &handlers.RegisteredHandler{
		Description: "produces the step's values as items",
		Fn:          Emit,
	})
}
