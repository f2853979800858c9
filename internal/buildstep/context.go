package buildstep

import (
	"fmt"
	"slices"

	"github.com/zclconf/go-cty/cty"
)

// StepContext is handed to a running step. Inputs are snapshotted when the
// step is dispatched; produced items are staged until the step completes.
// A StepContext belongs to one step run and is not shared.
type StepContext struct {
	step   *Step
	types  map[string]ItemType
	inputs map[string][]Item
	staged []Item
}

// StepID returns the id of the running step.
func (sc *StepContext) StepID() string {
	return sc.step.ID
}

// Consume returns the item of a consumed single type. The boolean is false
// when the type is not consumed by this step, or no producer published it.
func (sc *StepContext) Consume(typ string) (Item, bool) {
	items := sc.inputs[typ]
	if len(items) == 0 {
		return Item{}, false
	}
	return items[0], true
}

// ConsumeAll returns every item of a consumed type, in producer plan order.
func (sc *StepContext) ConsumeAll(typ string) []Item {
	return slices.Clone(sc.inputs[typ])
}

// ConsumedTypes returns the consumed types that have at least one item.
func (sc *StepContext) ConsumedTypes() []string {
	var out []string
	for _, typ := range concat(sc.step.Consumes, sc.step.OptionalConsumes) {
		if len(sc.inputs[typ]) > 0 && !slices.Contains(out, typ) {
			out = append(out, typ)
		}
	}
	return out
}

// ProducedTypes returns the item types the step declares as produced.
func (sc *StepContext) ProducedTypes() []string {
	return slices.Clone(sc.step.Produces)
}

// ItemType returns the declaration of an item type.
func (sc *StepContext) ItemType(name string) (ItemType, bool) {
	t, ok := sc.types[name]
	return t, ok
}

// Produce stages an item. The type must be declared in the step's
// Produces, and a single type may be produced once.
func (sc *StepContext) Produce(typ string, value cty.Value) error {
	if !slices.Contains(sc.step.Produces, typ) {
		return fmt.Errorf("step %q does not declare item type %q as produced", sc.step.ID, typ)
	}
	if !sc.types[typ].Multi {
		for _, it := range sc.staged {
			if it.Type == typ {
				return fmt.Errorf("step %q already produced single item type %q", sc.step.ID, typ)
			}
		}
	}
	sc.staged = append(sc.staged, Item{Type: typ, Producer: sc.step.ID, Value: value})
	return nil
}

// Produced returns the items staged so far.
func (sc *StepContext) Produced() []Item {
	return slices.Clone(sc.staged)
}
