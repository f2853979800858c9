package env_vars

import (
	"context"
	"os"
	"strings"

	"github.com/specialistvlad/extforge/internal/buildstep"
	"github.com/specialistvlad/extforge/internal/handlers"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the handlers.Module interface for this package.
type Module struct{}

// Input is decoded from the step's values.
type Input struct {
	// Names selects variables by name. All variables are used when unset.
	Names []string
	// Prefix selects variables by name prefix.
	Prefix string
}

// OnRunEnvVars produces a map of environment variables for every declared
// output type.
func OnRunEnvVars(ctx context.Context, sc *buildstep.StepContext, values cty.Value) error {
	var in Input
	if _, err := handlers.DecodeAttr(values, "names", &in.Names); err != nil {
		return err
	}
	if _, err := handlers.DecodeAttr(values, "prefix", &in.Prefix); err != nil {
		return err
	}

	envMap := make(map[string]cty.Value)
	for _, e := range os.Environ() {
		pair := strings.SplitN(e, "=", 2)
		if len(pair) != 2 || !in.selects(pair[0]) {
			continue
		}
		envMap[pair[0]] = cty.StringVal(pair[1])
	}

	v := cty.MapValEmpty(cty.String)
	if len(envMap) > 0 {
		v = cty.MapVal(envMap)
	}
	for _, typ := range sc.ProducedTypes() {
		if err := sc.Produce(typ, v); err != nil {
			return err
		}
	}
	return nil
}

func (in Input) selects(name string) bool {
	if !strings.HasPrefix(name, in.Prefix) {
		return false
	}
	if in.Names == nil {
		return true
	}
	for _, n := range in.Names {
		if n == name {
			return true
		}
	}
	return false
}

// Register registers the handler with the engine.
func (m *Module) Register(r *handlers.Handlers) {
	r.RegisterHandler("env_vars", &handlers.RegisteredHandler{
		Description: "produces environment variables as a map",
		Fn:          OnRunEnvVars,
	})
}
