package buildstep

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// Phase is a step's execution phase tag.
type Phase int

const (
	PhaseNone Phase = iota
	PhaseStaticInit
	PhaseRuntimeInit
)

func (p Phase) String() string {
	switch p {
	case PhaseStaticInit:
		return "static-init"
	case PhaseRuntimeInit:
		return "runtime-init"
	default:
		return "none"
	}
}

// ParsePhase accepts "", "none", "static-init" and "runtime-init".
func ParsePhase(s string) (Phase, error) {
	switch s {
	case "", "none":
		return PhaseNone, nil
	case "static-init":
		return PhaseStaticInit, nil
	case "runtime-init":
		return PhaseRuntimeInit, nil
	default:
		return PhaseNone, fmt.Errorf("unknown phase %q, want none, static-init or runtime-init", s)
	}
}

// State is the execution state of a step.
type State int32

const (
	// Pending steps wait for the steps they depend on.
	Pending State = iota
	// Ready steps have every dependency settled and wait for a worker.
	Ready
	// Running steps are executing on a worker.
	Running
	// Completed steps finished and published their items.
	Completed
	// Failed steps returned an error. Their items are discarded.
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Ready:
		return "Ready"
	case Running:
		return "Running"
	case Completed:
		return "Completed"
	case Failed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// ItemType declares a build item type. A single type has exactly one
// producer; a multi type may have any number.
type ItemType struct {
	Name  string
	Multi bool
}

// Item is a produced build item. Values are immutable.
type Item struct {
	Type     string
	Producer string
	Value    cty.Value
}

// StepFunc is the body of a build step.
type StepFunc func(ctx context.Context, sc *StepContext) error

// Step declares a build step.
type Step struct {
	ID       string
	Consumes []string
	// OptionalConsumes are consumed when produced, but may have no producer.
	OptionalConsumes []string
	Produces         []string
	Phase            Phase
	// Priority breaks ties among steps ready at the same time; higher runs
	// first.
	Priority int
	// BestEffort steps may fail without aborting the build.
	BestEffort bool
	Run        StepFunc
}
