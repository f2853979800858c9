package buildstep

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidGraph     = errors.New("invalid build step graph")
	ErrCycle            = errors.New("build step cycle detected")
	ErrDanglingConsumer = errors.New("dangling consumer")
	ErrStepFailed       = errors.New("build step failed")
)

// GraphError reports a validation failure found by NewGraph.
type GraphError struct {
	Kind error
	Msg  string
	// Cycle holds the closed cycle path for ErrCycle, e.g. [a b c a].
	Cycle []string
}

func (e *GraphError) Error() string {
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *GraphError) Unwrap() error { return e.Kind }

func invalidf(format string, args ...any) error {
	return &GraphError{Kind: ErrInvalidGraph, Msg: fmt.Sprintf(format, args...)}
}

func danglingf(format string, args ...any) error {
	return &GraphError{Kind: ErrDanglingConsumer, Msg: fmt.Sprintf(format, args...)}
}

func cycleError(path []string) error {
	return &GraphError{Kind: ErrCycle, Msg: strings.Join(path, " -> "), Cycle: path}
}

// StepError carries the identifier of a failed step.
type StepError struct {
	StepID     string
	BestEffort bool
	Err        error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q failed: %v", e.StepID, e.Err)
}

func (e *StepError) Unwrap() []error {
	return []error{ErrStepFailed, e.Err}
}
