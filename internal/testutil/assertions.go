package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertStepRan checks the build report of a HarnessResult to confirm that
// a step has completed.
func AssertStepRan(t *testing.T, result *HarnessResult, stepID string) {
	t.Helper()
	require.NotNil(t, result.Report, "run produced no report")
	require.NotNil(t, result.Report.Build, "run did not reach the build")
	require.Equal(t, "Completed", result.Report.Build.States[stepID], "step %q did not complete", stepID)
}

// AssertStepNotStarted checks that a step was never dispatched.
func AssertStepNotStarted(t *testing.T, result *HarnessResult, stepID string) {
	t.Helper()
	require.NotNil(t, result.Report)
	require.NotNil(t, result.Report.Build)
	require.NotContains(t, result.Report.Build.Started, stepID)
}
