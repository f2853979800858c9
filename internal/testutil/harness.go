package testutil

import (
	"bytes"
	"context"
	"os"
	"sync"
	"testing"

	"github.com/specialistvlad/extforge/internal/app"
	"github.com/specialistvlad/extforge/internal/handlers"
	"github.com/stretchr/testify/require"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	Dir       string
	LogOutput string
	// Output is the JSON report written by the app.
	Output string
	Report *app.Report
	Err    error
	App    *app.App
}

// RunIntegrationTest provides a standardized harness for running integration tests
// using a default background context.
func RunIntegrationTest(t *testing.T, files map[string]string, cfg app.Config, modules ...handlers.Module) *HarnessResult {
	t.Helper()
	return RunIntegrationTestWithContext(context.Background(), t, files, cfg, modules...)
}

// RunIntegrationTestWithContext writes files into a temporary workspace,
// runs the app on it and captures logs and report. Unset configuration
// falls back to debug text logs, build mode and four workers. With no
// modules the app registers its core handlers.
func RunIntegrationTestWithContext(ctx context.Context, t *testing.T, files map[string]string, cfg app.Config, modules ...handlers.Module) *HarnessResult {
	t.Helper()

	dir := t.TempDir()
	WriteFiles(t, dir, files)

	if cfg.WorkspacePath == "" {
		cfg.WorkspacePath = dir
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = 4
	}
	appConfig, err := app.NewConfig(cfg)
	require.NoError(t, err)

	logBuffer := &SafeBuffer{}
	outBuffer := &SafeBuffer{}
	testApp, err := app.NewApp(outBuffer, logBuffer, appConfig, modules...)
	require.NoError(t, err)

	report, runErr := testApp.Run(ctx)

	if os.Getenv("EXTFORGE_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
	}

	return &HarnessResult{
		Dir:       dir,
		LogOutput: logBuffer.String(),
		Output:    outBuffer.String(),
		Report:    report,
		Err:       runErr,
		App:       testApp,
	}
}
