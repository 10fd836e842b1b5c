// Package support holds the godog step definitions for the visionscan CLI.
package support

import (
	"errors"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"time"

	"github.com/MeKo-Tech/visionscan/internal/vision/visiontest"
)

// TestContext holds the state of one scenario.
type TestContext struct {
	// Command execution state
	LastCommand   string
	LastStdout    string
	LastStderr    string
	LastError     error
	LastExitCode  int
	LastStartTime time.Time
	LastDuration  time.Duration

	// Test environment
	WorkingDir  string
	previousDir string
	savedEnv    map[string]*string

	// Detector replaces the real backends when a scenario scripts the
	// recognizer. Nil means the gozxing/Tesseract engine is used.
	Detector *visiontest.Detector

	// Server state
	HTTPServer         *httptest.Server
	LastHTTPStatusCode int
	LastHTTPResponse   string
	LastHTTPHeaders    map[string]string
}

// NewTestContext creates a scratch directory, makes it the working
// directory and points config discovery at it.
func NewTestContext() (*TestContext, error) {
	previousDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	workDir, err := os.MkdirTemp("", "visionscan-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	ctx := &TestContext{
		WorkingDir:  workDir,
		previousDir: previousDir,
		savedEnv:    map[string]*string{},
	}
	if err := os.Chdir(workDir); err != nil {
		return nil, fmt.Errorf("failed to enter temp directory: %w", err)
	}

	home := filepath.Join(workDir, ".home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		return nil, err
	}
	ctx.SetEnv("HOME", home)
	ctx.SetEnv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	return ctx, nil
}

// SetEnv sets an environment variable until Cleanup.
func (testCtx *TestContext) SetEnv(name, value string) {
	if _, saved := testCtx.savedEnv[name]; !saved {
		if old, ok := os.LookupEnv(name); ok {
			testCtx.savedEnv[name] = &old
		} else {
			testCtx.savedEnv[name] = nil
		}
	}
	_ = os.Setenv(name, value)
}

// Path resolves name inside the scenario's working directory.
func (testCtx *TestContext) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(testCtx.WorkingDir, name)
}

// Cleanup stops the server, restores the environment and removes the
// working directory.
func (testCtx *TestContext) Cleanup() error {
	var errs []error

	if testCtx.HTTPServer != nil {
		testCtx.HTTPServer.Close()
		testCtx.HTTPServer = nil
	}

	for name, old := range testCtx.savedEnv {
		if old == nil {
			_ = os.Unsetenv(name)
		} else {
			_ = os.Setenv(name, *old)
		}
	}

	if err := os.Chdir(testCtx.previousDir); err != nil {
		errs = append(errs, fmt.Errorf("failed to restore working directory: %w", err))
	}
	if err := os.RemoveAll(testCtx.WorkingDir); err != nil {
		errs = append(errs, fmt.Errorf("failed to remove temp directory %s: %w", testCtx.WorkingDir, err))
	}
	return errors.Join(errs...)
}
