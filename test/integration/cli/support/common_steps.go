package support

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MeKo-Tech/visionscan/cmd/visionscan/cmd"
	"github.com/MeKo-Tech/visionscan/internal/config"
	"github.com/MeKo-Tech/visionscan/internal/vision"
	"github.com/cucumber/godog"
)

// commandTimeout bounds a single in-process command.
const commandTimeout = 30 * time.Second

// iRunCommand executes the command line in-process against a fresh command
// tree and records its output.
func (testCtx *TestContext) iRunCommand(command string) error {
	testCtx.LastCommand = command
	testCtx.LastStartTime = time.Now()

	parts := strings.Fields(command)
	if len(parts) == 0 {
		return errors.New("empty command")
	}
	if parts[0] == "visionscan" {
		parts = parts[1:]
	}

	var opts []cmd.Option
	if det := testCtx.Detector; det != nil {
		opts = append(opts, cmd.WithDetectorFactory(func(*config.Config) (vision.Detector, error) {
			return det, nil
		}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	root := cmd.NewRootCommand(opts...)
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(parts)

	err := root.ExecuteContext(ctx)
	testCtx.LastStdout = stdout.String()
	testCtx.LastStderr = stderr.String()
	testCtx.LastError = err
	testCtx.LastDuration = time.Since(testCtx.LastStartTime)
	if err != nil {
		testCtx.LastExitCode = 1
	} else {
		testCtx.LastExitCode = 0
	}
	return nil
}

func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastExitCode != 0 {
		return fmt.Errorf("command failed with exit code %d: %w\nStdout: %s\nStderr: %s",
			testCtx.LastExitCode, testCtx.LastError, testCtx.LastStdout, testCtx.LastStderr)
	}
	return nil
}

func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastExitCode == 0 {
		return fmt.Errorf("command succeeded when it should have failed\nOutput: %s", testCtx.LastStdout)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldContain(expectedText string) error {
	if !strings.Contains(testCtx.LastStdout, expectedText) {
		return fmt.Errorf("output does not contain '%s'\nActual output: %s", expectedText, testCtx.LastStdout)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldBe(expected *godog.DocString) error {
	want := expected.Content + "\n"
	if testCtx.LastStdout != want {
		return fmt.Errorf("output mismatch\nExpected: %q\nActual:   %q", want, testCtx.LastStdout)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldBeEmpty() error {
	if testCtx.LastStdout != "" {
		return fmt.Errorf("expected no output, got: %s", testCtx.LastStdout)
	}
	return nil
}

func (testCtx *TestContext) theErrorOutputShouldContain(expectedText string) error {
	if !strings.Contains(testCtx.LastStderr, expectedText) {
		return fmt.Errorf("error output does not contain '%s'\nActual: %s", expectedText, testCtx.LastStderr)
	}
	return nil
}

// theErrorShouldMention matches the returned error and stderr case-insensitively.
func (testCtx *TestContext) theErrorShouldMention(errorText string) error {
	if testCtx.LastError == nil {
		return fmt.Errorf("no error occurred, but expected error containing '%s'", errorText)
	}
	full := testCtx.LastStderr + " " + testCtx.LastError.Error()
	if !strings.Contains(strings.ToLower(full), strings.ToLower(errorText)) {
		return fmt.Errorf("error does not contain '%s'\nActual error: %s", errorText, full)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldBeValidJSON() error {
	var js json.RawMessage
	if err := json.Unmarshal([]byte(testCtx.LastStdout), &js); err != nil {
		return fmt.Errorf("output is not valid JSON: %w\nOutput: %s", err, testCtx.LastStdout)
	}
	return nil
}

// theJSONFieldShouldBe compares a dotted path of the JSON output. Numeric
// path segments index arrays.
func (testCtx *TestContext) theJSONFieldShouldBe(path, expected string) error {
	return jsonFieldEquals([]byte(testCtx.LastStdout), path, expected)
}

func (testCtx *TestContext) theOutputShouldBeValidCSVWithRows(rows int) error {
	records, err := csv.NewReader(strings.NewReader(testCtx.LastStdout)).ReadAll()
	if err != nil {
		return fmt.Errorf("output is not valid CSV: %w", err)
	}
	if len(records) != rows+1 {
		return fmt.Errorf("expected %d data rows, got %d", rows, len(records)-1)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldExist(name string) error {
	if _, err := os.Stat(testCtx.Path(name)); err != nil {
		return fmt.Errorf("expected file %s to exist: %w", name, err)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldNotExist(name string) error {
	if _, err := os.Stat(testCtx.Path(name)); !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("expected file %s to be gone", name)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldContain(name, expected string) error {
	data, err := os.ReadFile(testCtx.Path(name))
	if err != nil {
		return err
	}
	if !strings.Contains(string(data), expected) {
		return fmt.Errorf("file %s does not contain '%s'\nContent: %s", name, expected, data)
	}
	return nil
}

func (testCtx *TestContext) aConfigFileWith(name string, content *godog.DocString) error {
	return os.WriteFile(testCtx.Path(name), []byte(content.Content+"\n"), 0o600)
}

func (testCtx *TestContext) theEnvironmentVariableIsSetTo(name, value string) error {
	testCtx.SetEnv(name, value)
	return nil
}

func jsonFieldEquals(data []byte, path, expected string) error {
	var current any
	if err := json.Unmarshal(data, &current); err != nil {
		return fmt.Errorf("invalid JSON: %w\nJSON: %s", err, data)
	}
	for _, part := range strings.Split(path, ".") {
		switch v := current.(type) {
		case map[string]any:
			next, ok := v[part]
			if !ok {
				return fmt.Errorf("field '%s' not found in JSON", path)
			}
			current = next
		case []any:
			var i int
			if _, err := fmt.Sscanf(part, "%d", &i); err != nil || i < 0 || i >= len(v) {
				return fmt.Errorf("invalid index '%s' in path '%s'", part, path)
			}
			current = v[i]
		default:
			return fmt.Errorf("cannot navigate into '%s' of path '%s'", part, path)
		}
	}
	if got := fmt.Sprint(current); got != expected {
		return fmt.Errorf("field '%s' is %q, expected %q", path, got, expected)
	}
	return nil
}
