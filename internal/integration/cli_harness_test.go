//go:build e2e

// cli_harness_test.go provides a test harness for E2E testing of the taskdeck CLI.
//
// The CLIHarness builds the taskdeck binary and provides methods for executing
// CLI commands in an isolated test workspace with proper environment setup.
package integration

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// CLIHarness manages a taskdeck CLI binary for E2E testing.
type CLIHarness struct {
	// BinaryPath is the path to the built taskdeck binary.
	BinaryPath string

	// WorkDir is the working directory where commands will be executed.
	WorkDir string

	// EnvVars are added to the environment of every command.
	EnvVars map[string]string

	t *testing.T
}

// CLIResult contains the output from a CLI command execution.
type CLIResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

// Success returns true if the command completed with exit code 0.
func (r *CLIResult) Success() bool {
	return r.ExitCode == 0 && r.Err == nil
}

// NewCLIHarness builds the taskdeck binary into a temporary directory and
// creates an empty workspace next to it.
func NewCLIHarness(t *testing.T) *CLIHarness {
	t.Helper()

	projectRoot := findProjectRoot(t)
	require.NotEmpty(t, projectRoot, "could not find project root (directory containing go.mod)")

	tmpDir := t.TempDir()
	binaryPath := filepath.Join(tmpDir, "taskdeck")

	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/taskdeck")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build taskdeck binary: %s", output)

	workDir := filepath.Join(tmpDir, "workspace")
	require.NoError(t, os.MkdirAll(workDir, 0755))

	return &CLIHarness{
		BinaryPath: binaryPath,
		WorkDir:    workDir,
		EnvVars:    make(map[string]string),
		t:          t,
	}
}

// SetEnv sets an environment variable for subsequent command executions.
func (h *CLIHarness) SetEnv(key, value string) {
	h.EnvVars[key] = value
}

// Run executes a taskdeck command with default timeout (30 seconds).
func (h *CLIHarness) Run(args ...string) *CLIResult {
	return h.RunWithTimeout(30*time.Second, args...)
}

// RunWithTimeout executes a taskdeck command with the specified timeout.
func (h *CLIHarness) RunWithTimeout(timeout time.Duration, args ...string) *CLIResult {
	h.t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, h.BinaryPath, args...)
	cmd.Dir = h.WorkDir
	cmd.Env = h.buildEnv()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := &CLIResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		result.Err = err
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}
	}
	return result
}

// Process is a long-running taskdeck command.
type Process struct {
	cmd  *exec.Cmd
	done chan error

	mu     sync.Mutex
	stdout strings.Builder
	lines  chan string
}

// Start runs a taskdeck command in the background. The process is
// interrupted when the test ends.
func (h *CLIHarness) Start(args ...string) *Process {
	h.t.Helper()

	cmd := exec.Command(h.BinaryPath, args...)
	cmd.Dir = h.WorkDir
	cmd.Env = h.buildEnv()
	cmd.Stderr = os.Stderr

	stdout, err := cmd.StdoutPipe()
	require.NoError(h.t, err)
	require.NoError(h.t, cmd.Start())

	p := &Process{cmd: cmd, done: make(chan error, 1), lines: make(chan string, 64)}
	go p.scan(stdout)
	go func() { p.done <- cmd.Wait() }()

	h.t.Cleanup(func() { _ = p.Stop(5 * time.Second) })
	return p
}

func (p *Process) scan(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		p.mu.Lock()
		p.stdout.WriteString(line + "\n")
		p.mu.Unlock()
		select {
		case p.lines <- line:
		default:
		}
	}
	close(p.lines)
}

// WaitForLine returns the first stdout line containing substr.
func (p *Process) WaitForLine(t *testing.T, substr string, timeout time.Duration) string {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case line, ok := <-p.lines:
			if !ok {
				t.Fatalf("process exited before printing %q\nstdout: %s", substr, p.Stdout())
			}
			if strings.Contains(line, substr) {
				return line
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q\nstdout: %s", substr, p.Stdout())
		}
	}
}

// Stdout returns everything the process has printed so far.
func (p *Process) Stdout() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stdout.String()
}

// Stop interrupts the process and waits for it to exit, killing it after
// timeout.
func (p *Process) Stop(timeout time.Duration) error {
	select {
	case err := <-p.done:
		p.done <- err
		return err
	default:
	}
	_ = p.cmd.Process.Signal(os.Interrupt)
	select {
	case err := <-p.done:
		p.done <- err
		return err
	case <-time.After(timeout):
		_ = p.cmd.Process.Kill()
		return errors.New("process killed after timeout")
	}
}

// buildEnv returns the current environment plus EnvVars.
func (h *CLIHarness) buildEnv() []string {
	env := os.Environ()
	for k, v := range h.EnvVars {
		env = append(env, k+"="+v)
	}
	return env
}

// findProjectRoot walks up from the current directory to the directory
// containing go.mod.
func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err, "failed to get working directory")

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// RequireSuccess fails the test if the command result indicates failure.
func (h *CLIHarness) RequireSuccess(result *CLIResult, msg string) {
	h.t.Helper()
	if !result.Success() {
		h.t.Fatalf("%s: exit=%d err=%v\nstdout: %s\nstderr: %s",
			msg, result.ExitCode, result.Err, result.Stdout, result.Stderr)
	}
}

// RequireFailure fails the test if the command result indicates success.
func (h *CLIHarness) RequireFailure(result *CLIResult, msg string) {
	h.t.Helper()
	if result.Success() {
		h.t.Fatalf("%s: command succeeded unexpectedly\nstdout: %s\nstderr: %s",
			msg, result.Stdout, result.Stderr)
	}
}
