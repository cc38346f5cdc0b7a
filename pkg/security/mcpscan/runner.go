// Package mcpscan drives the external mcp-scan tool over skill directories
// and rule files and classifies its JSON output.
package mcpscan

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/devkit-tools/devkit-validator/pkg/osutil"
)

// DefaultTimeout bounds a single target scan
const DefaultTimeout = 120 * time.Second

// ErrNoRunner is returned when neither uvx nor pipx is installed
var ErrNoRunner = errors.New("mcp-scan requires uvx or pipx; install uv (https://docs.astral.sh/uv/) or pipx (pip install pipx)")

// Runner executes mcp-scan against one target and returns its stdout
type Runner interface {
	Name() string
	Scan(ctx context.Context, target string) ([]byte, error)
}

// CommandRunner runs mcp-scan through a Python package runner
type CommandRunner struct {
	name    string
	argv    []string
	timeout time.Duration
}

// LookPathFunc resolves an executable on PATH
type LookPathFunc func(file string) (string, error)

// DetectRunner prefers uvx and falls back to pipx
func DetectRunner(lookPath LookPathFunc, timeout time.Duration) (*CommandRunner, error) {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if path, err := lookPath("uvx"); err == nil {
		return &CommandRunner{
			name:    "uvx",
			argv:    []string{path, "mcp-scan@latest", "scan", "--json", "--skills"},
			timeout: timeout,
		}, nil
	}
	if path, err := lookPath("pipx"); err == nil {
		return &CommandRunner{
			name:    "pipx",
			argv:    []string{path, "run", "mcp-scan", "scan", "--json", "--skills"},
			timeout: timeout,
		}, nil
	}
	return nil, ErrNoRunner
}

// Name returns the package runner in use
func (r *CommandRunner) Name() string {
	return r.name
}

// Args returns the command line used for target
func (r *CommandRunner) Args(target string) []string {
	return append(append([]string{}, r.argv...), target)
}

// Scan runs mcp-scan. A non-zero exit is not an error when stdout carries a
// report, since mcp-scan exits non-zero when it finds issues.
func (r *CommandRunner) Scan(ctx context.Context, target string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	args := r.Args(target)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	osutil.SetProcessGroup(cmd)
	osutil.SetProcessGroupKill(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, errors.Errorf("scan timed out after %s", r.timeout)
	}
	if err != nil && len(bytes.TrimSpace(stdout.Bytes())) == 0 {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 500 {
			msg = msg[len(msg)-500:]
		}
		return nil, errors.Wrapf(err, "mcp-scan failed: %s", msg)
	}
	return stdout.Bytes(), nil
}
