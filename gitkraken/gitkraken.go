// Package gitkraken wraps the GitKraken CLI (gk) as an external
// collaborator. Commands run as subprocesses and always return a Result;
// a missing binary or non-zero exit never surfaces as a panic or raw
// error. Captured output passes through the redactor before landing in a
// Result, since gk can echo provider tokens in its diagnostics.
package gitkraken

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/Fayeblade1488/venicebridge/redact"
)

// DefaultTimeout bounds a single gk invocation.
const DefaultTimeout = 30 * time.Second

// wellKnownDirs are checked when gk is not on PATH.
var wellKnownDirs = []string{
	"/usr/local/bin",
	"/opt/homebrew/bin",
}

// Result is the outcome of one gk invocation.
type Result struct {
	Success  bool
	ExitCode int
	Stdout   string
	Stderr   string

	// Command is the rendered command line, for diagnostics.
	Command string

	// Err is set when the command could not run at all (binary missing,
	// context cancelled). Its message is already redacted.
	Err error
}

// CLI locates and runs the gk binary.
type CLI struct {
	path    string
	timeout time.Duration
}

// Option configures a CLI.
type Option func(*CLI)

// WithPath pins the gk binary location instead of searching for it.
func WithPath(path string) Option {
	return func(c *CLI) { c.path = path }
}

// WithTimeout replaces the per-command timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *CLI) { c.timeout = d }
}

// New creates a CLI, searching PATH and well-known install directories
// for the gk binary. Use Installed to check whether the search succeeded.
func New(opts ...Option) *CLI {
	c := &CLI{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(c)
	}
	if c.path == "" {
		c.path = findBinary()
	}
	return c
}

// findBinary locates gk on PATH, in well-known system directories, then
// under the user's home bin directories.
func findBinary() string {
	if path, err := exec.LookPath("gk"); err == nil {
		return path
	}

	candidates := append([]string{}, wellKnownDirs...)
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(home, "bin"),
			filepath.Join(home, ".local", "bin"),
		)
	}
	for _, dir := range candidates {
		path := filepath.Join(dir, "gk")
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// Installed reports whether a gk binary was found.
func (c *CLI) Installed() bool { return c.path != "" }

// Path returns the resolved gk binary location, or "" when not found.
func (c *CLI) Path() string { return c.path }

// Run executes gk with the given arguments. The result's Stdout and
// Stderr are redacted copies of the captured output.
func (c *CLI) Run(ctx context.Context, args ...string) *Result {
	command := strings.Join(append([]string{"gk"}, args...), " ")
	if !c.Installed() {
		return &Result{
			Command:  command,
			ExitCode: -1,
			Err:      errors.New("gitkraken cli (gk) is not installed or not in PATH"),
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &Result{
		Command: command,
		Stdout:  redact.Redact(stdout.String()),
		Stderr:  redact.Redact(stderr.String()),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res.Success = true
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		res.ExitCode = -1
		res.Err = errors.New(redact.Redact(err.Error()))
	}
	return res
}

// AICommit generates a commit message with gk's AI. addDescription asks
// for an extended description, repoPath targets a specific repository.
func (c *CLI) AICommit(ctx context.Context, addDescription bool, repoPath string) *Result {
	args := []string{"ai", "commit"}
	if addDescription {
		args = append(args, "--add-description")
	}
	args = appendPath(args, repoPath)
	return c.Run(ctx, args...)
}

// AIChangelog generates a changelog between two refs with gk's AI.
func (c *CLI) AIChangelog(ctx context.Context, base, head, repoPath string) *Result {
	args := []string{"ai", "changelog"}
	if base != "" {
		args = append(args, "--base", base)
	}
	if head != "" {
		args = append(args, "--head", head)
	}
	args = appendPath(args, repoPath)
	return c.Run(ctx, args...)
}

// AIExplainCommit asks gk's AI to explain the changes in a commit.
func (c *CLI) AIExplainCommit(ctx context.Context, commitSHA, repoPath string) *Result {
	args := []string{"ai", "explain", "commit", commitSHA}
	args = appendPath(args, repoPath)
	return c.Run(ctx, args...)
}

// AIExplainBranch asks gk's AI to explain what a branch changes.
func (c *CLI) AIExplainBranch(ctx context.Context, branch, repoPath string) *Result {
	args := []string{"ai", "explain", "branch"}
	if branch != "" {
		args = append(args, "--branch", branch)
	}
	args = appendPath(args, repoPath)
	return c.Run(ctx, args...)
}

// AIPRCreate generates a pull request with gk's AI.
func (c *CLI) AIPRCreate(ctx context.Context, repoPath string) *Result {
	args := []string{"ai", "pr", "create"}
	args = appendPath(args, repoPath)
	return c.Run(ctx, args...)
}

// Version reports the installed gk version.
func (c *CLI) Version(ctx context.Context) *Result {
	return c.Run(ctx, "version")
}

func appendPath(args []string, repoPath string) []string {
	if repoPath != "" {
		args = append(args, "--path", repoPath)
	}
	return args
}
