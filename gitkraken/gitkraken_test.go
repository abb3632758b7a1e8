package gitkraken

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGK writes a shell script standing in for the gk binary.
func fakeGK(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake binary is a shell script")
	}
	path := filepath.Join(t.TempDir(), "gk")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestNotInstalled(t *testing.T) {
	cli := &CLI{timeout: DefaultTimeout}

	assert.False(t, cli.Installed())
	res := cli.Run(context.Background(), "version")
	assert.False(t, res.Success)
	assert.Equal(t, -1, res.ExitCode)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "not installed")
}

func TestRunCapturesOutput(t *testing.T) {
	cli := New(WithPath(fakeGK(t, `echo "out: $@"; echo "err line" >&2; exit 0`)))

	res := cli.Run(context.Background(), "version")
	assert.True(t, res.Success)
	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, res.Stdout, "out: version")
	assert.Contains(t, res.Stderr, "err line")
	assert.Equal(t, "gk version", res.Command)
	assert.NoError(t, res.Err)
}

func TestRunNonZeroExit(t *testing.T) {
	cli := New(WithPath(fakeGK(t, `echo "boom" >&2; exit 3`)))

	res := cli.Run(context.Background(), "ai", "commit")
	assert.False(t, res.Success)
	assert.Equal(t, 3, res.ExitCode)
	assert.Contains(t, res.Stderr, "boom")
	assert.NoError(t, res.Err, "a clean non-zero exit is not a run error")
}

func TestRunRedactsOutput(t *testing.T) {
	cli := New(WithPath(fakeGK(t, `echo 'token: "ghp_supersecret123"'; exit 0`)))

	res := cli.Run(context.Background(), "auth", "status")
	assert.NotContains(t, res.Stdout, "ghp_supersecret123")
	assert.Contains(t, res.Stdout, "[REDACTED]")
}

func TestRunTimeout(t *testing.T) {
	cli := New(
		WithPath(fakeGK(t, `sleep 5; exit 0`)),
		WithTimeout(100*time.Millisecond),
	)

	res := cli.Run(context.Background(), "ai", "changelog")
	assert.False(t, res.Success)
	assert.NotEqual(t, 0, res.ExitCode)
}

func TestTypedHelpersBuildArguments(t *testing.T) {
	cli := New(WithPath(fakeGK(t, `echo "$@"; exit 0`)))
	ctx := context.Background()

	res := cli.AICommit(ctx, true, "/repo")
	assert.Contains(t, res.Stdout, "ai commit --add-description --path /repo")

	res = cli.AIChangelog(ctx, "v1.0.0", "main", "")
	assert.Contains(t, res.Stdout, "ai changelog --base v1.0.0 --head main")

	res = cli.AIExplainCommit(ctx, "abc123", "")
	assert.Contains(t, res.Stdout, "ai explain commit abc123")

	res = cli.AIExplainBranch(ctx, "feature/x", "")
	assert.Contains(t, res.Stdout, "ai explain branch --branch feature/x")

	res = cli.AIPRCreate(ctx, "/repo")
	assert.Contains(t, res.Stdout, "ai pr create --path /repo")

	res = cli.Version(ctx)
	assert.Contains(t, res.Stdout, "version")
}
