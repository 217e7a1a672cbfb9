package executor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"codeexec/lang"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.ErrorLevel)
	return l
}

func shPhase(script string) lang.Phase {
	return lang.Phase{Name: lang.PhaseRun, Args: []string{"/bin/sh", "-c", script}}
}

func TestRunEchoesStdinToOutputFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.txt")
	output := filepath.Join(dir, "output.txt")
	require.NoError(t, os.WriteFile(input, []byte("hello\n"), 0o644))

	phase := shPhase("cat")
	phase.Stdin = input
	phase.Stdout = output

	out, err := NewRunner(quietLogger()).Run(context.Background(), phase, dir, Limits{})
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(out.Stdout))
	assert.False(t, out.Truncated)
	assert.Equal(t, 0, out.ExitCode)

	written, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(written))
}

func TestRunTruncatesStdout(t *testing.T) {
	r := NewRunner(quietLogger())

	out, err := r.Run(context.Background(), shPhase("printf '%0100d' 0"), t.TempDir(), Limits{MaxOutputBytes: 10})
	require.NoError(t, err)
	assert.Len(t, out.Stdout, 10)
	assert.True(t, out.Truncated)

	out, err = r.Run(context.Background(), shPhase("printf 0123456789"), t.TempDir(), Limits{MaxOutputBytes: 10})
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(out.Stdout))
	assert.False(t, out.Truncated)
}

func TestRunKillsOnTimeout(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "output.txt")
	phase := shPhase("echo partial; sleep 30")
	phase.Stdout = output

	start := time.Now()
	_, err := NewRunner(quietLogger()).Run(context.Background(), phase, dir, Limits{Timeout: 200 * time.Millisecond})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Equal(t, KindTimeout, KindOf(err))
	assert.Equal(t, "Code execution timed out", err.Error())
	assert.Less(t, elapsed, 5*time.Second)

	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr), "partial output must not be written")
}

func TestRunKillsChildrenOnTimeout(t *testing.T) {
	start := time.Now()
	_, err := NewRunner(quietLogger()).Run(context.Background(),
		shPhase("sleep 30 & sleep 30; wait"), t.TempDir(), Limits{Timeout: 200 * time.Millisecond})
	require.Error(t, err)
	assert.Equal(t, KindTimeout, KindOf(err))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRunStderrIsRuntimeError(t *testing.T) {
	out, err := NewRunner(quietLogger()).Run(context.Background(),
		shPhase("echo oops >&2"), t.TempDir(), Limits{})
	require.Error(t, err)
	assert.Equal(t, KindRuntime, KindOf(err))
	assert.Equal(t, "oops\n", err.Error())
	assert.Equal(t, 0, out.ExitCode)
}

func TestRunWhitespaceStderrIsRuntimeError(t *testing.T) {
	_, err := NewRunner(quietLogger()).Run(context.Background(),
		shPhase("echo ok; printf ' ' >&2"), t.TempDir(), Limits{})
	require.Error(t, err)
	assert.Equal(t, KindRuntime, KindOf(err))
	assert.Equal(t, " ", err.Error())
}

func TestRunNonZeroExitWithoutStderr(t *testing.T) {
	out, err := NewRunner(quietLogger()).Run(context.Background(),
		shPhase("exit 3"), t.TempDir(), Limits{})
	require.Error(t, err)
	assert.Equal(t, KindRuntime, KindOf(err))
	assert.Contains(t, err.Error(), "exit status 3")
	assert.Equal(t, 3, out.ExitCode)
}

func TestRunSpawnError(t *testing.T) {
	phase := lang.Phase{Name: lang.PhaseRun, Args: []string{"/definitely/not/a/program"}}
	_, err := NewRunner(quietLogger()).Run(context.Background(), phase, t.TempDir(), Limits{})
	require.Error(t, err)
	assert.Equal(t, KindSpawn, KindOf(err))

	_, err = NewRunner(quietLogger()).Run(context.Background(), lang.Phase{Name: "run"}, t.TempDir(), Limits{})
	assert.Equal(t, KindSpawn, KindOf(err))
}

func TestRunMissingInputFile(t *testing.T) {
	phase := shPhase("cat")
	phase.Stdin = filepath.Join(t.TempDir(), "nope.txt")
	_, err := NewRunner(quietLogger()).Run(context.Background(), phase, t.TempDir(), Limits{})
	assert.Equal(t, KindSpawn, KindOf(err))
}

func TestCappedBuffer(t *testing.T) {
	b := newCappedBuffer(4)
	n, err := b.Write([]byte("ab"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = b.Write([]byte("cdef"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "abcd", b.String())
	assert.True(t, b.Truncated())

	exact := newCappedBuffer(3)
	_, _ = exact.Write([]byte(strings.Repeat("x", 3)))
	assert.False(t, exact.Truncated())
}
