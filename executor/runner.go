package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"codeexec/lang"

	logrus "github.com/sirupsen/logrus"
)

const (
	DefaultTimeout        = 5 * time.Second
	DefaultMaxOutputBytes = 1024

	maxStderrBytes = 64 * 1024
	killWaitDelay  = time.Second
)

// Limits bound a single process run.
type Limits struct {
	Timeout        time.Duration
	MaxOutputBytes int
}

func (l Limits) withDefaults() Limits {
	if l.Timeout <= 0 {
		l.Timeout = DefaultTimeout
	}
	if l.MaxOutputBytes <= 0 {
		l.MaxOutputBytes = DefaultMaxOutputBytes
	}
	return l
}

// Outcome is what a finished process left behind.
type Outcome struct {
	Stdout    []byte
	Truncated bool
	Stderr    string
	ExitCode  int
	Duration  time.Duration
}

// Runner executes phases as child processes.
type Runner struct {
	logger *logrus.Logger
}

func NewRunner(logger *logrus.Logger) *Runner {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Runner{logger: logger}
}

// Run starts exactly one process for the phase and waits for it or for the
// timeout, whichever comes first. On timeout the process group is killed and
// any output is dropped. On success the captured stdout is also written to
// phase.Stdout when set.
func (r *Runner) Run(ctx context.Context, phase lang.Phase, dir string, limits Limits) (Outcome, error) {
	if len(phase.Args) == 0 {
		return Outcome{}, NewError(KindSpawn, "empty command for phase %q", phase.Name)
	}
	limits = limits.withDefaults()

	ctx, cancel := context.WithTimeout(ctx, limits.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, phase.Args[0], phase.Args[1:]...)
	cmd.Dir = dir
	configureProcess(cmd)

	if phase.Stdin != "" {
		in, err := os.Open(phase.Stdin)
		if err != nil {
			return Outcome{}, WrapError(err, KindSpawn, "Could not open input file")
		}
		defer in.Close()
		cmd.Stdin = in
	}

	stdout := newCappedBuffer(limits.MaxOutputBytes)
	stderr := newCappedBuffer(maxStderrBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	fields := logrus.Fields{
		"phase":   phase.Name,
		"program": phase.Args[0],
		"dir":     dir,
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		r.logger.WithFields(fields).WithError(err).Error("Process could not start")
		return Outcome{}, WrapError(err, KindSpawn, fmt.Sprintf("could not start %s: %v", phase.Args[0], err))
	}
	waitErr := cmd.Wait()
	duration := time.Since(start)
	fields["duration"] = duration

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			r.logger.WithFields(fields).Warn("Execution timeout, process killed")
			return Outcome{Duration: duration}, WrapError(ctxErr, KindTimeout, "Code execution timed out")
		}
		r.logger.WithFields(fields).Warn("Execution canceled, process killed")
		return Outcome{Duration: duration}, WrapError(ctxErr, KindRuntime, "Code execution canceled")
	}

	out := Outcome{
		Stdout:    stdout.Bytes(),
		Truncated: stdout.Truncated(),
		Stderr:    stderr.String(),
		ExitCode:  exitCode(cmd),
		Duration:  duration,
	}
	fields["exit_code"] = out.ExitCode

	switch {
	case out.Stderr != "":
		r.logger.WithFields(fields).Info("Execution finished with stderr output")
		return out, &Error{Kind: KindRuntime, Message: out.Stderr, Err: waitErr}
	case waitErr != nil:
		r.logger.WithFields(fields).WithError(waitErr).Info("Execution failed")
		return out, WrapError(waitErr, KindRuntime, fmt.Sprintf("execution error: %v", waitErr))
	}

	if phase.Stdout != "" {
		if err := os.WriteFile(phase.Stdout, out.Stdout, 0o644); err != nil {
			return out, WrapError(err, KindStaging, "Could not write output file")
		}
	}

	fields["stdout_bytes"] = len(out.Stdout)
	fields["truncated"] = out.Truncated
	r.logger.WithFields(fields).Debug("Execution completed")
	return out, nil
}

func exitCode(cmd *exec.Cmd) int {
	if cmd.ProcessState == nil {
		return -1
	}
	return cmd.ProcessState.ExitCode()
}

// cappedBuffer keeps the first max bytes written to it and counts the rest.
// Writes never fail, so a chatty program is not killed by EPIPE.
type cappedBuffer struct {
	buf   bytes.Buffer
	max   int
	total int
}

func newCappedBuffer(max int) *cappedBuffer {
	return &cappedBuffer{max: max}
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	c.total += len(p)
	if room := c.max - c.buf.Len(); room > 0 {
		if len(p) > room {
			c.buf.Write(p[:room])
		} else {
			c.buf.Write(p)
		}
	}
	return len(p), nil
}

func (c *cappedBuffer) Bytes() []byte {
	return c.buf.Bytes()
}

func (c *cappedBuffer) String() string {
	return c.buf.String()
}

func (c *cappedBuffer) Truncated() bool {
	return c.total > c.max
}
