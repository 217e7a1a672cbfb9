package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"codeexec/executor"
	"codeexec/lang"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap/zapcore"
)

const traceLayer = "pipeline"

// Tracer receives job state transitions keyed by job id.
type Tracer interface {
	Log(level zapcore.Level, traceID string, message string, attributes map[string]any, layer string, err error)
}

// PipelineOptions configures a Pipeline. Zero values fall back to defaults.
type PipelineOptions struct {
	Registry *lang.Registry
	Runner   *executor.Runner
	WorkDir  string
	Limits   executor.Limits
	Tracker  *executor.Tracker
	Logger   *logrus.Logger
	Tracer   Tracer
}

// Pipeline runs one job from staging to cleanup. It is the worker pool's
// handler.
type Pipeline struct {
	registry *lang.Registry
	runner   *executor.Runner
	workDir  string
	limits   executor.Limits
	tracker  *executor.Tracker
	logger   *logrus.Logger
	tracer   Tracer

	lastInput  atomic.Pointer[string]
	lastOutput atomic.Pointer[string]
}

func DefaultWorkDir() string {
	return filepath.Join(os.TempDir(), "codeexec")
}

func NewPipeline(opts PipelineOptions) *Pipeline {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Registry == nil {
		opts.Registry = lang.Default()
	}
	if opts.Runner == nil {
		opts.Runner = executor.NewRunner(opts.Logger)
	}
	if opts.WorkDir == "" {
		opts.WorkDir = DefaultWorkDir()
	}
	if opts.Limits.Timeout <= 0 {
		opts.Limits.Timeout = executor.DefaultTimeout
	}
	if opts.Limits.MaxOutputBytes <= 0 {
		opts.Limits.MaxOutputBytes = executor.DefaultMaxOutputBytes
	}
	return &Pipeline{
		registry: opts.Registry,
		runner:   opts.Runner,
		workDir:  opts.WorkDir,
		limits:   opts.Limits,
		tracker:  opts.Tracker,
		logger:   opts.Logger,
		tracer:   opts.Tracer,
	}
}

func (p *Pipeline) Registry() *lang.Registry {
	return p.registry
}

// LastInput is the stdin staged by the most recent job, "" before any job.
func (p *Pipeline) LastInput() string {
	if s := p.lastInput.Load(); s != nil {
		return *s
	}
	return ""
}

// LastOutput is the stdout of the most recent successful job.
func (p *Pipeline) LastOutput() string {
	if s := p.lastOutput.Load(); s != nil {
		return *s
	}
	return ""
}

// Execute stages, builds, runs and cleans up one job. The caller's
// cancellation is ignored; the execution timeout bounds every phase. Cleanup
// runs on every exit path and a cleanup failure is never dropped.
func (p *Pipeline) Execute(ctx context.Context, job executor.ExecutionJob) (res executor.Result) {
	ctx = context.WithoutCancel(ctx)
	start := time.Now()
	log := p.logger.WithFields(logrus.Fields{
		"job":      job.ID,
		"language": job.Language,
	})
	p.transition(log, job, executor.StateReceived, nil)

	spec, ok := p.registry.Resolve(job.Language)
	if !ok {
		err := executor.WrapError(lang.ErrUnsupportedLanguage, executor.KindValidation, "Unsupported language")
		p.transition(log, job, executor.StateFailed, err)
		return executor.Result{Error: err, ExecutionTime: time.Since(start)}
	}

	ws, err := executor.NewWorkspace(p.workDir, job.ID, spec)
	if err != nil {
		p.transition(log, job, executor.StateFailed, err)
		return executor.Result{Error: err, ExecutionTime: time.Since(start)}
	}

	defer func() {
		if cerr := ws.Cleanup(); cerr != nil {
			log.WithError(cerr).Error("Workspace cleanup failed")
			if res.Error != nil {
				res.Error = errors.Join(res.Error, cerr)
			} else {
				res = executor.Result{Error: cerr}
			}
		}
		res.ExecutionTime = time.Since(start)
		p.transition(log.WithField("duration", res.ExecutionTime), job, executor.StateCleaned, res.Error)
	}()

	if err := ws.StageSource(job.Code); err != nil {
		return p.fail(log, job, err)
	}
	if err := ws.StageInput(job.Stdin); err != nil {
		return p.fail(log, job, err)
	}
	stdin := job.Stdin
	p.lastInput.Store(&stdin)
	p.transition(log, job, executor.StateStaged, nil)

	phases, err := p.registry.Synthesize(spec.ID, ws.Paths())
	if err != nil {
		return p.fail(log, job, executor.WrapError(err, executor.KindInternal, err.Error()))
	}
	p.transition(log, job, executor.StateCommandBuilt, nil)

	var last executor.Outcome
	for _, phase := range phases {
		p.transition(log.WithField("phase", phase.Name), job, executor.StateExecuting, nil)
		out, err := p.runner.Run(ctx, phase, ws.Dir, p.limits)
		if err != nil {
			return p.fail(log.WithField("phase", phase.Name), job, err)
		}
		last = out
	}

	output, truncated, err := ws.ReadOutput(p.limits.MaxOutputBytes)
	if err != nil {
		return p.fail(log, job, err)
	}
	text := string(output)
	p.lastOutput.Store(&text)
	p.transition(log, job, executor.StateSucceeded, nil)

	return executor.Result{
		Output:    text,
		Truncated: truncated || last.Truncated,
	}
}

func (p *Pipeline) fail(log *logrus.Entry, job executor.ExecutionJob, err error) executor.Result {
	p.transition(log, job, executor.StateFailed, err)
	return executor.Result{Error: err}
}

func (p *Pipeline) transition(log *logrus.Entry, job executor.ExecutionJob, state executor.JobState, err error) {
	p.tracker.SetState(job.ID, state)

	entry := log.WithField("state", state)
	level := zapcore.DebugLevel
	if state == executor.StateCleaned {
		level = zapcore.InfoLevel
	}
	if err != nil {
		level = zapcore.WarnLevel
		entry.WithFields(logrus.Fields{
			"kind":  executor.KindOf(err),
			"error": err.Error(),
		}).Warn("Job state changed")
	} else {
		entry.Debug("Job state changed")
	}

	if p.tracer != nil {
		attrs := map[string]any{
			"language": job.Language,
			"state":    string(state),
		}
		if err != nil {
			attrs["kind"] = string(executor.KindOf(err))
		}
		p.tracer.Log(level, job.ID, "job "+string(state), attrs, traceLayer, err)
	}
}
