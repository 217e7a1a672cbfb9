package service

import (
	"context"
	"net/http"
	"strings"
	"time"

	"codeexec/executor"
	"codeexec/internal"
	"codeexec/model"

	"github.com/sirupsen/logrus"
)

const DefaultMaxCodeLength = 64 * 1024

const (
	msgRequiredFields      = "Language and code are required fields"
	msgUnsupportedLanguage = "Unsupported language"
)

// Options are the request-level checks applied before a job is queued.
type Options struct {
	MaxCodeLength int
	Sanitize      bool
}

// CompilerService validates requests and hands them to the worker pool.
type CompilerService struct {
	WorkerPool *executor.WorkerPool
	pipeline   *Pipeline
	opts       Options
	logger     *logrus.Logger
}

func NewCompilerService(workerPool *executor.WorkerPool, pipeline *Pipeline, opts Options, logger *logrus.Logger) *CompilerService {
	if opts.MaxCodeLength <= 0 {
		opts.MaxCodeLength = DefaultMaxCodeLength
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CompilerService{
		WorkerPool: workerPool,
		pipeline:   pipeline,
		opts:       opts,
		logger:     logger,
	}
}

// Execute validates req and runs it to completion. Validation failures never
// touch the filesystem.
func (s *CompilerService) Execute(ctx context.Context, req model.ExecutionRequest) executor.Result {
	language, err := s.validate(req)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"language": req.Language,
			"error":    err.Error(),
		}).Info("Request rejected")
		return executor.Result{Error: err}
	}

	job := executor.ExecutionJob{
		ID:        executor.NewToken(),
		Language:  language,
		Code:      req.Value,
		Stdin:     req.Input,
		CreatedAt: time.Now(),
	}
	return s.WorkerPool.ExecuteJob(ctx, job)
}

func (s *CompilerService) validate(req model.ExecutionRequest) (string, error) {
	if strings.TrimSpace(req.Language) == "" || req.Value == "" {
		return "", executor.NewError(executor.KindValidation, msgRequiredFields)
	}
	spec, ok := s.pipeline.Registry().Resolve(req.Language)
	if !ok {
		return "", executor.NewError(executor.KindValidation, msgUnsupportedLanguage)
	}
	if len(req.Value) > s.opts.MaxCodeLength {
		return "", executor.NewError(executor.KindValidation, "Code length exceeds maximum limit of %d bytes", s.opts.MaxCodeLength)
	}
	if s.opts.Sanitize {
		if err := internal.SanitizeCode(req.Value, spec.ID, s.opts.MaxCodeLength); err != nil {
			return "", executor.WrapError(err, executor.KindValidation, err.Error())
		}
	}
	return spec.ID, nil
}

func (s *CompilerService) LastInput() string {
	return s.pipeline.LastInput()
}

func (s *CompilerService) LastOutput() string {
	return s.pipeline.LastOutput()
}

func (s *CompilerService) Stats() executor.PoolStats {
	return s.WorkerPool.Stats()
}

// StatusCode maps an execution error to the HTTP status both transports
// report.
func StatusCode(err error) int {
	switch executor.KindOf(err) {
	case "":
		return http.StatusOK
	case executor.KindValidation:
		return http.StatusBadRequest
	case executor.KindBusy:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Response converts a result into its wire form. Output never accompanies an
// error.
func Response(res executor.Result) model.ExecutionResponse {
	if res.Error != nil {
		return model.ExecutionResponse{
			Error:      res.Error.Error(),
			StatusCode: StatusCode(res.Error),
		}
	}
	return model.ExecutionResponse{
		Output:     res.Output,
		Truncated:  res.Truncated,
		StatusCode: http.StatusOK,
	}
}
