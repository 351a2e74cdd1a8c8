package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jsamuelsen/library-catalog/internal/platform/logging"
)

// Writes run as a five step pipeline:
//
//	validate → perform → verify → archive → respond
//
// Nothing is stored until the performed result has been verified, so a
// failing lookup or a malformed upstream record never reaches a repository.

// ExecutionStep names a pipeline step.
type ExecutionStep string

const (
	StepValidate ExecutionStep = "validate"
	StepPerform  ExecutionStep = "perform"
	StepVerify   ExecutionStep = "verify"
	StepArchive  ExecutionStep = "archive"
	StepRespond  ExecutionStep = "respond"
)

// ExecutionError records the step a pipeline stopped at.
type ExecutionError struct {
	Operation string
	Step      ExecutionStep
	Cause     error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Operation, e.Step, e.Cause)
}

// Unwrap exposes the cause so domain sentinels survive errors.Is.
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Operation holds the step functions of one pipeline. Nil steps are skipped
// and pass the zero value along.
type Operation[I, P, V, O any] struct {
	Name     string
	Validate func(ctx context.Context, input I) error
	Perform  func(ctx context.Context, input I) (P, error)
	Verify   func(ctx context.Context, input I, performed P) (V, error)
	Archive  func(ctx context.Context, input I, verified V) error
	Respond  func(ctx context.Context, input I, verified V) (O, error)
}

// Executor runs operations with step-level logging.
type Executor struct {
	logger *slog.Logger
}

// NewExecutor creates an executor. A nil logger falls back to slog.Default.
func NewExecutor(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{logger: logger}
}

// Execute runs op over input. The first failing step ends the run with an
// *ExecutionError.
func Execute[I, P, V, O any](ctx context.Context, exec *Executor, op Operation[I, P, V, O], input I) (O, error) {
	var (
		zero      O
		performed P
		verified  V
		result    O
	)

	logger := logging.FromContextOr(ctx, exec.logger).With(slog.String("operation", op.Name))
	start := time.Now()

	steps := []struct {
		step ExecutionStep
		run  func() error
	}{
		{StepValidate, func() error {
			if op.Validate == nil {
				return nil
			}

			return op.Validate(ctx, input)
		}},
		{StepPerform, func() (err error) {
			if op.Perform != nil {
				performed, err = op.Perform(ctx, input)
			}

			return err
		}},
		{StepVerify, func() (err error) {
			if op.Verify != nil {
				verified, err = op.Verify(ctx, input, performed)
			}

			return err
		}},
		{StepArchive, func() error {
			if op.Archive == nil {
				return nil
			}

			return op.Archive(ctx, input, verified)
		}},
		{StepRespond, func() (err error) {
			if op.Respond != nil {
				result, err = op.Respond(ctx, input, verified)
			}

			return err
		}},
	}

	for _, s := range steps {
		logger.DebugContext(ctx, "running step", slog.String("step", string(s.step)))

		if err := s.run(); err != nil {
			level := slog.LevelError
			if s.step == StepValidate {
				level = slog.LevelWarn
			}

			logger.Log(ctx, level, "step failed",
				slog.String("step", string(s.step)),
				slog.Any("error", err),
			)

			return zero, &ExecutionError{Operation: op.Name, Step: s.step, Cause: err}
		}
	}

	logger.InfoContext(ctx, "operation completed", slog.Duration("duration", time.Since(start)))

	return result, nil
}

// GetExecutionStep extracts the failed step from an execution error.
func GetExecutionStep(err error) (ExecutionStep, bool) {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Step, true
	}

	return "", false
}
