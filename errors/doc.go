// Package errors provides standardized error handling patterns for gridwatch components.
//
// # Overview
//
// The errors package implements a three-class error classification system:
// Transient (temporary, retryable), Invalid (bad input or configuration,
// non-retryable), and Fatal (unrecoverable, stop processing).
//
// Pipeline code uses the classes to decide what a failed tick means. A
// DivisionUndefined failure from the trend stage is Invalid for that tick
// only; the next tick runs normally. A configuration error is Invalid at
// construction time and the pipeline is never built.
//
// # Stage Failures
//
// Every error that escapes a pipeline stage is tagged with the stage name and
// its position in the pipeline:
//
//	result, err := p.Run(ctx, batch)
//	if se, ok := errors.AsStageError(err); ok {
//	    logger.Warn("tick failed", "stage", se.Stage, "position", se.Position, "error", se.Err)
//	}
//
// StageError unwraps to the cause, so errors.Is keeps working through it:
//
//	if errors.Is(err, errors.ErrDivisionUndefined) {
//	    // not enough distinct points in the window yet
//	}
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// Three wrapper functions provide classification-aware wrapping:
//
//	errors.WrapTransient(err, "Component", "Method", "action")  // For retryable errors
//	errors.WrapInvalid(err, "Component", "Method", "action")    // For validation errors
//	errors.WrapFatal(err, "Component", "Method", "action")      // For unrecoverable errors
//
// The generic Wrap() function adds context without changing the class.
//
// # Standard Error Variables
//
//   - Configuration: ErrInvalidConfig, ErrMissingConfig
//   - Numeric stages: ErrInvalidData, ErrDivisionUndefined
//   - Composition: ErrContractViolation, ErrPipelineBusy
//   - Connection: ErrNoConnection, ErrConnectionLost, ErrConnectionTimeout
//
// # Retry Configuration
//
// RetryConfig converts to the pkg/retry configuration used when connecting
// reading sources:
//
//	cfg := errors.DefaultRetryConfig().ToRetryConfig()
//	err := retry.Do(ctx, cfg, func() error { return client.Connect(ctx) })
package errors
