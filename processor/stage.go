package processor

import (
	"context"
	"fmt"
	"math"

	"github.com/c360/gridwatch/errors"
	"github.com/c360/gridwatch/message"
)

// Stage is a single transformation step in a pipeline.
//
// Process must return a payload whose Kind equals Emits, and must only be
// handed payloads whose Kind equals Accepts. Stages with internal state are
// not required to be safe for concurrent use; the pipeline serializes calls.
type Stage interface {
	Name() string
	Accepts() message.Kind
	Emits() message.Kind
	Process(ctx context.Context, in message.Payload) (message.Payload, error)
}

// CheckFinite rejects NaN and infinite values.
func CheckFinite(component string, values []float64) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.WrapInvalid(
				fmt.Errorf("%w: non-finite value %v at index %d", errors.ErrInvalidData, v, i),
				component, "Process", "validate input")
		}
	}
	return nil
}

// Finite reports whether every value is neither NaN nor infinite.
func Finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Overflow builds the error returned when finite input drives a computed
// quantity out of the float64 range.
func Overflow(component, method, quantity string) error {
	return errors.WrapInvalid(
		fmt.Errorf("%w: %s is not finite, input magnitude exceeds float64 range", errors.ErrInvalidData, quantity),
		component, method, "compute "+quantity)
}

// UnexpectedPayload builds the error returned when a stage is handed a
// payload it does not accept.
func UnexpectedPayload(component string, want message.Kind, got message.Payload) error {
	kind := message.Kind("<nil>")
	if got != nil {
		kind = got.Kind()
	}
	return errors.WrapInvalid(
		fmt.Errorf("%w: expected %s payload, got %s", errors.ErrContractViolation, want, kind),
		component, "Process", "type check")
}
