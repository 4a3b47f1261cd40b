package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			if result := test.class.String(); result != test.expected {
				t.Errorf("expected %s, got %s", test.expected, result)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection timeout", ErrConnectionTimeout, true},
		{"connection lost", ErrConnectionLost, true},
		{"pipeline busy", ErrPipelineBusy, true},
		{"context canceled", context.Canceled, true},
		{"invalid data", ErrInvalidData, false},
		{"division undefined", ErrDivisionUndefined, false},
		{"timeout in message", fmt.Errorf("operation timeout occurred"), true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, true},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if result := IsTransient(test.err); result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestIsInvalid(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"invalid data", ErrInvalidData, true},
		{"invalid config", ErrInvalidConfig, true},
		{"division undefined", ErrDivisionUndefined, true},
		{"contract violation", ErrContractViolation, true},
		{"tagged division undefined", NewStageError("trend", 1, ErrDivisionUndefined), true},
		{"connection timeout", ErrConnectionTimeout, false},
		{"classified invalid", &ClassifiedError{Class: ErrorInvalid, Err: fmt.Errorf("test")}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if result := IsInvalid(test.err); result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	if IsFatal(nil) {
		t.Error("nil error should not be fatal")
	}
	if !IsFatal(ErrResourceExhausted) {
		t.Error("resource exhausted should be fatal")
	}
	if !IsFatal(fmt.Errorf("panic: system failure")) {
		t.Error("panic message should be fatal")
	}
	if IsFatal(ErrInvalidData) {
		t.Error("invalid data should not be fatal")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorClass
	}{
		{"config", ErrInvalidConfig, ErrorInvalid},
		{"stage failure", NewStageError("trend", 1, ErrDivisionUndefined), ErrorInvalid},
		{"busy", ErrPipelineBusy, ErrorTransient},
		{"fatal", ErrResourceExhausted, ErrorFatal},
		{"wrapped fatal keeps class", WrapFatal(ErrInvalidData, "C", "M", "a"), ErrorFatal},
		{"unknown defaults to transient", fmt.Errorf("something odd"), ErrorTransient},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if result := Classify(test.err); result != test.expected {
				t.Errorf("expected %v, got %v", test.expected, result)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "C", "M", "a") != nil {
		t.Error("wrapping nil should return nil")
	}

	err := Wrap(ErrInvalidData, "TrendAnalyzer", "Process", "fit")
	expected := "TrendAnalyzer.Process: fit failed: invalid data format"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
	if !errors.Is(err, ErrInvalidData) {
		t.Error("wrapped error should match the original")
	}
}

func TestWrapClassified(t *testing.T) {
	err := WrapInvalid(ErrInvalidConfig, "Window", "New", "validate capacity")

	var ce *ClassifiedError
	if !errors.As(err, &ce) {
		t.Fatal("expected ClassifiedError")
	}
	if ce.Class != ErrorInvalid {
		t.Errorf("expected invalid class, got %v", ce.Class)
	}
	if ce.Component != "Window" || ce.Operation != "New" {
		t.Errorf("unexpected context: %s.%s", ce.Component, ce.Operation)
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Error("classified error should unwrap to the original")
	}
	if !IsConfiguration(err) {
		t.Error("expected configuration error")
	}
}

func TestStageError(t *testing.T) {
	if NewStageError("noise", 0, nil) != nil {
		t.Error("tagging nil should return nil")
	}

	err := NewStageError("trend", 1, ErrDivisionUndefined)
	if err.Error() != "stage 1 (trend): division undefined" {
		t.Errorf("unexpected message: %s", err.Error())
	}

	wrapped := fmt.Errorf("tick 7: %w", err)
	se, ok := AsStageError(wrapped)
	if !ok {
		t.Fatal("expected StageError in chain")
	}
	if se.Stage != "trend" || se.Position != 1 {
		t.Errorf("unexpected stage identity: %s/%d", se.Stage, se.Position)
	}
	if !errors.Is(wrapped, ErrDivisionUndefined) {
		t.Error("StageError should unwrap to the cause")
	}
	if !IsStageFailure(wrapped) {
		t.Error("expected stage failure")
	}
	if IsStageFailure(ErrInvalidData) {
		t.Error("bare error is not a stage failure")
	}
}

func TestRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()

	if !cfg.ShouldRetry(ErrConnectionTimeout, 0) {
		t.Error("transient error should be retried")
	}
	if cfg.ShouldRetry(ErrInvalidConfig, 0) {
		t.Error("invalid error should not be retried")
	}
	if cfg.ShouldRetry(ErrConnectionTimeout, cfg.MaxRetries) {
		t.Error("should stop after max retries")
	}

	rc := cfg.ToRetryConfig()
	if rc.MaxAttempts != cfg.MaxRetries+1 {
		t.Errorf("expected %d attempts, got %d", cfg.MaxRetries+1, rc.MaxAttempts)
	}
	if rc.InitialDelay != 100*time.Millisecond || !rc.AddJitter {
		t.Errorf("unexpected retry config: %+v", rc)
	}
}
