package testutil

import (
	"context"
	"sync/atomic"

	"github.com/c360/gridwatch/message"
)

// MockStage is a pipeline stage with configurable kinds and behavior.
// A nil ProcessFunc returns the input unchanged.
type MockStage struct {
	StageName   string
	In          message.Kind
	Out         message.Kind
	ProcessFunc func(ctx context.Context, in message.Payload) (message.Payload, error)

	calls atomic.Int32
}

// NewPassthroughStage returns a series-to-series stage that forwards its input.
func NewPassthroughStage(name string) *MockStage {
	return &MockStage{StageName: name, In: message.KindSeries, Out: message.KindSeries}
}

// Name implements processor.Stage
func (m *MockStage) Name() string { return m.StageName }

// Accepts implements processor.Stage
func (m *MockStage) Accepts() message.Kind { return m.In }

// Emits implements processor.Stage
func (m *MockStage) Emits() message.Kind { return m.Out }

// Process implements processor.Stage
func (m *MockStage) Process(ctx context.Context, in message.Payload) (message.Payload, error) {
	m.calls.Add(1)
	if m.ProcessFunc == nil {
		return in, nil
	}
	return m.ProcessFunc(ctx, in)
}

// Calls returns how many times Process ran
func (m *MockStage) Calls() int32 {
	return m.calls.Load()
}
