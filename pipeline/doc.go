// Package pipeline composes processor stages into an ordered chain and runs
// one batch of readings through it per tick.
//
// # Composition
//
// A Pipeline owns an explicit ordered list of stages. New checks, before any
// data flows, that the Kind emitted by stage k equals the Kind accepted by
// stage k+1. A chain that passes this check cannot be miswired at runtime,
// but the pipeline still verifies every payload against the declared kinds
// and reports a stage that breaks its own declaration as a contract
// violation.
//
// The default chain is
//
//	noise.Reducer -> trend.Analyzer -> anomaly.Detector
//
// built by NewDefault from a Config.
//
// # Failure
//
// Stages run strictly in sequence. The first failure aborts the remaining
// stages and is returned as an *errors.StageError carrying the stage name and
// its position. A failed invocation returns no result. The noise reducer's
// window has already folded in the batch by then.
//
// # Concurrency
//
// Calls on one Pipeline are serialized. Run and Process wait for an
// in-flight invocation to finish; TryRun returns errors.ErrPipelineBusy
// instead. Separate pipelines share nothing and may run in parallel.
//
// # Usage
//
//	p, err := pipeline.NewDefault(pipeline.Config{WindowSize: 5, AnomalyThreshold: 3},
//	    pipeline.WithName("feeder-7"),
//	    pipeline.WithLogger(logger),
//	    pipeline.WithMetrics(registry),
//	)
//	if err != nil {
//	    return err
//	}
//	result, err := p.Run(ctx, message.SeriesFromReadings(readings))
package pipeline
