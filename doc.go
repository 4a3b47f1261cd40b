// Package gridwatch is a staged stream processor for periodic sensor readings.
//
// Each tick, the readings of a sensor group form one batch. The batch runs
// through a fixed chain of stateful numeric stages:
//
//   - noise reduction: a trailing moving average over a bounded window
//   - trend extraction: an ordinary least squares line over the index
//   - anomaly detection: population z-scores against a fixed threshold
//
// # Architecture
//
//	sensor.Registry ──▶ pipeline.Pipeline ──▶ driver.Sink
//	                    noise ─▶ trend ─▶ anomaly
//
// Stages implement processor.Stage and declare the payload kind they accept
// and emit. pipeline.New checks that adjacent stages agree, and the pipeline
// checks every payload against those declarations at runtime. A failure is
// returned as an errors.StageError naming the stage and its position.
//
// Only the noise reducer carries state between ticks. Each pipeline
// instance owns its window and serializes its invocations; the driver gives
// every sensor group its own pipeline.
//
// # Packages
//
//   - message: readings and the payloads passed between stages
//   - processor, processor/noise, processor/trend, processor/anomaly: stages
//   - pipeline: composition, single-flight invocation, statistics
//   - pkg/window: the bounded ring buffer behind the noise reducer
//   - sensor, natssource: local and NATS-fed reading sources
//   - driver: the tick loop, worker pool and result sinks
//   - config, metric, health, natsclient, errors: supporting infrastructure
//   - cmd/gridwatch: the runnable service
//
// # Quick Start
//
//	p, err := pipeline.NewDefault(pipeline.Config{WindowSize: 3, AnomalyThreshold: 3.0})
//	if err != nil {
//		return err
//	}
//	result, err := p.Run(ctx, message.Series{1, 2, 3, 4, 100})
//	if err != nil {
//		return err
//	}
//	for _, a := range result.Anomalies {
//		fmt.Printf("index %d value %.2f z %.2f\n", a.Index, a.Value, a.ZScore)
//	}
package gridwatch
