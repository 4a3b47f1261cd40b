// Package driver runs gridwatch pipelines on a fixed tick.
//
// A Driver owns one or more groups. Each group pairs a sensor registry with
// its own pipeline instance, so no two groups share a smoothing window. On
// every tick the driver submits one job per group to a worker pool; a job
// samples the group's sensors in registration order and runs the resulting
// batch through the group's pipeline with TryRun. If the previous tick of a
// group is still running, the new one is skipped and counted rather than
// queued behind it.
//
// Results, including per-tick failures, go to a Sink. The default sink logs
// with slog and rate limits repeated failure warnings.
//
// Tick runs one tick synchronously and is what tests use; Run drives ticks
// from a time.Ticker until its context is cancelled.
package driver
