// Package processor defines the stage contract shared by every numeric
// transformation in a gridwatch pipeline.
//
// A Stage declares the payload Kind it accepts and the Kind it emits. The
// pipeline package uses those declarations to verify, when a pipeline is
// built, that each stage's output can be consumed by the next stage. Stages
// never hold references to other stages.
//
// Built-in stages live in subpackages:
//
//   - noise: trailing moving average over a bounded window (stateful)
//   - trend: ordinary least squares fit over the series index
//   - anomaly: population z-score detection against a fixed threshold
package processor
