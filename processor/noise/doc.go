// Package noise implements the noise reduction stage: a causal trailing
// moving average over a bounded window of the most recent samples.
//
// Each Process call appends the incoming batch to the reducer's window and
// evicts the oldest samples beyond WindowSize. The output has one point per
// retained sample; point i is the mean of the samples from max(0, i-w+1)
// through i, divided by the number of samples actually averaged. A constant
// signal therefore passes through unchanged.
//
// The window is the only state carried between ticks anywhere in a pipeline.
// It tracks the input stream, so a batch is retained even when a later stage
// rejects the tick.
package noise
