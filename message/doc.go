// Package message defines the values that flow between pipeline stages.
//
// A tick starts as a slice of Readings, one per sensor, which is reduced to a
// Series. Index order in a Series is the temporal axis: regression uses the
// index as its independent variable. Each stage consumes and produces a
// Payload whose Kind lets the pipeline check, at construction time, that the
// output of stage k is what stage k+1 accepts:
//
//	Series --noise--> Series --trend--> TrendResult --anomaly--> AnomalyResult
//
// Payload values are treated as immutable once a stage has returned them.
package message
