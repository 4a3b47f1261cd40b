package testutil

import (
	"encoding/json"
	"fmt"
)

// ReadingJSON encodes a reading in the wire format consumed by natssource.
func ReadingJSON(sensorID string, tick uint64, value float64) []byte {
	data, err := json.Marshal(map[string]any{
		"sensor_id": sensorID,
		"tick":      tick,
		"value":     value,
	})
	if err != nil {
		panic(fmt.Sprintf("testutil: encode reading: %v", err))
	}
	return data
}

// Ramp returns n values starting at start and increasing by step.
func Ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

// Constant returns n copies of v.
func Constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
