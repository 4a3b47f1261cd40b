package processor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/gridwatch/errors"
	"github.com/c360/gridwatch/message"
)

func TestCheckFinite(t *testing.T) {
	tests := []struct {
		name    string
		values  []float64
		wantErr bool
	}{
		{"empty", nil, false},
		{"finite", []float64{1, -2.5, 0}, false},
		{"nan", []float64{1, math.NaN()}, true},
		{"positive inf", []float64{math.Inf(1)}, true},
		{"negative inf", []float64{3, math.Inf(-1), 4}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckFinite("test", tt.values)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrInvalidData)
			assert.True(t, errors.IsInvalid(err))
		})
	}
}

func TestUnexpectedPayload(t *testing.T) {
	err := UnexpectedPayload("trend", message.KindSeries, &message.TrendResult{})
	assert.ErrorIs(t, err, errors.ErrContractViolation)
	assert.Contains(t, err.Error(), "expected series payload, got trend")

	err = UnexpectedPayload("trend", message.KindSeries, nil)
	assert.Contains(t, err.Error(), "<nil>")
}
