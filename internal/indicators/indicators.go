// Package indicators computes technical indicators over a price column.
// Output slices are aligned with the input; bars without enough history
// hold NaN.
package indicators

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidWindow is returned for a window smaller than 1.
var ErrInvalidWindow = errors.New("indicator window must be >= 1")

// Indicator names used as keys in strategy outputs and chart exports.
const (
	NameSMA = "SMA"
	NameEMA = "EMA"
	NameRSI = "RSI"
)

// SMA is the simple moving average over window bars.
// The first window-1 values are NaN.
func SMA(values []float64, window int) ([]float64, error) {
	if window < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWindow, window)
	}
	return rollingMean(values, window), nil
}

// EMA is the exponential moving average with span window and
// alpha = 2/(window+1), seeded with the first value.
func EMA(values []float64, window int) ([]float64, error) {
	if window < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWindow, window)
	}
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out, nil
	}

	alpha := 2 / (float64(window) + 1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out, nil
}

// RSI is the relative strength index using simple rolling means of gains
// and losses. The first bar contributes a zero change. A window with gains
// and no losses is 100; a flat window is NaN.
func RSI(values []float64, window int) ([]float64, error) {
	if window < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWindow, window)
	}

	gains := make([]float64, len(values))
	losses := make([]float64, len(values))
	for i := 1; i < len(values); i++ {
		delta := values[i] - values[i-1]
		if delta > 0 {
			gains[i] = delta
		} else if delta < 0 {
			losses[i] = -delta
		}
	}

	avgGain := rollingMean(gains, window)
	avgLoss := rollingMean(losses, window)

	out := make([]float64, len(values))
	for i := range out {
		g, l := avgGain[i], avgLoss[i]
		switch {
		case math.IsNaN(g) || math.IsNaN(l):
			out[i] = math.NaN()
		case l == 0 && g == 0:
			out[i] = math.NaN()
		case l == 0:
			out[i] = 100
		default:
			out[i] = 100 - 100/(1+g/l)
		}
	}
	return out, nil
}

// rollingMean averages each full window ending at i; shorter prefixes are NaN.
func rollingMean(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if i+1 < window {
			out[i] = math.NaN()
			continue
		}
		sum := 0.0
		for _, v := range values[i+1-window : i+1] {
			sum += v
		}
		out[i] = sum / float64(window)
	}
	return out
}
