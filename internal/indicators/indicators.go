// Package indicators bridges the engine's decimal price history onto
// the float64 series the gct-ta indicator math works with.
package indicators

import (
	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/gct-ta/indicators"
)

func ToFloats(values []decimal.Decimal) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		out[i] = values[i].InexactFloat64()
	}
	return out
}

// SMA returns the simple moving average series, or nil while fewer than
// period values are available.
func SMA(closes []float64, period int) []float64 {
	if len(closes) < period {
		return nil
	}
	return indicators.SMA(closes, period)
}

func EMA(closes []float64, period int) []float64 {
	if len(closes) < period {
		return nil
	}
	return indicators.EMA(closes, period)
}

// RSI returns the relative strength index series; warmup requires
// period+1 closes.
func RSI(closes []float64, period int) []float64 {
	if len(closes) <= period {
		return nil
	}
	return indicators.RSI(closes, period)
}

// MACD returns the macd, signal and histogram series.
func MACD(closes []float64, fast, slow, signal int) (macd, signalLine, hist []float64) {
	if len(closes) < slow+signal {
		return nil, nil, nil
	}
	return indicators.MACD(closes, fast, slow, signal)
}

func Last(series []float64) (float64, bool) {
	if len(series) == 0 {
		return 0, false
	}
	return series[len(series)-1], true
}

// CrossAbove reports whether series a crossed above series b on the
// final point: a was at or below b on the previous point and is above
// it now. Series are aligned on their last elements, so differing
// warmup lengths are fine.
func CrossAbove(a, b []float64) bool {
	if len(a) < 2 || len(b) < 2 {
		return false
	}
	return a[len(a)-2] <= b[len(b)-2] && a[len(a)-1] > b[len(b)-1]
}

func CrossBelow(a, b []float64) bool {
	if len(a) < 2 || len(b) < 2 {
		return false
	}
	return a[len(a)-2] >= b[len(b)-2] && a[len(a)-1] < b[len(b)-1]
}
