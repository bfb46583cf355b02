package engine

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"algotrader/types"
)

// VolatilityAnalyzer computes the rolling annualized volatility of the
// strategy's daily returns: the sample standard deviation over a fixed
// trailing window of sessions, scaled by sqrt(252).
type VolatilityAnalyzer struct {
	sessions int

	prevEquity decimal.Decimal
	curDay     time.Time
	dayFactor  decimal.Decimal

	window []float64
	series []DatedValue
}

func NewVolatilityAnalyzer(sessions int) *VolatilityAnalyzer {
	if sessions < 2 {
		sessions = 2
	}
	return &VolatilityAnalyzer{
		sessions:  sessions,
		dayFactor: decimal.NewFromInt(1),
	}
}

func (a *VolatilityAnalyzer) OnEvent(ev Event) {
	switch ev.Kind {
	case types.EventBarProcessed:
		a.observe(ev.Snapshot)
	case types.EventFinish:
		a.closeDay(a.curDay)
	}
}

func (a *VolatilityAnalyzer) observe(snap StrategySnapshot) {
	day := snap.DateTime.Truncate(24 * time.Hour)
	if !a.curDay.IsZero() && !day.Equal(a.curDay) {
		a.closeDay(a.curDay)
	}
	a.curDay = day

	if !a.prevEquity.IsZero() {
		r := snap.Equity.Div(a.prevEquity).Sub(decimal.NewFromInt(1))
		a.dayFactor = a.dayFactor.Mul(decimal.NewFromInt(1).Add(r))
	}
	a.prevEquity = snap.Equity
}

func (a *VolatilityAnalyzer) closeDay(day time.Time) {
	if day.IsZero() {
		return
	}
	dailyReturn := a.dayFactor.Sub(decimal.NewFromInt(1)).InexactFloat64()
	a.dayFactor = decimal.NewFromInt(1)

	a.window = append(a.window, dailyReturn)
	if len(a.window) > a.sessions {
		a.window = a.window[1:]
	}
	if len(a.window) < a.sessions {
		return
	}
	vol := sampleStdDev(a.window) * math.Sqrt(252)
	a.series = append(a.series, DatedValue{
		DateTime: day,
		Value:    decimal.NewFromFloat(vol),
	})
}

// Series is the rolling annualized volatility, one point per session
// once the trailing window has filled.
func (a *VolatilityAnalyzer) Series() []DatedValue {
	return a.series
}

func sampleStdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	var varianceSum float64
	for _, x := range xs {
		diff := x - mean
		varianceSum += diff * diff
	}
	return math.Sqrt(varianceSum / float64(len(xs)-1))
}
