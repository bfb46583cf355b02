package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"algotrader/types"
)

// DrawdownAnalyzer tracks peak-to-trough equity decline continuously,
// recording the deepest drawdown as a fraction of the peak and the
// longest stretch spent below a previous peak, in calendar days.
type DrawdownAnalyzer struct {
	peak        decimal.Decimal
	peakTime    time.Time
	maxDrawdown decimal.Decimal
	current     decimal.Decimal
	longest     time.Duration
}

func NewDrawdownAnalyzer() *DrawdownAnalyzer {
	return &DrawdownAnalyzer{}
}

func (a *DrawdownAnalyzer) OnEvent(ev Event) {
	if ev.Kind != types.EventBarProcessed && ev.Kind != types.EventFinish {
		return
	}
	equity := ev.Snapshot.Equity
	if equity.IsZero() && ev.Kind == types.EventFinish {
		return
	}

	if a.peak.IsZero() || equity.GreaterThanOrEqual(a.peak) {
		a.peak = equity
		a.peakTime = ev.DateTime
		a.current = decimal.Zero
		return
	}

	a.current = a.peak.Sub(equity).Div(a.peak)
	if a.current.GreaterThan(a.maxDrawdown) {
		a.maxDrawdown = a.current
	}
	if d := ev.DateTime.Sub(a.peakTime); d > a.longest {
		a.longest = d
	}
}

// MaxDrawdown is the deepest observed decline as a fraction of the
// preceding peak.
func (a *DrawdownAnalyzer) MaxDrawdown() decimal.Decimal {
	return a.maxDrawdown
}

// CurrentDrawdown is the decline from the latest peak at the most
// recent observation.
func (a *DrawdownAnalyzer) CurrentDrawdown() decimal.Decimal {
	return a.current
}

// LongestDuration is the longest time spent below a prior equity peak.
func (a *DrawdownAnalyzer) LongestDuration() time.Duration {
	return a.longest
}
