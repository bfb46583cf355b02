package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"algotrader/types"
)

// DatedValue is one point of a named time series.
type DatedValue struct {
	DateTime time.Time
	Value    decimal.Decimal
}

// ReturnsAnalyzer accumulates simple per-period returns of the
// strategy's equity, plus daily returns where sub-daily periods
// compound within the same calendar day.
type ReturnsAnalyzer struct {
	prevEquity decimal.Decimal
	first      decimal.Decimal
	last       decimal.Decimal

	returns []DatedValue

	curDay    time.Time
	dayFactor decimal.Decimal
	daily     []DatedValue
}

func NewReturnsAnalyzer() *ReturnsAnalyzer {
	return &ReturnsAnalyzer{dayFactor: decimal.NewFromInt(1)}
}

func (a *ReturnsAnalyzer) OnEvent(ev Event) {
	switch ev.Kind {
	case types.EventBarProcessed:
		a.observe(ev.Snapshot)
	case types.EventFinish:
		a.flushDay()
	}
}

func (a *ReturnsAnalyzer) observe(snap StrategySnapshot) {
	equity := snap.Equity
	if a.first.IsZero() {
		a.first = equity
	}
	a.last = equity

	if !a.prevEquity.IsZero() {
		r := equity.Div(a.prevEquity).Sub(decimal.NewFromInt(1))
		a.returns = append(a.returns, DatedValue{DateTime: snap.DateTime, Value: r})

		day := snap.DateTime.Truncate(24 * time.Hour)
		if a.curDay.IsZero() {
			a.curDay = day
		}
		if !day.Equal(a.curDay) {
			a.flushDay()
			a.curDay = day
		}
		a.dayFactor = a.dayFactor.Mul(decimal.NewFromInt(1).Add(r))
	}
	a.prevEquity = equity
}

func (a *ReturnsAnalyzer) flushDay() {
	if a.curDay.IsZero() {
		return
	}
	a.daily = append(a.daily, DatedValue{
		DateTime: a.curDay,
		Value:    a.dayFactor.Sub(decimal.NewFromInt(1)),
	})
	a.dayFactor = decimal.NewFromInt(1)
}

// Returns is the simple per-period return series.
func (a *ReturnsAnalyzer) Returns() []DatedValue {
	return a.returns
}

// DailyReturns compounds per-period returns within each calendar day.
func (a *ReturnsAnalyzer) DailyReturns() []DatedValue {
	return a.daily
}

// CumulativeReturn is the total return over the whole run.
func (a *ReturnsAnalyzer) CumulativeReturn() decimal.Decimal {
	if a.first.IsZero() {
		return decimal.Zero
	}
	return a.last.Div(a.first).Sub(decimal.NewFromInt(1))
}
