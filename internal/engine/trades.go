package engine

import (
	"github.com/shopspring/decimal"

	"algotrader/types"
)

// TradesAnalyzer reduces closed positions into win/loss/even counts,
// average profit and loss, and total commissions paid.
type TradesAnalyzer struct {
	winCount  int
	lossCount int
	evenCount int

	profitSum   decimal.Decimal
	lossSum     decimal.Decimal
	commissions decimal.Decimal
	results     []decimal.Decimal
}

func NewTradesAnalyzer() *TradesAnalyzer {
	return &TradesAnalyzer{}
}

func (a *TradesAnalyzer) OnEvent(ev Event) {
	if ev.Kind != types.EventExitOk || ev.Position == nil {
		return
	}
	pnl := tradePnL(ev.Position)
	a.results = append(a.results, pnl)
	a.commissions = a.commissions.Add(ev.Position.EntryOrder().Commissions())
	a.commissions = a.commissions.Add(ev.Position.ExitOrder().Commissions())

	switch {
	case pnl.IsPositive():
		a.winCount++
		a.profitSum = a.profitSum.Add(pnl)
	case pnl.IsNegative():
		a.lossCount++
		a.lossSum = a.lossSum.Add(pnl)
	default:
		a.evenCount++
	}
}

// tradePnL is the realized net profit of a closed position: price
// difference across entry and exit legs, net of both legs' commissions.
func tradePnL(p *Position) decimal.Decimal {
	entry := p.EntryOrder()
	exit := p.ExitOrder()
	qty := exit.Filled()
	diff := exit.AvgFillPrice().Sub(entry.AvgFillPrice())
	if entry.Action() == types.ActionSellShort {
		diff = diff.Neg()
	}
	return diff.Mul(qty).Sub(entry.Commissions()).Sub(exit.Commissions())
}

func (a *TradesAnalyzer) Count() int     { return len(a.results) }
func (a *TradesAnalyzer) WinCount() int  { return a.winCount }
func (a *TradesAnalyzer) LossCount() int { return a.lossCount }
func (a *TradesAnalyzer) EvenCount() int { return a.evenCount }

// AvgProfit is the mean profit across winning trades.
func (a *TradesAnalyzer) AvgProfit() decimal.Decimal {
	if a.winCount == 0 {
		return decimal.Zero
	}
	return a.profitSum.Div(decimal.NewFromInt(int64(a.winCount)))
}

// AvgLoss is the mean (negative) result across losing trades.
func (a *TradesAnalyzer) AvgLoss() decimal.Decimal {
	if a.lossCount == 0 {
		return decimal.Zero
	}
	return a.lossSum.Div(decimal.NewFromInt(int64(a.lossCount)))
}

func (a *TradesAnalyzer) TotalCommissions() decimal.Decimal {
	return a.commissions
}

// Results returns the realized net profit of each closed trade in
// close order.
func (a *TradesAnalyzer) Results() []decimal.Decimal {
	out := make([]decimal.Decimal, len(a.results))
	copy(out, a.results)
	return out
}
