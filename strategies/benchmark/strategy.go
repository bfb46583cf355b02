// Package benchmark implements a delayed buy-and-hold over the whole
// instrument universe. Run it against the same feed (after a Reset) as
// a real strategy to get a market baseline.
package benchmark

import (
	"github.com/shopspring/decimal"

	"algotrader/internal/engine"
	"algotrader/types"
)

type Strategy struct {
	*engine.BaseStrategy
	instruments []string
	delay       int
}

// New builds a benchmark that waits delay bars before buying, so it
// enters on the same bar as a strategy whose indicators need delay bars
// of warmup.
func New(cfg *engine.StrategyConfig, instruments []string, delay int) *Strategy {
	return &Strategy{
		BaseStrategy: engine.NewBaseStrategy(cfg),
		instruments:  instruments,
		delay:        delay,
	}
}

func (s *Strategy) OnBars(bars *types.BarSet) error {
	if s.delay > 0 {
		s.delay--
		return nil
	}

	for _, instrument := range s.instruments {
		if !bars.Contains(instrument) || !s.CanEnter(instrument) {
			continue
		}
		bar, _ := bars.Get(instrument)
		shares := s.CalcShares(bar.Price(s.Broker().UseAdjustedValues()))
		if shares.LessThanOrEqual(decimal.Zero) {
			continue
		}
		if _, err := s.EnterLong(instrument, shares, true); err != nil {
			return err
		}
	}
	return nil
}

func (s *Strategy) OnEnterOk(p *engine.Position) {
	s.logOp("BUY", p.EntryOrder())
}

func (s *Strategy) OnEnterCanceled(p *engine.Position) {
	s.logOp("BUY CANCELED", p.EntryOrder())
}

func (s *Strategy) OnExitOk(p *engine.Position) {
	s.logOp("SELL", p.ExitOrder())
}

// OnExitCanceled treats the cancellation as transient and re-submits
// the exit.
func (s *Strategy) OnExitCanceled(p *engine.Position) {
	p.ExitMarket(true)
	s.logOp("SELL CANCELED, RETRYING", p.ExitOrder())
}

func (s *Strategy) logOp(op string, o *engine.Order) {
	s.Logger().Printf("[%d] %s %s qty=%s avg=%s", s.OpenPositions(), op, o.Instrument(), o.Filled(), o.AvgFillPrice())
}
