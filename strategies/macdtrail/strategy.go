// Package macdtrail trades MACD signal-line crossovers long and short,
// protecting every entry with a fixed or trailing stop exit. Meant to
// run with a broker that allows negative cash, the way a leveraged
// account would.
package macdtrail

import (
	"github.com/shopspring/decimal"

	"algotrader/internal/engine"
	"algotrader/internal/indicators"
	"algotrader/types"
)

type StopKind int

const (
	NoStop StopKind = iota
	FixedStop
	TrailingStop
)

type Config struct {
	FastPeriod   int
	SlowPeriod   int
	SignalPeriod int
	// StopPct is the stop distance as a fraction of the reference
	// price, e.g. 0.15.
	StopPct  decimal.Decimal
	StopKind StopKind
	// Leverage multiplies the computed share count.
	Leverage int64
}

type Strategy struct {
	*engine.BaseStrategy
	instruments []string
	cfg         Config
	closes      map[string][]float64
	// pending remembers a reversal direction while the unwinding exit
	// of the previous position is in flight.
	pending map[string]types.OrderAction
}

func New(scfg *engine.StrategyConfig, instruments []string, cfg Config) *Strategy {
	if cfg.Leverage <= 0 {
		cfg.Leverage = 1
	}
	return &Strategy{
		BaseStrategy: engine.NewBaseStrategy(scfg),
		instruments:  instruments,
		cfg:          cfg,
		closes:       make(map[string][]float64),
		pending:      make(map[string]types.OrderAction),
	}
}

func (s *Strategy) OnBars(bars *types.BarSet) error {
	adjusted := s.Broker().UseAdjustedValues()

	for _, instrument := range s.instruments {
		bar, ok := bars.Get(instrument)
		if !ok {
			continue
		}
		price := bar.Price(adjusted)
		s.closes[instrument] = append(s.closes[instrument], price.InexactFloat64())

		macd, signal, _ := indicators.MACD(s.closes[instrument],
			s.cfg.FastPeriod, s.cfg.SlowPeriod, s.cfg.SignalPeriod)
		if macd == nil {
			continue
		}

		switch {
		case indicators.CrossAbove(macd, signal):
			s.reverse(instrument, types.ActionBuy, price)
		case indicators.CrossBelow(macd, signal):
			s.reverse(instrument, types.ActionSellShort, price)
		}
	}
	return nil
}

// reverse unwinds an opposite position if one is held, then enters in
// the signaled direction, deferring the entry until the exit fills.
func (s *Strategy) reverse(instrument string, action types.OrderAction, price decimal.Decimal) {
	pos := s.Position(instrument)
	if pos != nil {
		sameDirection := (action == types.ActionBuy) == pos.Shares().IsPositive()
		if sameDirection {
			return
		}
		s.pending[instrument] = action
		if !pos.ExitActive() {
			pos.ExitMarket(true)
		} else if pos.ExitOrder().Trailing() {
			// Replace the protective stop with an immediate unwind.
			pos.CancelExit()
		}
		return
	}
	s.enter(instrument, action, price)
}

func (s *Strategy) enter(instrument string, action types.OrderAction, price decimal.Decimal) {
	if !s.CanEnter(instrument) {
		return
	}
	shares := s.CalcShares(price).Mul(decimal.NewFromInt(s.cfg.Leverage))
	if shares.LessThanOrEqual(decimal.Zero) {
		return
	}
	if action == types.ActionBuy {
		s.EnterLong(instrument, shares, true)
	} else {
		s.EnterShort(instrument, shares, true)
	}
}

// OnEnterOk attaches the configured protective stop to the fresh
// position.
func (s *Strategy) OnEnterOk(p *engine.Position) {
	entry := p.EntryOrder()
	long := entry.Action() == types.ActionBuy
	one := decimal.NewFromInt(1)

	switch s.cfg.StopKind {
	case FixedStop:
		var stop decimal.Decimal
		if long {
			stop = entry.AvgFillPrice().Mul(one.Sub(s.cfg.StopPct))
		} else {
			stop = entry.AvgFillPrice().Mul(one.Add(s.cfg.StopPct))
		}
		p.ExitStop(stop, true)

	case TrailingStop:
		action := types.ActionSell
		if !long {
			action = types.ActionBuyToCover
		}
		order := engine.NewTrailingStopOrder(action, p.Instrument(), s.cfg.StopPct, p.Shares().Abs(), true)
		p.SetExitOrder(order)
	}
}

// OnExitOk completes a deferred reversal once the unwinding exit has
// filled.
func (s *Strategy) OnExitOk(p *engine.Position) {
	instrument := p.Instrument()
	action, ok := s.pending[instrument]
	if !ok {
		return
	}
	delete(s.pending, instrument)
	s.enter(instrument, action, s.Broker().LastPrice(instrument))
}

func (s *Strategy) OnExitCanceled(p *engine.Position) {
	// A canceled protective stop during a reversal is expected; unwind
	// at market instead. Anything else retries the exit.
	p.ExitMarket(true)
}
