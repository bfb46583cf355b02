// Package rsireversal buys oversold dips inside an uptrend: the price
// must sit above a slow trend SMA while RSI is at or below the oversold
// threshold; the position exits when the price crosses above a fast
// exit SMA.
package rsireversal

import (
	"github.com/shopspring/decimal"

	"algotrader/internal/engine"
	"algotrader/internal/indicators"
	"algotrader/types"
)

// dipGenerator advises Enter on an oversold reading inside an uptrend.
type dipGenerator struct {
	entrySMA  int
	rsiPeriod int
	oversold  float64
}

func (g dipGenerator) Evaluate(_ string, closes []float64) engine.Advice {
	trend := indicators.SMA(closes, g.entrySMA)
	rsi := indicators.RSI(closes, g.rsiPeriod)
	trendLast, okT := indicators.Last(trend)
	rsiLast, okR := indicators.Last(rsi)
	if !okT || !okR {
		return engine.Hold
	}
	price := closes[len(closes)-1]
	if price > trendLast && rsiLast <= g.oversold {
		return engine.Enter
	}
	return engine.Hold
}

// recoverGenerator advises Exit when the price crosses above the fast
// SMA.
type recoverGenerator struct {
	exitSMA int
}

func (g recoverGenerator) Evaluate(_ string, closes []float64) engine.Advice {
	exit := indicators.SMA(closes, g.exitSMA)
	if len(exit) < 2 || len(closes) < 2 {
		return engine.Hold
	}
	if indicators.CrossAbove(closes, exit) {
		return engine.Exit
	}
	return engine.Hold
}

type Config struct {
	EntrySMA  int
	ExitSMA   int
	RSIPeriod int
	Oversold  float64
}

type Strategy struct {
	*engine.BaseStrategy
	instruments []string
	signal      *engine.CompositeSignal
	closes      map[string][]float64
}

func New(cfg *engine.StrategyConfig, instruments []string, params Config) *Strategy {
	return &Strategy{
		BaseStrategy: engine.NewBaseStrategy(cfg),
		instruments:  instruments,
		signal: engine.NewCompositeSignal(engine.FirstMatch,
			recoverGenerator{exitSMA: params.ExitSMA},
			dipGenerator{entrySMA: params.EntrySMA, rsiPeriod: params.RSIPeriod, oversold: params.Oversold},
		),
		closes: make(map[string][]float64),
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

		switch s.signal.Evaluate(instrument, s.closes[instrument]) {
		case engine.Enter:
			if !s.CanEnter(instrument) {
				continue
			}
			shares := s.CalcShares(price)
			if shares.LessThanOrEqual(decimal.Zero) {
				continue
			}
			if _, err := s.EnterLong(instrument, shares, true); err != nil {
				return err
			}

		case engine.Exit:
			pos := s.Position(instrument)
			if pos == nil || pos.ExitActive() {
				continue
			}
			if err := pos.ExitMarket(true); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Strategy) OnExitCanceled(p *engine.Position) {
	p.ExitMarket(true)
}
