// Package smacross trades a short/long simple-moving-average crossover
// per instrument: long while the short SMA is above the long SMA, flat
// otherwise.
package smacross

import (
	"github.com/shopspring/decimal"

	"algotrader/internal/engine"
	"algotrader/internal/indicators"
	"algotrader/types"
)

// crossGenerator advises Enter while the short SMA sits above the long
// SMA and Exit while it sits below. Hold during warmup.
type crossGenerator struct {
	shortPeriod int
	longPeriod  int
}

func (g crossGenerator) Evaluate(_ string, closes []float64) engine.Advice {
	short := indicators.SMA(closes, g.shortPeriod)
	long := indicators.SMA(closes, g.longPeriod)
	shortLast, okS := indicators.Last(short)
	longLast, okL := indicators.Last(long)
	if !okS || !okL {
		return engine.Hold
	}
	if shortLast > longLast {
		return engine.Enter
	}
	if shortLast < longLast {
		return engine.Exit
	}
	return engine.Hold
}

type Strategy struct {
	*engine.BaseStrategy
	instruments []string
	shortPeriod int
	longPeriod  int

	signal *engine.CompositeSignal
	closes map[string][]float64

	smaShort map[string][]decimal.Decimal
	smaLong  map[string][]decimal.Decimal
}

func New(cfg *engine.StrategyConfig, instruments []string, shortPeriod, longPeriod int) *Strategy {
	return &Strategy{
		BaseStrategy: engine.NewBaseStrategy(cfg),
		instruments:  instruments,
		shortPeriod:  shortPeriod,
		longPeriod:   longPeriod,
		signal: engine.NewCompositeSignal(engine.FirstMatch,
			crossGenerator{shortPeriod: shortPeriod, longPeriod: longPeriod}),
		closes:   make(map[string][]float64),
		smaShort: make(map[string][]decimal.Decimal),
		smaLong:  make(map[string][]decimal.Decimal),
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
		s.recordDiagnostics(instrument)

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

func (s *Strategy) recordDiagnostics(instrument string) {
	if v, ok := indicators.Last(indicators.SMA(s.closes[instrument], s.shortPeriod)); ok {
		s.smaShort[instrument] = append(s.smaShort[instrument], decimal.NewFromFloat(v))
	}
	if v, ok := indicators.Last(indicators.SMA(s.closes[instrument], s.longPeriod)); ok {
		s.smaLong[instrument] = append(s.smaLong[instrument], decimal.NewFromFloat(v))
	}
}

// DiagnosticSeries exposes the per-instrument SMA curves for reporting.
func (s *Strategy) DiagnosticSeries() map[string][]decimal.Decimal {
	out := make(map[string][]decimal.Decimal)
	for instrument, series := range s.smaShort {
		out["smaShort."+instrument] = series
	}
	for instrument, series := range s.smaLong {
		out["smaLong."+instrument] = series
	}
	return out
}

// OnExitCanceled retries the exit; cancellations are treated as
// transient.
func (s *Strategy) OnExitCanceled(p *engine.Position) {
	p.ExitMarket(true)
}
