package engine

import (
	"errors"
	"log"
	"os"

	"github.com/shopspring/decimal"

	"algotrader/types"
)

var MaxPositionsErr = errors.New("maximum concurrent positions reached")
var PositionOpenErr = errors.New("instrument already has an open position")

// Strategy is the set of hooks the runner drives. Embed *BaseStrategy
// to inherit default implementations and the order/position plumbing,
// then override OnBars and whichever callbacks the strategy cares
// about.
type Strategy interface {
	Base() *BaseStrategy
	OnStart() error
	OnBars(bars *types.BarSet) error
	OnEnterOk(p *Position)
	OnEnterCanceled(p *Position)
	OnExitOk(p *Position)
	OnExitCanceled(p *Position)
	OnFinish(bars *types.BarSet)
	// DiagnosticSeries exposes extra named series a variant wants
	// reported. Empty by default.
	DiagnosticSeries() map[string][]decimal.Decimal
}

type StrategyConfig struct {
	// MaxPositions caps concurrently open positions across all
	// instruments.
	MaxPositions int
	// LiquidityBuffer is the fraction of per-position capital left
	// uncommitted when sizing entries, e.g. 0.05.
	LiquidityBuffer decimal.Decimal
}

func NewStrategyConfig(maxPositions int, liquidityBuffer decimal.Decimal) *StrategyConfig {
	return &StrategyConfig{
		MaxPositions:    maxPositions,
		LiquidityBuffer: liquidityBuffer,
	}
}

// BaseStrategy carries position bookkeeping, sizing and logging shared
// by every strategy. It satisfies all of Strategy except OnBars.
type BaseStrategy struct {
	broker          *Broker
	feed            *Feed
	maxPositions    int
	liquidity       decimal.Decimal
	positions       map[string]*Position
	orderToPosition map[string]*Position
	logger          *log.Logger
}

func NewBaseStrategy(cfg *StrategyConfig) *BaseStrategy {
	maxPositions := cfg.MaxPositions
	if maxPositions <= 0 {
		maxPositions = 1
	}
	return &BaseStrategy{
		maxPositions:    maxPositions,
		liquidity:       cfg.LiquidityBuffer,
		positions:       make(map[string]*Position),
		orderToPosition: make(map[string]*Position),
		logger:          log.New(os.Stderr, "strategy ", log.LstdFlags),
	}
}

func (s *BaseStrategy) Base() *BaseStrategy { return s }

func (s *BaseStrategy) OnStart() error { return nil }

func (s *BaseStrategy) OnEnterOk(*Position) {}

func (s *BaseStrategy) OnEnterCanceled(*Position) {}

func (s *BaseStrategy) OnExitOk(*Position) {}

func (s *BaseStrategy) OnExitCanceled(*Position) {}

func (s *BaseStrategy) OnFinish(*types.BarSet) {}

func (s *BaseStrategy) DiagnosticSeries() map[string][]decimal.Decimal {
	return map[string][]decimal.Decimal{}
}

func (s *BaseStrategy) attach(broker *Broker, feed *Feed) {
	s.broker = broker
	s.feed = feed
}

func (s *BaseStrategy) Broker() *Broker { return s.broker }
func (s *BaseStrategy) Feed() *Feed     { return s.feed }

func (s *BaseStrategy) Logger() *log.Logger { return s.logger }

func (s *BaseStrategy) SetLogger(l *log.Logger) {
	if l != nil {
		s.logger = l
	}
}

// Position returns the open position for an instrument, or nil.
func (s *BaseStrategy) Position(instrument string) *Position {
	return s.positions[instrument]
}

func (s *BaseStrategy) HasPosition(instrument string) bool {
	return s.positions[instrument] != nil
}

func (s *BaseStrategy) OpenPositions() int {
	return len(s.positions)
}

// CanEnter reports whether an entry for the instrument would pass the
// position-count guard.
func (s *BaseStrategy) CanEnter(instrument string) bool {
	return !s.HasPosition(instrument) && len(s.positions) < s.maxPositions
}

// CalcShares sizes an entry: equity is split across the position slots,
// clipped to available cash, shaved by the liquidity buffer, and
// divided by the reference price, rounded down.
func (s *BaseStrategy) CalcShares(refPrice decimal.Decimal) decimal.Decimal {
	if refPrice.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	perPosition := s.broker.Equity().Div(decimal.NewFromInt(int64(s.maxPositions)))
	cash := s.broker.Cash()
	if perPosition.GreaterThan(cash) {
		perPosition = cash
	}
	perPosition = perPosition.Mul(decimal.NewFromInt(1).Sub(s.liquidity))
	return perPosition.Div(refPrice).Floor()
}

// EnterLong opens a long position with a market entry order.
func (s *BaseStrategy) EnterLong(instrument string, quantity decimal.Decimal, gtc bool) (*Position, error) {
	return s.enter(NewMarketOrder(types.ActionBuy, instrument, quantity, gtc))
}

// EnterShort opens a short position with a market entry order.
func (s *BaseStrategy) EnterShort(instrument string, quantity decimal.Decimal, gtc bool) (*Position, error) {
	return s.enter(NewMarketOrder(types.ActionSellShort, instrument, quantity, gtc))
}

func (s *BaseStrategy) EnterLongLimit(instrument string, limitPrice, quantity decimal.Decimal, gtc bool) (*Position, error) {
	return s.enter(NewLimitOrder(types.ActionBuy, instrument, limitPrice, quantity, gtc))
}

func (s *BaseStrategy) EnterShortLimit(instrument string, limitPrice, quantity decimal.Decimal, gtc bool) (*Position, error) {
	return s.enter(NewLimitOrder(types.ActionSellShort, instrument, limitPrice, quantity, gtc))
}

func (s *BaseStrategy) enter(entry *Order) (*Position, error) {
	if s.HasPosition(entry.Instrument()) {
		return nil, PositionOpenErr
	}
	if len(s.positions) >= s.maxPositions {
		return nil, MaxPositionsErr
	}
	if err := s.broker.Submit(entry); err != nil {
		return nil, err
	}
	pos := &Position{
		instrument: entry.Instrument(),
		entry:      entry,
		strat:      s,
	}
	s.positions[entry.Instrument()] = pos
	s.track(entry, pos)
	return pos, nil
}

func (s *BaseStrategy) track(o *Order, p *Position) {
	s.orderToPosition[o.ID()] = p
}

func (s *BaseStrategy) positionFor(o *Order) *Position {
	return s.orderToPosition[o.ID()]
}

func (s *BaseStrategy) release(p *Position) {
	if cur := s.positions[p.instrument]; cur == p {
		delete(s.positions, p.instrument)
	}
}
