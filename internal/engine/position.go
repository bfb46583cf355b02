package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"algotrader/types"
)

// Position pairs one entry order with at most one exit order for a
// single instrument. Positions are owned by the strategy that created
// them; the broker only ever sees the orders. Shares are signed:
// positive long, negative short.
type Position struct {
	instrument string
	entry      *Order
	exit       *Order
	shares     decimal.Decimal
	strat      *BaseStrategy
}

func (p *Position) Instrument() string {
	return p.instrument
}

// Shares is the signed share count, non-zero only after the entry order
// has (partially) filled.
func (p *Position) Shares() decimal.Decimal {
	return p.shares
}

func (p *Position) EntryOrder() *Order {
	return p.entry
}

func (p *Position) ExitOrder() *Order {
	return p.exit
}

// EntryActive reports whether the entry order is still pending.
func (p *Position) EntryActive() bool {
	return p.entry.IsActive()
}

// ExitActive reports whether an exit order is pending. Strategies must
// check this before requesting another exit.
func (p *Position) ExitActive() bool {
	return p.exit != nil && p.exit.IsActive()
}

// IsOpen reports whether the position still holds shares or has an
// entry in flight.
func (p *Position) IsOpen() bool {
	return !p.shares.IsZero() || p.entry.IsActive()
}

// exitAction maps the entry action onto the action that unwinds it.
func (p *Position) exitAction() types.OrderAction {
	if p.entry.Action() == types.ActionBuy {
		return types.ActionSell
	}
	return types.ActionBuyToCover
}

// ExitMarket requests a market-order exit. If the entry order is still
// pending and nothing has filled yet, the entry is canceled instead.
func (p *Position) ExitMarket(gtc bool) error {
	return p.exitWith(func(action types.OrderAction, qty decimal.Decimal) *Order {
		return NewMarketOrder(action, p.instrument, qty, gtc)
	})
}

func (p *Position) ExitLimit(limitPrice decimal.Decimal, gtc bool) error {
	return p.exitWith(func(action types.OrderAction, qty decimal.Decimal) *Order {
		return NewLimitOrder(action, p.instrument, limitPrice, qty, gtc)
	})
}

func (p *Position) ExitStop(stopPrice decimal.Decimal, gtc bool) error {
	return p.exitWith(func(action types.OrderAction, qty decimal.Decimal) *Order {
		return NewStopOrder(action, p.instrument, stopPrice, qty, gtc)
	})
}

func (p *Position) ExitStopLimit(stopPrice, limitPrice decimal.Decimal, gtc bool) error {
	return p.exitWith(func(action types.OrderAction, qty decimal.Decimal) *Order {
		return NewStopLimitOrder(action, p.instrument, stopPrice, limitPrice, qty, gtc)
	})
}

// ExitTrailing requests a trailing-stop exit whose trigger tracks the
// last observed price by trailPct.
func (p *Position) ExitTrailing(trailPct decimal.Decimal, gtc bool) error {
	return p.exitWith(func(action types.OrderAction, qty decimal.Decimal) *Order {
		return NewTrailingStopOrder(action, p.instrument, trailPct, qty, gtc)
	})
}

func (p *Position) exitWith(build func(types.OrderAction, decimal.Decimal) *Order) error {
	if p.ExitActive() {
		return ExitActiveErr
	}
	if p.shares.IsZero() {
		if p.entry.IsActive() {
			return p.strat.broker.Cancel(p.entry)
		}
		return AlreadyTerminalErr
	}
	return p.SetExitOrder(build(p.exitAction(), p.shares.Abs()))
}

// SetExitOrder registers and submits a caller-built exit order. This is
// the supported way to attach custom stop orders to a position; it
// rejects if an exit is already pending or the order does not belong to
// this position's instrument.
func (p *Position) SetExitOrder(o *Order) error {
	if p.ExitActive() {
		return ExitActiveErr
	}
	if o.Instrument() != p.instrument {
		return fmt.Errorf("exit order instrument %q does not match position %q", o.Instrument(), p.instrument)
	}
	if o.State() != types.StateInitial {
		return AlreadyTerminalErr
	}
	if p.shares.IsZero() && !p.entry.IsActive() {
		return AlreadyTerminalErr
	}
	if err := p.strat.broker.Submit(o); err != nil {
		return err
	}
	p.exit = o
	p.strat.track(o, p)
	return nil
}

// CancelEntry cancels a still-pending entry order.
func (p *Position) CancelEntry() error {
	return p.strat.broker.Cancel(p.entry)
}

// CancelExit cancels a still-pending exit order.
func (p *Position) CancelExit() error {
	if p.exit == nil {
		return AlreadyTerminalErr
	}
	return p.strat.broker.Cancel(p.exit)
}

// applyFill folds an execution on one of the position's orders into the
// signed share count.
func (p *Position) applyFill(o *Order, info *ExecutionInfo) {
	qty := info.Quantity
	switch o.Action() {
	case types.ActionBuy, types.ActionBuyToCover:
		p.shares = p.shares.Add(qty)
	case types.ActionSell, types.ActionSellShort:
		p.shares = p.shares.Sub(qty)
	}
}
