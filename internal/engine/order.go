package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"algotrader/types"
)

// ExecutionInfo is produced once per fill (possibly several times for
// partial fills) and attached to the triggering order.
type ExecutionInfo struct {
	Price      decimal.Decimal
	Quantity   decimal.Decimal
	DateTime   time.Time
	Commission decimal.Decimal
}

// Order is a directive to trade one instrument. Strategies create
// orders; only the broker mutates them during matching. Once an order
// reaches FILLED or CANCELED it never changes again.
type Order struct {
	id               string
	instrument       string
	action           types.OrderAction
	kind             types.OrderKind
	quantity         decimal.Decimal
	state            types.OrderState
	limitPrice       decimal.Decimal
	stopPrice        decimal.Decimal
	trailPct         decimal.Decimal
	refPrice         decimal.Decimal
	trailing         bool
	stopHit          bool
	goodTillCanceled bool
	filled           decimal.Decimal
	avgFillPrice     decimal.Decimal
	commissions      decimal.Decimal
	executions       []ExecutionInfo
	cancelReason     string
	seq              int
}

func newOrder(action types.OrderAction, kind types.OrderKind, instrument string, quantity decimal.Decimal, gtc bool) *Order {
	return &Order{
		id:               uuid.NewString(),
		instrument:       instrument,
		action:           action,
		kind:             kind,
		quantity:         quantity,
		state:            types.StateInitial,
		goodTillCanceled: gtc,
	}
}

func NewMarketOrder(action types.OrderAction, instrument string, quantity decimal.Decimal, gtc bool) *Order {
	return newOrder(action, types.KindMarket, instrument, quantity, gtc)
}

func NewLimitOrder(action types.OrderAction, instrument string, limitPrice, quantity decimal.Decimal, gtc bool) *Order {
	o := newOrder(action, types.KindLimit, instrument, quantity, gtc)
	o.limitPrice = limitPrice
	return o
}

func NewStopOrder(action types.OrderAction, instrument string, stopPrice, quantity decimal.Decimal, gtc bool) *Order {
	o := newOrder(action, types.KindStop, instrument, quantity, gtc)
	o.stopPrice = stopPrice
	return o
}

func NewStopLimitOrder(action types.OrderAction, instrument string, stopPrice, limitPrice, quantity decimal.Decimal, gtc bool) *Order {
	o := newOrder(action, types.KindStopLimit, instrument, quantity, gtc)
	o.stopPrice = stopPrice
	o.limitPrice = limitPrice
	return o
}

// NewTrailingStopOrder creates a stop order whose trigger price tracks a
// high-water reference for SELL-type actions or a low-water reference
// for BUY-type actions. The stop price is ref*(1-trailPct) for sells and
// ref*(1+trailPct) for buys.
func NewTrailingStopOrder(action types.OrderAction, instrument string, trailPct, quantity decimal.Decimal, gtc bool) *Order {
	o := newOrder(action, types.KindStop, instrument, quantity, gtc)
	o.trailing = true
	o.trailPct = trailPct
	return o
}

func (o *Order) ID() string                    { return o.id }
func (o *Order) Instrument() string            { return o.instrument }
func (o *Order) Action() types.OrderAction     { return o.action }
func (o *Order) Kind() types.OrderKind         { return o.kind }
func (o *Order) Quantity() decimal.Decimal     { return o.quantity }
func (o *Order) State() types.OrderState       { return o.state }
func (o *Order) LimitPrice() decimal.Decimal   { return o.limitPrice }
func (o *Order) GoodTillCanceled() bool        { return o.goodTillCanceled }
func (o *Order) Filled() decimal.Decimal       { return o.filled }
func (o *Order) AvgFillPrice() decimal.Decimal { return o.avgFillPrice }
func (o *Order) Commissions() decimal.Decimal  { return o.commissions }
func (o *Order) CancelReason() string          { return o.cancelReason }
func (o *Order) IsActive() bool                { return !o.state.Terminal() }
func (o *Order) Trailing() bool                { return o.trailing }

func (o *Order) Remaining() decimal.Decimal {
	return o.quantity.Sub(o.filled)
}

// Executions returns a copy of the fill history.
func (o *Order) Executions() []ExecutionInfo {
	out := make([]ExecutionInfo, len(o.executions))
	copy(out, o.executions)
	return out
}

// StopPrice returns the current trigger price. For trailing stops it is
// recomputed from the reference price on every call.
func (o *Order) StopPrice() decimal.Decimal {
	if !o.trailing {
		return o.stopPrice
	}
	if o.refPrice.IsZero() {
		return decimal.Zero
	}
	one := decimal.NewFromInt(1)
	if o.action == types.ActionSell {
		return o.refPrice.Mul(one.Sub(o.trailPct))
	}
	return o.refPrice.Mul(one.Add(o.trailPct))
}

// updateRef moves the trailing reference in the favorable direction
// only: up for SELL stops, down for BUY_TO_COVER stops. Called by the
// broker on every observed last price, even before the stop triggers.
func (o *Order) updateRef(lastPrice decimal.Decimal) {
	if !o.trailing || lastPrice.IsZero() {
		return
	}
	if o.refPrice.IsZero() {
		o.refPrice = lastPrice
		return
	}
	if o.action == types.ActionSell {
		if lastPrice.GreaterThan(o.refPrice) {
			o.refPrice = lastPrice
		}
	} else if lastPrice.LessThan(o.refPrice) {
		o.refPrice = lastPrice
	}
}

func (o *Order) addExecution(info ExecutionInfo) {
	o.executions = append(o.executions, info)
	total := o.avgFillPrice.Mul(o.filled).Add(info.Price.Mul(info.Quantity))
	o.filled = o.filled.Add(info.Quantity)
	o.avgFillPrice = total.Div(o.filled)
	o.commissions = o.commissions.Add(info.Commission)
	if o.filled.GreaterThanOrEqual(o.quantity) {
		o.state = types.StateFilled
	} else {
		o.state = types.StatePartiallyFilled
	}
}

func (o *Order) cancel(reason string) {
	o.state = types.StateCanceled
	o.cancelReason = reason
}
