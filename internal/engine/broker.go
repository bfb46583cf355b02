package engine

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"algotrader/types"
)

type OrderEventKind string

const (
	OrderEventPartialFill OrderEventKind = "PARTIAL_FILL"
	OrderEventFill        OrderEventKind = "FILL"
	OrderEventCanceled    OrderEventKind = "CANCELED"
)

// OrderEvent is emitted once per fill (partial or final) and once per
// cancellation, synchronously, before the broker moves on to the next
// pending order in the same bar.
type OrderEvent struct {
	Order     *Order
	Kind      OrderEventKind
	Execution *ExecutionInfo
	Reason    string
	DateTime  time.Time
}

type OrderEventHandler interface {
	OnOrderEvent(ev *OrderEvent)
}

type BrokerConfig struct {
	InitialCash decimal.Decimal
	Commission  CommissionModel
	// VolumeLimit caps an order's fillable quantity per bar at this
	// fraction of the bar's volume. Zero disables the cap.
	VolumeLimit decimal.Decimal
	// AllowNegativeCash lets buys push cash below zero instead of
	// canceling with an insufficient-funds rejection.
	AllowNegativeCash bool
	// UseAdjustedValues scales every price the broker reads by the
	// bar's AdjClose/Close ratio. Fixed for the whole run.
	UseAdjustedValues bool
}

func NewBrokerConfig(initialCash decimal.Decimal, commission CommissionModel) *BrokerConfig {
	if commission == nil {
		commission = NoCommission{}
	}
	return &BrokerConfig{
		InitialCash: initialCash,
		Commission:  commission,
	}
}

// Broker is the simulated matching engine. It consumes one BarSet at a
// time, evaluates pending orders against bar prices in submission
// order, fills or cancels them, and keeps cash and holdings.
type Broker struct {
	cash        decimal.Decimal
	holdings    map[string]decimal.Decimal
	lastPrice   map[string]decimal.Decimal
	commission  CommissionModel
	volumeLimit decimal.Decimal
	allowDebt   bool
	useAdjusted bool
	pending     []*Order
	nextSeq     int
	handler     OrderEventHandler
	curTime     time.Time
}

func NewBroker(cfg *BrokerConfig) *Broker {
	commission := cfg.Commission
	if commission == nil {
		commission = NoCommission{}
	}
	return &Broker{
		cash:        cfg.InitialCash,
		holdings:    make(map[string]decimal.Decimal),
		lastPrice:   make(map[string]decimal.Decimal),
		commission:  commission,
		volumeLimit: cfg.VolumeLimit,
		allowDebt:   cfg.AllowNegativeCash,
		useAdjusted: cfg.UseAdjustedValues,
	}
}

// SetEventHandler registers the single synchronous consumer of order
// events. The runner wires itself in here.
func (b *Broker) SetEventHandler(h OrderEventHandler) {
	b.handler = h
}

func (b *Broker) Cash() decimal.Decimal {
	return b.cash
}

// Shares returns the signed share count held for an instrument.
func (b *Broker) Shares(instrument string) decimal.Decimal {
	return b.holdings[instrument]
}

// LastPrice returns the most recent mark-to-market price for an
// instrument: the close (adjusted per configuration) of the last bar
// the broker processed for it.
func (b *Broker) LastPrice(instrument string) decimal.Decimal {
	return b.lastPrice[instrument]
}

// Equity is cash plus the mark-to-market value of all holdings.
func (b *Broker) Equity() decimal.Decimal {
	eq := b.cash
	for instrument, shares := range b.holdings {
		eq = eq.Add(shares.Mul(b.lastPrice[instrument]))
	}
	return eq
}

func (b *Broker) UseAdjustedValues() bool {
	return b.useAdjusted
}

// PendingOrders returns the still-active submitted orders in
// submission order.
func (b *Broker) PendingOrders() []*Order {
	out := make([]*Order, 0, len(b.pending))
	for _, o := range b.pending {
		if o.IsActive() {
			out = append(out, o)
		}
	}
	return out
}

// Submit queues an order. The order skips evaluation for the bar being
// processed when it is submitted, so an order placed in reaction to bar
// N is never filled at bar N's own prices.
func (b *Broker) Submit(o *Order) error {
	if o.quantity.LessThanOrEqual(decimal.Zero) {
		return InvalidQuantityErr
	}
	if o.state != types.StateInitial {
		return AlreadyTerminalErr
	}
	o.state = types.StateSubmitted
	o.seq = b.nextSeq
	b.nextSeq++
	b.pending = append(b.pending, o)
	return nil
}

// Cancel cancels a pending order. Canceling an order that already
// reached FILLED or CANCELED returns AlreadyTerminalErr; it is never a
// silent no-op.
func (b *Broker) Cancel(o *Order) error {
	if o.state.Terminal() {
		return AlreadyTerminalErr
	}
	b.cancelOrder(o, ReasonCanceled)
	return nil
}

// ProcessBars runs one matching pass. Orders submitted before this call
// become ACCEPTED, mark-to-market prices (and trailing-stop references)
// update, then every accepted order is evaluated in submission order.
// Each fill or cancellation is delivered to the event handler before
// the next order is looked at. Orders submitted during this call (from
// inside a callback) stay SUBMITTED and are first evaluated on the
// following bar.
func (b *Broker) ProcessBars(bars *types.BarSet) {
	b.curTime = bars.DateTime()

	for _, o := range b.pending {
		if o.state == types.StateSubmitted {
			o.state = types.StateAccepted
		}
	}

	for _, instrument := range bars.Instruments() {
		bar, _ := bars.Get(instrument)
		last := bar.Price(b.useAdjusted)
		b.lastPrice[instrument] = last
		for _, o := range b.pending {
			if o.instrument == instrument {
				o.updateRef(last)
			}
		}
	}

	queue := make([]*Order, 0, len(b.pending))
	for _, o := range b.pending {
		if o.state == types.StateAccepted || o.state == types.StatePartiallyFilled {
			queue = append(queue, o)
		}
	}
	sort.SliceStable(queue, func(i, j int) bool { return queue[i].seq < queue[j].seq })

	for _, o := range queue {
		bar, ok := bars.Get(o.instrument)
		if !ok {
			// Sparse calendar: nothing to match against this bar.
			continue
		}
		b.evaluate(o, bar)
		if o.IsActive() && !o.goodTillCanceled {
			b.cancelOrder(o, ReasonExpired)
		}
	}

	active := b.pending[:0]
	for _, o := range b.pending {
		if o.IsActive() {
			active = append(active, o)
		}
	}
	b.pending = active
}

// evaluate matches one order against one bar, possibly producing a fill
// or a rejection.
func (b *Broker) evaluate(o *Order, bar types.Bar) {
	price, ok := b.fillPrice(o, bar)
	if !ok {
		return
	}

	quantity := o.Remaining()
	if !b.volumeLimit.IsZero() {
		maxQty := bar.Volume.Mul(b.volumeLimit).Floor()
		if quantity.GreaterThan(maxQty) {
			quantity = maxQty
		}
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return
	}

	fee := b.commission.Calculate(o, price, quantity)
	cost := price.Mul(quantity)

	if o.action.IsBuy() {
		total := cost.Add(fee)
		if !b.allowDebt && b.cash.LessThan(total) {
			b.cancelOrder(o, ReasonInsufficientFunds)
			return
		}
		b.cash = b.cash.Sub(total)
		b.holdings[o.instrument] = b.holdings[o.instrument].Add(quantity)
	} else {
		b.cash = b.cash.Add(cost).Sub(fee)
		b.holdings[o.instrument] = b.holdings[o.instrument].Sub(quantity)
	}

	info := ExecutionInfo{
		Price:      price,
		Quantity:   quantity,
		DateTime:   bar.Timestamp,
		Commission: fee,
	}
	o.addExecution(info)

	kind := OrderEventFill
	if o.state == types.StatePartiallyFilled {
		kind = OrderEventPartialFill
	}
	b.emit(&OrderEvent{
		Order:     o,
		Kind:      kind,
		Execution: &info,
		DateTime:  bar.Timestamp,
	})
}

// fillPrice decides whether the order fills on this bar and at what
// price. MARKET orders fill at the bar's open. LIMIT orders fill at the
// better of the limit price and the open when the bar gaps through the
// limit. STOP orders become market orders once the bar's range crosses
// the trigger: they fill at the trigger, at the open when gapping past
// it, and at the open of any later bar if a remainder is still active.
func (b *Broker) fillPrice(o *Order, bar types.Bar) (decimal.Decimal, bool) {
	ratio := decimal.NewFromInt(1)
	if b.useAdjusted {
		ratio = bar.AdjRatio()
	}
	open := bar.Open.Mul(ratio)
	high := bar.High.Mul(ratio)
	low := bar.Low.Mul(ratio)
	buy := o.action.IsBuy()

	switch o.kind {
	case types.KindMarket:
		return open, true

	case types.KindLimit:
		return limitFill(buy, o.limitPrice, open, high, low)

	case types.KindStop:
		// Once triggered the order is a market order; a remainder left
		// by a volume cap fills at later opens regardless of the range.
		if o.stopHit {
			return open, true
		}
		stop, hit := b.stopTrigger(o, open, high, low)
		if !hit {
			return decimal.Zero, false
		}
		if buy {
			if open.GreaterThanOrEqual(stop) {
				return open, true
			}
			return stop, true
		}
		if open.LessThanOrEqual(stop) {
			return open, true
		}
		return stop, true

	case types.KindStopLimit:
		if !o.stopHit {
			_, hit := b.stopTrigger(o, open, high, low)
			if !hit {
				return decimal.Zero, false
			}
		}
		return limitFill(buy, o.limitPrice, open, high, low)
	}
	return decimal.Zero, false
}

func (b *Broker) stopTrigger(o *Order, open, high, low decimal.Decimal) (decimal.Decimal, bool) {
	stop := o.StopPrice()
	if stop.IsZero() {
		return decimal.Zero, false
	}
	var hit bool
	if o.action.IsBuy() {
		hit = high.GreaterThanOrEqual(stop) || open.GreaterThanOrEqual(stop)
	} else {
		hit = low.LessThanOrEqual(stop) || open.LessThanOrEqual(stop)
	}
	if hit {
		o.stopHit = true
	}
	return stop, hit
}

func limitFill(buy bool, limit, open, high, low decimal.Decimal) (decimal.Decimal, bool) {
	if buy {
		if open.LessThanOrEqual(limit) {
			return open, true
		}
		if low.LessThanOrEqual(limit) {
			return limit, true
		}
		return decimal.Zero, false
	}
	if open.GreaterThanOrEqual(limit) {
		return open, true
	}
	if high.GreaterThanOrEqual(limit) {
		return limit, true
	}
	return decimal.Zero, false
}

func (b *Broker) cancelOrder(o *Order, reason string) {
	o.cancel(reason)
	b.emit(&OrderEvent{
		Order:    o,
		Kind:     OrderEventCanceled,
		Reason:   reason,
		DateTime: b.curTime,
	})
}

func (b *Broker) emit(ev *OrderEvent) {
	if b.handler != nil {
		b.handler.OnOrderEvent(ev)
	}
}
