package types

type OrderAction string

type OrderKind string

type OrderState string

const (
	ActionBuy        OrderAction = "BUY"
	ActionSell       OrderAction = "SELL"
	ActionSellShort  OrderAction = "SELL_SHORT"
	ActionBuyToCover OrderAction = "BUY_TO_COVER"

	KindMarket    OrderKind = "MARKET"
	KindLimit     OrderKind = "LIMIT"
	KindStop      OrderKind = "STOP"
	KindStopLimit OrderKind = "STOP_LIMIT"

	StateInitial         OrderState = "INITIAL"
	StateSubmitted       OrderState = "SUBMITTED"
	StateAccepted        OrderState = "ACCEPTED"
	StatePartiallyFilled OrderState = "PARTIALLY_FILLED"
	StateFilled          OrderState = "FILLED"
	StateCanceled        OrderState = "CANCELED"
)

// IsBuy reports whether the action increases the signed share count.
func (a OrderAction) IsBuy() bool {
	return a == ActionBuy || a == ActionBuyToCover
}

// Terminal reports whether the state admits no further transitions.
func (s OrderState) Terminal() bool {
	return s == StateFilled || s == StateCanceled
}

// EventKind labels the run events delivered to analyzers and strategy
// callbacks.
type EventKind string

const (
	EventEnterOk       EventKind = "ENTER_OK"
	EventEnterCanceled EventKind = "ENTER_CANCELED"
	EventExitOk        EventKind = "EXIT_OK"
	EventExitCanceled  EventKind = "EXIT_CANCELED"
	EventBarProcessed  EventKind = "BAR_PROCESSED"
	EventFinish        EventKind = "FINISH"
)
