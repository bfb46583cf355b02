package engine

import "errors"

var DuplicateInstrumentErr = errors.New("instrument already registered with the feed")
var FeedStartedErr = errors.New("feed already started")
var SourceUnavailableErr = errors.New("bar source unavailable")
var BadSourceDataErr = errors.New("bar source produced out-of-order data")
var AlreadyTerminalErr = errors.New("order is already in a terminal state")
var ExitActiveErr = errors.New("position already has an active exit order")
var InvalidQuantityErr = errors.New("order quantity must be positive")
var NotRunningErr = errors.New("run already finished or aborted")

// Cancel reasons carried on order events. Rejections surface through the
// callback channel, never as loop errors.
const (
	ReasonInsufficientFunds = "insufficient funds"
	ReasonExpired           = "order expired unfilled"
	ReasonCanceled          = "canceled by strategy"
)
