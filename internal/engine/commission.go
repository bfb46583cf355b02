package engine

import "github.com/shopspring/decimal"

// CommissionModel computes the fee for a single fill. Implementations
// must be pure functions of their inputs.
type CommissionModel interface {
	Calculate(order *Order, fillPrice, quantity decimal.Decimal) decimal.Decimal
}

type NoCommission struct{}

func (NoCommission) Calculate(*Order, decimal.Decimal, decimal.Decimal) decimal.Decimal {
	return decimal.Zero
}

// FixedPerTrade charges a flat amount on each fill.
type FixedPerTrade struct {
	Amount decimal.Decimal
}

func (c FixedPerTrade) Calculate(_ *Order, _, _ decimal.Decimal) decimal.Decimal {
	return c.Amount
}

// TradePercentage charges a percentage of the traded value, e.g. 0.002
// for 0.2%.
type TradePercentage struct {
	Percentage decimal.Decimal
}

func (c TradePercentage) Calculate(_ *Order, fillPrice, quantity decimal.Decimal) decimal.Decimal {
	return fillPrice.Mul(quantity).Mul(c.Percentage)
}

// TieredFee charges a rate on traded value clamped to a per-order
// minimum and maximum, the shape of most retail broker schedules.
// A zero Max means no cap.
type TieredFee struct {
	Rate decimal.Decimal
	Min  decimal.Decimal
	Max  decimal.Decimal
}

func (c TieredFee) Calculate(_ *Order, fillPrice, quantity decimal.Decimal) decimal.Decimal {
	value := fillPrice.Mul(quantity)
	if value.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	fee := value.Mul(c.Rate)
	if fee.LessThan(c.Min) {
		fee = c.Min
	}
	if !c.Max.IsZero() && fee.GreaterThan(c.Max) {
		fee = c.Max
	}
	return fee
}

// CommissionFunc adapts a plain function, for rules keyed on instrument
// or action.
type CommissionFunc func(order *Order, fillPrice, quantity decimal.Decimal) decimal.Decimal

func (f CommissionFunc) Calculate(order *Order, fillPrice, quantity decimal.Decimal) decimal.Decimal {
	return f(order, fillPrice, quantity)
}
