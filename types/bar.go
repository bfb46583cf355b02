package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar is one OHLCV data point for one instrument at one timestamp.
// Immutable once constructed; the engine never writes to a Bar after
// the feed hands it out.
type Bar struct {
	Instrument string
	Open       decimal.Decimal
	High       decimal.Decimal
	Low        decimal.Decimal
	Close      decimal.Decimal
	Volume     decimal.Decimal
	AdjClose   decimal.Decimal
	Extra      map[string]decimal.Decimal
	Interval   Interval
	Timestamp  time.Time
}

// AdjRatio is the factor that maps raw prices onto adjusted prices for
// this bar. Bars without an adjusted close report a ratio of 1.
func (b Bar) AdjRatio() decimal.Decimal {
	if b.AdjClose.IsZero() || b.Close.IsZero() {
		return decimal.NewFromInt(1)
	}
	return b.AdjClose.Div(b.Close)
}

// Price returns the bar's close, optionally scaled to adjusted values.
func (b Bar) Price(adjusted bool) decimal.Decimal {
	if adjusted {
		return b.Close.Mul(b.AdjRatio())
	}
	return b.Close
}

// BarSet is a synchronized cross-instrument snapshot for one timestamp.
// Instruments iterate in registration order. A BarSet is created once
// per feed advance and never mutated afterwards.
type BarSet struct {
	dateTime time.Time
	order    []string
	bars     map[string]Bar
}

func NewBarSet(dateTime time.Time) *BarSet {
	return &BarSet{
		dateTime: dateTime,
		bars:     make(map[string]Bar),
	}
}

// Put adds a bar for an instrument. Only the feed calls this, while the
// set is being assembled.
func (bs *BarSet) Put(instrument string, bar Bar) {
	if _, ok := bs.bars[instrument]; !ok {
		bs.order = append(bs.order, instrument)
	}
	bs.bars[instrument] = bar
}

func (bs *BarSet) DateTime() time.Time {
	return bs.dateTime
}

// Instruments returns the instruments present in this set, in
// registration order.
func (bs *BarSet) Instruments() []string {
	return bs.order
}

func (bs *BarSet) Get(instrument string) (Bar, bool) {
	b, ok := bs.bars[instrument]
	return b, ok
}

func (bs *BarSet) Contains(instrument string) bool {
	_, ok := bs.bars[instrument]
	return ok
}

func (bs *BarSet) Len() int {
	return len(bs.bars)
}
