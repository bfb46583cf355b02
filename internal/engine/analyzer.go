package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"algotrader/types"
)

// StrategySnapshot is the per-bar view handed to analyzers.
type StrategySnapshot struct {
	DateTime time.Time
	Cash     decimal.Decimal
	Equity   decimal.Decimal
}

// Event is the payload delivered to analyzers. Snapshot is set for
// BAR_PROCESSED and FINISH events, Position for the enter/exit events.
type Event struct {
	Kind     types.EventKind
	DateTime time.Time
	Snapshot StrategySnapshot
	Position *Position
}

// Analyzer is a passive reducer over the run's event stream. Analyzers
// never feed back into strategy decisions.
type Analyzer interface {
	OnEvent(ev Event)
}
