package engine

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"algotrader/types"
)

func newTestStrategyEnv(cash string, maxPositions int) (*Broker, *BaseStrategy) {
	b := NewBroker(NewBrokerConfig(d(cash), nil))
	base := NewBaseStrategy(NewStrategyConfig(maxPositions, decimal.Zero))
	base.attach(b, nil)
	return b, base
}

func TestEnterGuards(t *testing.T) {
	_, base := newTestStrategyEnv("10000", 2)

	if !base.CanEnter("XYZ") {
		t.Fatal("CanEnter should pass with no positions")
	}
	if _, err := base.EnterLong("XYZ", d("10"), false); err != nil {
		t.Fatal(err)
	}
	if base.CanEnter("XYZ") {
		t.Error("CanEnter must reject an instrument with an open position")
	}
	if _, err := base.EnterLong("XYZ", d("10"), false); !errors.Is(err, PositionOpenErr) {
		t.Errorf("second entry on same instrument: got %v, want PositionOpenErr", err)
	}
	if base.OpenPositions() != 1 {
		t.Errorf("open positions = %d, want 1", base.OpenPositions())
	}

	if _, err := base.EnterShort("ABC", d("10"), false); err != nil {
		t.Fatal(err)
	}
	if _, err := base.EnterLong("DEF", d("10"), false); !errors.Is(err, MaxPositionsErr) {
		t.Errorf("entry past the cap: got %v, want MaxPositionsErr", err)
	}
	if base.OpenPositions() != 2 {
		t.Errorf("open positions = %d, want 2 after rejection", base.OpenPositions())
	}
}

func TestEnterRejectsInvalidQuantity(t *testing.T) {
	_, base := newTestStrategyEnv("10000", 2)

	if _, err := base.EnterLong("XYZ", decimal.Zero, false); !errors.Is(err, InvalidQuantityErr) {
		t.Errorf("got %v, want InvalidQuantityErr", err)
	}
	if base.HasPosition("XYZ") {
		t.Error("rejected entry must not register a position")
	}
}

func TestExitBeforeEntryFillCancelsEntry(t *testing.T) {
	_, base := newTestStrategyEnv("10000", 1)

	pos, err := base.EnterLong("XYZ", d("10"), true)
	if err != nil {
		t.Fatal(err)
	}
	if !pos.EntryActive() {
		t.Fatal("entry should be pending")
	}

	// No shares held yet, so the exit request turns into an entry
	// cancellation instead of a sell.
	if err := pos.ExitMarket(true); err != nil {
		t.Fatal(err)
	}
	if pos.EntryOrder().State() != types.StateCanceled {
		t.Errorf("entry state = %s, want CANCELED", pos.EntryOrder().State())
	}
	if pos.ExitOrder() != nil {
		t.Error("no exit order should have been created")
	}
}

func TestSetExitOrderValidation(t *testing.T) {
	b, base := newTestStrategyEnv("10000", 1)

	pos, err := base.EnterLong("XYZ", d("10"), true)
	if err != nil {
		t.Fatal(err)
	}

	wrong := NewStopOrder(types.ActionSell, "ABC", d("9"), d("10"), true)
	if err := pos.SetExitOrder(wrong); err == nil {
		t.Error("exit order for another instrument must be rejected")
	}

	used := NewStopOrder(types.ActionSell, "XYZ", d("9"), d("10"), true)
	if err := b.Submit(used); err != nil {
		t.Fatal(err)
	}
	if err := pos.SetExitOrder(used); !errors.Is(err, AlreadyTerminalErr) {
		t.Errorf("already-submitted order: got %v, want AlreadyTerminalErr", err)
	}

	stop := NewStopOrder(types.ActionSell, "XYZ", d("9"), d("10"), true)
	if err := pos.SetExitOrder(stop); err != nil {
		t.Fatal(err)
	}
	if !pos.ExitActive() {
		t.Fatal("exit should be pending")
	}
	if err := pos.ExitMarket(true); !errors.Is(err, ExitActiveErr) {
		t.Errorf("second exit: got %v, want ExitActiveErr", err)
	}
}

func TestCancelExitWithoutExit(t *testing.T) {
	_, base := newTestStrategyEnv("10000", 1)

	pos, err := base.EnterLong("XYZ", d("10"), true)
	if err != nil {
		t.Fatal(err)
	}
	if err := pos.CancelExit(); !errors.Is(err, AlreadyTerminalErr) {
		t.Errorf("got %v, want AlreadyTerminalErr", err)
	}
}

func TestCalcShares(t *testing.T) {
	tests := []struct {
		name         string
		cash         string
		maxPositions int
		liquidity    string
		refPrice     string
		want         string
	}{
		{
			name:         "splits equity across slots",
			cash:         "1000",
			maxPositions: 2,
			liquidity:    "0",
			refPrice:     "10",
			want:         "50",
		},
		{
			name:         "liquidity buffer shaves the allocation",
			cash:         "1000",
			maxPositions: 2,
			liquidity:    "0.05",
			refPrice:     "10",
			want:         "47",
		},
		{
			name:         "rounds down to whole shares",
			cash:         "1000",
			maxPositions: 3,
			liquidity:    "0",
			refPrice:     "7",
			want:         "47",
		},
		{
			name:         "zero price sizes to zero",
			cash:         "1000",
			maxPositions: 1,
			liquidity:    "0",
			refPrice:     "0",
			want:         "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBroker(NewBrokerConfig(d(tt.cash), nil))
			base := NewBaseStrategy(NewStrategyConfig(tt.maxPositions, d(tt.liquidity)))
			base.attach(b, nil)

			got := base.CalcShares(d(tt.refPrice))
			if !got.Equal(d(tt.want)) {
				t.Errorf("CalcShares(%s) = %s, want %s", tt.refPrice, got, tt.want)
			}
		})
	}
}
