package engine

import (
	"testing"

	"github.com/shopspring/decimal"

	"algotrader/types"
)

func TestCommissionModels(t *testing.T) {
	order := NewMarketOrder(types.ActionBuy, "XYZ", d("100"), false)

	tests := []struct {
		name     string
		model    CommissionModel
		price    string
		quantity string
		want     string
	}{
		{"no commission", NoCommission{}, "50", "100", "0"},
		{"fixed per trade", FixedPerTrade{Amount: d("9.99")}, "50", "100", "9.99"},
		{"percentage of traded value", TradePercentage{Percentage: d("0.002")}, "50", "100", "10"},
		{"tiered fee inside the band", TieredFee{Rate: d("0.0005"), Min: d("1"), Max: d("25")}, "100", "400", "20"},
		{"tiered fee clamps to minimum", TieredFee{Rate: d("0.0005"), Min: d("1"), Max: d("25")}, "10", "10", "1"},
		{"tiered fee clamps to maximum", TieredFee{Rate: d("0.0005"), Min: d("1"), Max: d("25")}, "1000", "100", "25"},
		{"tiered fee with no cap", TieredFee{Rate: d("0.0005"), Min: d("1")}, "1000", "100", "50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.model.Calculate(order, d(tt.price), d(tt.quantity))
			if !got.Equal(d(tt.want)) {
				t.Errorf("fee = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCommissionFunc(t *testing.T) {
	// A flat fee on buys, a value-based fee on sells.
	model := CommissionFunc(func(o *Order, price, quantity decimal.Decimal) decimal.Decimal {
		if o.Action().IsBuy() {
			return d("5")
		}
		return price.Mul(quantity).Mul(d("0.001"))
	})

	buy := NewMarketOrder(types.ActionBuy, "XYZ", d("10"), false)
	if got := model.Calculate(buy, d("100"), d("10")); !got.Equal(d("5")) {
		t.Errorf("buy fee = %s, want 5", got)
	}
	sell := NewMarketOrder(types.ActionSell, "XYZ", d("10"), false)
	if got := model.Calculate(sell, d("100"), d("10")); !got.Equal(d("1")) {
		t.Errorf("sell fee = %s, want 1", got)
	}
}
