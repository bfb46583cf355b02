package engine

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"algotrader/types"
)

func TestBuildReport(t *testing.T) {
	returns := NewReturnsAnalyzer()
	drawdown := NewDrawdownAnalyzer()
	trades := NewTradesAnalyzer()

	equities := []string{"1000", "1100", "990", "1210"}
	for i, eq := range equities {
		ev := equityEvent(day(i+1), eq)
		returns.OnEvent(ev)
		drawdown.OnEvent(ev)
	}
	fin := finishEvent(day(4), "1210")
	returns.OnEvent(fin)
	drawdown.OnEvent(fin)

	trades.OnEvent(Event{
		Kind:     types.EventExitOk,
		DateTime: day(4),
		Position: closedPosition(types.ActionBuy, types.ActionSell, "10", "100", "121", "1", "1"),
	})

	report := BuildReport(ReportingConfig{}, d("1000"), returns, drawdown, trades)

	if !report.CumulativeReturn.Equal(d("0.21")) {
		t.Errorf("cumulative return = %s, want 0.21", report.CumulativeReturn)
	}
	if !report.NetProfit.Equal(d("210")) {
		t.Errorf("net profit = %s, want 210", report.NetProfit)
	}
	if !report.MaxDrawdownPercent.Equal(d("10")) {
		t.Errorf("max drawdown %% = %s, want 10", report.MaxDrawdownPercent)
	}
	if report.TotalTrades != 1 || report.WinCount != 1 {
		t.Errorf("trades = %d wins = %d, want 1 and 1", report.TotalTrades, report.WinCount)
	}
	if !report.TotalFees.Equal(d("2")) {
		t.Errorf("fees = %s, want 2", report.TotalFees)
	}
	if !report.StartDate.Equal(day(2)) || !report.EndDate.Equal(day(4)) {
		t.Errorf("period = %v..%v", report.StartDate, report.EndDate)
	}

	var buf bytes.Buffer
	report.Print(&buf)
	out := buf.String()
	for _, want := range []string{"Net Profit:", "210.00", "Max Drawdown %:", "Sharpe Ratio:"} {
		if !strings.Contains(out, want) {
			t.Errorf("printed report missing %q", want)
		}
	}
}

func TestCalcCAGR(t *testing.T) {
	start := day(1)
	end := start.Add(time.Duration(2*365.25*24) * time.Hour)

	got := calcCAGR(d("1"), start, end).InexactFloat64()
	want := math.Sqrt2 - 1
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("CAGR = %v, want %v", got, want)
	}

	if !calcCAGR(d("1"), start, start).IsZero() {
		t.Error("zero-length period must yield zero CAGR")
	}
}

func TestCalcSharpeRatio(t *testing.T) {
	daily := []DatedValue{
		{DateTime: day(1), Value: d("0.01")},
		{DateTime: day(2), Value: d("0.02")},
		{DateTime: day(3), Value: d("0.03")},
	}

	got := calcSharpeRatio(daily, decimal.Zero).InexactFloat64()
	want := 0.02 / 0.01 * math.Sqrt(252)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("sharpe = %v, want %v", got, want)
	}

	flat := []DatedValue{
		{DateTime: day(1), Value: d("0.01")},
		{DateTime: day(2), Value: d("0.01")},
	}
	if !calcSharpeRatio(flat, decimal.Zero).IsZero() {
		t.Error("zero deviation must yield zero, not a division blowup")
	}

	if !calcSharpeRatio(daily[:1], decimal.Zero).IsZero() {
		t.Error("one observation is not enough for a ratio")
	}
}

func TestWriteSeriesCSV(t *testing.T) {
	series := map[string][]DatedValue{
		"equity": {
			{DateTime: day(1), Value: d("1000")},
			{DateTime: day(2), Value: d("1010")},
		},
		"drawdown": {
			{DateTime: day(2), Value: d("0.05")},
		},
	}

	var buf bytes.Buffer
	if err := writeSeriesCSV(&buf, series); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{
		"series,datetime,value",
		"drawdown,2020-01-02T00:00:00Z,0.05",
		"equity,2020-01-01T00:00:00Z,1000",
		"equity,2020-01-02T00:00:00Z,1010",
	}
	if len(lines) != len(want) {
		t.Fatalf("rows = %d, want %d\n%s", len(lines), len(want), buf.String())
	}
	for i, w := range want {
		if lines[i] != w {
			t.Errorf("line %d = %q, want %q", i, lines[i], w)
		}
	}
}
