package engine

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Report is the printable summary of one run, assembled from the
// standard analyzers.
type Report struct {
	StartDate   time.Time
	EndDate     time.Time
	TotalTrades int

	NetProfit        decimal.Decimal
	CumulativeReturn decimal.Decimal
	CAGR             decimal.Decimal

	WinCount  int
	LossCount int
	EvenCount int
	AvgWin    decimal.Decimal
	AvgLoss   decimal.Decimal

	MaxDrawdownPercent decimal.Decimal
	MaxDrawdownDays    time.Duration

	SharpeRatio decimal.Decimal

	TotalFees decimal.Decimal
}

type ReportingConfig struct {
	SharpeRiskFreeRate decimal.Decimal
}

// BuildReport folds the analyzer results into a summary. All analyzers
// must have observed the same finished run.
func BuildReport(
	cfg ReportingConfig,
	initialEquity decimal.Decimal,
	returns *ReturnsAnalyzer,
	drawdown *DrawdownAnalyzer,
	trades *TradesAnalyzer,
) *Report {
	r := &Report{
		TotalTrades:        trades.Count(),
		WinCount:           trades.WinCount(),
		LossCount:          trades.LossCount(),
		EvenCount:          trades.EvenCount(),
		AvgWin:             trades.AvgProfit(),
		AvgLoss:            trades.AvgLoss(),
		MaxDrawdownPercent: drawdown.MaxDrawdown().Mul(decimal.NewFromInt(100)),
		MaxDrawdownDays:    drawdown.LongestDuration(),
		TotalFees:          trades.TotalCommissions(),
		CumulativeReturn:   returns.CumulativeReturn(),
	}

	series := returns.Returns()
	if len(series) > 0 {
		r.StartDate = series[0].DateTime
		r.EndDate = series[len(series)-1].DateTime
	}
	r.NetProfit = initialEquity.Mul(r.CumulativeReturn)
	r.CAGR = calcCAGR(r.CumulativeReturn, r.StartDate, r.EndDate)
	r.SharpeRatio = calcSharpeRatio(returns.DailyReturns(), cfg.SharpeRiskFreeRate)
	return r
}

func (r *Report) Print(w io.Writer) {
	fmt.Fprintln(w, "===== Trading Report =====")
	fmt.Fprintf(w, "Start Date:            %s\n", r.StartDate.Format("2006-01-02"))
	fmt.Fprintf(w, "End Date:              %s\n", r.EndDate.Format("2006-01-02"))
	fmt.Fprintf(w, "Total Trades:          %d\n", r.TotalTrades)

	fmt.Fprintln(w, "\n-- Absolute Performance --")
	fmt.Fprintf(w, "Net Profit:            %s\n", r.NetProfit.StringFixed(2))
	fmt.Fprintf(w, "Cumulative Return:     %s%%\n", r.CumulativeReturn.Mul(decimal.NewFromInt(100)).StringFixed(2))
	fmt.Fprintf(w, "CAGR:                  %s%%\n", r.CAGR.Mul(decimal.NewFromInt(100)).StringFixed(2))

	fmt.Fprintln(w, "\n-- Trade-Level Metrics --")
	fmt.Fprintf(w, "Wins/Losses/Even:      %d/%d/%d\n", r.WinCount, r.LossCount, r.EvenCount)
	fmt.Fprintf(w, "Avg Win:               %s\n", r.AvgWin.StringFixed(2))
	fmt.Fprintf(w, "Avg Loss:              %s\n", r.AvgLoss.StringFixed(2))

	fmt.Fprintln(w, "\n-- Drawdown Metrics --")
	fmt.Fprintf(w, "Max Drawdown %%:        %s\n", r.MaxDrawdownPercent.StringFixed(2))
	fmt.Fprintf(w, "Max Drawdown Days:     %.0f\n", r.MaxDrawdownDays.Hours()/24)

	fmt.Fprintln(w, "\n-- Risk-Adjusted Metrics --")
	fmt.Fprintf(w, "Sharpe Ratio:          %s\n", r.SharpeRatio.StringFixed(2))

	fmt.Fprintln(w, "\n-- Costs --")
	fmt.Fprintf(w, "Total Fees:            %s\n", r.TotalFees.StringFixed(2))
	fmt.Fprintln(w, "==========================")
}

func calcCAGR(cumReturn decimal.Decimal, start, end time.Time) decimal.Decimal {
	years := end.Sub(start).Hours() / 24 / 365.25
	if years <= 0 {
		return decimal.Zero
	}
	growth := cumReturn.InexactFloat64() + 1
	if growth <= 0 {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromFloat(math.Pow(growth, 1/years) - 1)
}

// calcSharpeRatio annualizes the mean/stddev of daily excess returns by
// sqrt(252).
func calcSharpeRatio(daily []DatedValue, annualRiskFree decimal.Decimal) decimal.Decimal {
	if len(daily) < 2 {
		return decimal.Zero
	}
	rfDaily := math.Pow(1+annualRiskFree.InexactFloat64(), 1.0/252) - 1

	excess := make([]float64, len(daily))
	var sum float64
	for i, d := range daily {
		excess[i] = d.Value.InexactFloat64() - rfDaily
		sum += excess[i]
	}
	mean := sum / float64(len(excess))
	std := sampleStdDev(excess)
	if std == 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(mean / std * math.Sqrt(252))
}

// WriteSeriesCSV writes named time series to a CSV file, one row per
// point, for downstream plotting. The reporting sink format: name,
// RFC3339 timestamp, value.
func WriteSeriesCSV(path string, series map[string][]DatedValue) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create series file: %w", err)
	}
	defer f.Close()
	return writeSeriesCSV(f, series)
}

func writeSeriesCSV(w io.Writer, series map[string][]DatedValue) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"series", "datetime", "value"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, point := range series[name] {
			record := []string{
				name,
				point.DateTime.Format(time.RFC3339),
				point.Value.String(),
			}
			if err := cw.Write(record); err != nil {
				return fmt.Errorf("write record: %w", err)
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
