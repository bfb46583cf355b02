package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"algotrader/internal/engine"
	"algotrader/internal/repository"
	"algotrader/strategies/benchmark"
	"algotrader/strategies/smacross"
	"algotrader/types"
)

type config struct {
	dataDir      string
	instruments  []string
	initialCash  decimal.Decimal
	maxPositions int
	liquidity    decimal.Decimal
	smaShort     int
	smaLong      int
	useAdjusted  bool
	seriesOut    string
}

func loadConfig() (*config, error) {
	// A .env file is optional; real environment wins either way.
	_ = godotenv.Load()

	cfg := &config{
		dataDir:      getEnv("DATA_DIR", "data"),
		maxPositions: getEnvInt("MAX_POSITIONS", 5),
		smaShort:     getEnvInt("SMA_SHORT", 50),
		smaLong:      getEnvInt("SMA_LONG", 200),
		useAdjusted:  getEnv("USE_ADJUSTED", "true") == "true",
		seriesOut:    getEnv("SERIES_OUT", ""),
	}

	raw := getEnv("INSTRUMENTS", "")
	if raw == "" {
		return nil, fmt.Errorf("INSTRUMENTS must list at least one ticker")
	}
	for _, t := range strings.Split(raw, ",") {
		cfg.instruments = append(cfg.instruments, strings.TrimSpace(t))
	}

	cash, err := decimal.NewFromString(getEnv("INITIAL_CASH", "15000"))
	if err != nil {
		return nil, fmt.Errorf("invalid INITIAL_CASH: %w", err)
	}
	cfg.initialCash = cash

	liquidity, err := decimal.NewFromString(getEnv("LIQUIDITY_BUFFER", "0.05"))
	if err != nil {
		return nil, fmt.Errorf("invalid LIQUIDITY_BUFFER: %w", err)
	}
	cfg.liquidity = liquidity
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func buildFeed(cfg *config) (*engine.Feed, error) {
	feed := engine.NewFeed(engine.FeedConfig{Sanitize: true})
	for _, instrument := range cfg.instruments {
		path := filepath.Join(cfg.dataDir, instrument+".csv")
		src := repository.NewCSVBarSource(path, types.Day)
		if err := feed.RegisterInstrument(instrument, src); err != nil {
			return nil, err
		}
	}
	return feed, nil
}

// barClock records the timestamp of every processed bar so undated
// diagnostic series can be written against the run's calendar.
type barClock struct {
	times []time.Time
}

func (c *barClock) OnEvent(ev engine.Event) {
	if ev.Kind == types.EventBarProcessed {
		c.times = append(c.times, ev.DateTime)
	}
}

// dateTail pairs values with the trailing timestamps, since indicator
// series only start once their warmup window is full.
func dateTail(times []time.Time, values []decimal.Decimal) []engine.DatedValue {
	if len(values) > len(times) {
		values = values[len(values)-len(times):]
	}
	offset := len(times) - len(values)
	out := make([]engine.DatedValue, len(values))
	for i, v := range values {
		out[i] = engine.DatedValue{DateTime: times[offset+i], Value: v}
	}
	return out
}

func run(cfg *config, feed *engine.Feed, strat engine.Strategy, name string) error {
	broker := engine.NewBroker(&engine.BrokerConfig{
		InitialCash:       cfg.initialCash,
		Commission:        engine.NoCommission{},
		UseAdjustedValues: cfg.useAdjusted,
	})

	returns := engine.NewReturnsAnalyzer()
	drawdown := engine.NewDrawdownAnalyzer()
	trades := engine.NewTradesAnalyzer()
	volatility := engine.NewVolatilityAnalyzer(120)
	clock := &barClock{}

	runner := engine.NewRunner(feed, broker, strat, engine.RunConfig{ShowProgress: true})
	runner.AttachAnalyzer(returns)
	runner.AttachAnalyzer(drawdown)
	runner.AttachAnalyzer(trades)
	runner.AttachAnalyzer(volatility)
	runner.AttachAnalyzer(clock)

	if err := runner.Run(); err != nil {
		return err
	}

	fmt.Printf("\n### %s ###\n", name)
	report := engine.BuildReport(engine.ReportingConfig{}, cfg.initialCash, returns, drawdown, trades)
	report.Print(os.Stdout)
	fmt.Printf("Final Equity:          %s\n", broker.Equity().StringFixed(2))

	if cfg.seriesOut != "" {
		series := map[string][]engine.DatedValue{
			"returns":    returns.Returns(),
			"volatility": volatility.Series(),
		}
		for diag, values := range strat.DiagnosticSeries() {
			series[diag] = dateTail(clock.times, values)
		}
		path := filepath.Join(cfg.seriesOut, name+".csv")
		if err := engine.WriteSeriesCSV(path, series); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatal(err)
	}

	feed, err := buildFeed(cfg)
	if err != nil {
		log.Fatal(err)
	}

	strategyCfg := engine.NewStrategyConfig(cfg.maxPositions, cfg.liquidity)
	strat := smacross.New(strategyCfg, cfg.instruments, cfg.smaShort, cfg.smaLong)
	if err := run(cfg, feed, strat, "smacross"); err != nil {
		log.Fatal(err)
	}

	// Benchmark pass over the exact same bars.
	feed.Reset()
	bench := benchmark.New(strategyCfg, cfg.instruments, cfg.smaLong)
	if err := run(cfg, feed, bench, "benchmark"); err != nil {
		log.Fatal(err)
	}
}
