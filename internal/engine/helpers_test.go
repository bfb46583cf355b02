package engine

import (
	"errors"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"algotrader/types"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(n int) time.Time {
	return time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n-1)
}

func newBar(ts time.Time, open, high, low, close, volume string) types.Bar {
	return types.Bar{
		Open:      d(open),
		High:      d(high),
		Low:       d(low),
		Close:     d(close),
		Volume:    d(volume),
		Interval:  types.Day,
		Timestamp: ts,
	}
}

// flatBar is a bar where every price field is the same, handy when a
// test only cares about one price level per bar.
func flatBar(ts time.Time, price string) types.Bar {
	return newBar(ts, price, price, price, price, "1000000")
}

// sliceSource serves a fixed bar history through the BarSource
// contract.
type sliceSource struct {
	bars     []types.Bar
	pos      int
	failOpen bool
}

var errSourceDown = errors.New("source down")

func (s *sliceSource) Open() error {
	if s.failOpen {
		return errSourceDown
	}
	s.pos = 0
	return nil
}

func (s *sliceSource) Next() (types.Bar, error) {
	if s.pos >= len(s.bars) {
		return types.Bar{}, io.EOF
	}
	b := s.bars[s.pos]
	s.pos++
	return b, nil
}

func (s *sliceSource) Close() error { return nil }

// startedFeed builds and starts a feed over the given per-instrument
// histories, failing the test on error.
func startedFeed(t interface{ Fatalf(string, ...any) }, histories map[string][]types.Bar, order []string) *Feed {
	feed := NewFeed(FeedConfig{})
	for _, instrument := range order {
		if err := feed.RegisterInstrument(instrument, &sliceSource{bars: histories[instrument]}); err != nil {
			t.Fatalf("register %s: %v", instrument, err)
		}
	}
	if err := feed.Start(); err != nil {
		t.Fatalf("start feed: %v", err)
	}
	return feed
}
