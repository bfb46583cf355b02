package repository

import (
	"context"
	"io"
	"time"

	"algotrader/types"
)

// PGBarSource adapts the Postgres bar store to the feed's BarSource
// contract. The query runs once at Open; Next iterates the loaded
// history.
type PGBarSource struct {
	db       *Database
	ticker   string
	interval types.Interval
	start    time.Time
	end      time.Time

	bars []types.Bar
	pos  int
}

func NewPGBarSource(db *Database, ticker string, interval types.Interval, start, end time.Time) *PGBarSource {
	return &PGBarSource{
		db:       db,
		ticker:   ticker,
		interval: interval,
		start:    start,
		end:      end,
	}
}

func (s *PGBarSource) Open() error {
	bars, err := s.db.GetBars(context.Background(), s.ticker, s.interval, s.start, s.end)
	if err != nil {
		return err
	}
	s.bars = bars
	s.pos = 0
	return nil
}

func (s *PGBarSource) Next() (types.Bar, error) {
	if s.pos >= len(s.bars) {
		return types.Bar{}, io.EOF
	}
	bar := s.bars[s.pos]
	s.pos++
	return bar, nil
}

func (s *PGBarSource) Close() error {
	return nil
}
