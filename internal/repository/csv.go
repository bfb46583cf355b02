package repository

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"algotrader/types"
)

// CSVBarSource reads the conventional daily bar file format:
// Date,Open,High,Low,Close,Volume,Adj Close with a header row. Dates
// are calendar days (2006-01-02). The adjusted close column is
// optional.
type CSVBarSource struct {
	path     string
	interval types.Interval

	file   *os.File
	reader *csv.Reader
	line   int
}

func NewCSVBarSource(path string, interval types.Interval) *CSVBarSource {
	return &CSVBarSource{path: path, interval: interval}
}

func (s *CSVBarSource) Open() error {
	f, err := os.Open(s.path)
	if err != nil {
		return err
	}
	s.file = f
	s.reader = csv.NewReader(f)
	s.reader.FieldsPerRecord = -1
	s.line = 0

	// Skip the header row.
	if _, err := s.reader.Read(); err != nil {
		f.Close()
		return fmt.Errorf("%s: read header: %w", s.path, err)
	}
	return nil
}

func (s *CSVBarSource) Next() (types.Bar, error) {
	record, err := s.reader.Read()
	if err == io.EOF {
		return types.Bar{}, io.EOF
	}
	if err != nil {
		return types.Bar{}, err
	}
	s.line++
	if len(record) < 6 {
		return types.Bar{}, fmt.Errorf("%s line %d: want at least 6 columns, got %d", s.path, s.line, len(record))
	}

	ts, err := time.Parse("2006-01-02", record[0])
	if err != nil {
		return types.Bar{}, fmt.Errorf("%s line %d: bad date: %w", s.path, s.line, err)
	}

	fields := make([]decimal.Decimal, 0, 6)
	for i := 1; i < 6; i++ {
		d, err := decimal.NewFromString(record[i])
		if err != nil {
			return types.Bar{}, fmt.Errorf("%s line %d column %d: %w", s.path, s.line, i, err)
		}
		fields = append(fields, d)
	}

	bar := types.Bar{
		Timestamp: ts,
		Open:      fields[0],
		High:      fields[1],
		Low:       fields[2],
		Close:     fields[3],
		Volume:    fields[4],
		Interval:  s.interval,
	}
	if len(record) > 6 {
		adj, err := decimal.NewFromString(record[6])
		if err != nil {
			return types.Bar{}, fmt.Errorf("%s line %d adj close: %w", s.path, s.line, err)
		}
		bar.AdjClose = adj
	}
	return bar, nil
}

func (s *CSVBarSource) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
