package engine

import (
	"fmt"
	"io"
	"time"

	"algotrader/types"
)

// BarSource is the adapter contract for anything that can produce a
// finite, chronologically ordered bar sequence for one instrument.
// Next returns io.EOF when the sequence is exhausted.
type BarSource interface {
	Open() error
	Next() (types.Bar, error)
	Close() error
}

type feedSource struct {
	instrument string
	source     BarSource
	bars       []types.Bar
	cursor     int
}

// Feed merges per-instrument bar sequences into one globally
// time-ordered sequence of BarSets. All bars are loaded into memory at
// Start; replay state is cursor-only, so Reset produces an identical
// sequence to the first pass.
type Feed struct {
	sources  []*feedSource
	byName   map[string]*feedSource
	sanitize bool
	started  bool
	eof      bool
	curTime  time.Time
}

type FeedConfig struct {
	// Sanitize clamps open/close into the bar's low/high range on load.
	// No temporal fill-forward is ever performed.
	Sanitize bool
}

func NewFeed(cfg FeedConfig) *Feed {
	return &Feed{
		byName:   make(map[string]*feedSource),
		sanitize: cfg.Sanitize,
	}
}

// RegisterInstrument adds a source. Registration order determines
// instrument iteration order in every BarSet the feed produces.
func (f *Feed) RegisterInstrument(instrument string, source BarSource) error {
	if f.started {
		return FeedStartedErr
	}
	if _, ok := f.byName[instrument]; ok {
		return fmt.Errorf("%w: %s", DuplicateInstrumentErr, instrument)
	}
	fs := &feedSource{instrument: instrument, source: source}
	f.sources = append(f.sources, fs)
	f.byName[instrument] = fs
	return nil
}

// Start opens and drains every source. Source failures are fatal and
// propagated, not retried.
func (f *Feed) Start() error {
	if f.started {
		return FeedStartedErr
	}
	for _, fs := range f.sources {
		if err := fs.source.Open(); err != nil {
			return fmt.Errorf("%w: %s: %v", SourceUnavailableErr, fs.instrument, err)
		}
		var prev time.Time
		for {
			bar, err := fs.source.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				fs.source.Close()
				return fmt.Errorf("%w: %s: %v", SourceUnavailableErr, fs.instrument, err)
			}
			if !prev.IsZero() && !bar.Timestamp.After(prev) {
				fs.source.Close()
				return fmt.Errorf("%w: %s at %v", BadSourceDataErr, fs.instrument, bar.Timestamp)
			}
			prev = bar.Timestamp
			if f.sanitize {
				bar = clampBar(bar)
			}
			bar.Instrument = fs.instrument
			fs.bars = append(fs.bars, bar)
		}
		if err := fs.source.Close(); err != nil {
			return fmt.Errorf("%w: %s: %v", SourceUnavailableErr, fs.instrument, err)
		}
	}
	f.started = true
	return nil
}

// PeekDateTime returns the timestamp of the next BarSet without
// consuming it.
func (f *Feed) PeekDateTime() (time.Time, bool) {
	next, ok := f.nextTimestamp()
	return next, ok
}

func (f *Feed) nextTimestamp() (time.Time, bool) {
	var next time.Time
	found := false
	for _, fs := range f.sources {
		if fs.cursor >= len(fs.bars) {
			continue
		}
		ts := fs.bars[fs.cursor].Timestamp
		if !found || ts.Before(next) {
			next = ts
			found = true
		}
	}
	return next, found
}

// NextBarSet advances the merge cursor: the minimum next timestamp among
// all sources is picked, and every source whose next bar carries that
// timestamp contributes to the set and is consumed one step. Instruments
// whose calendars have no bar at that timestamp are simply absent.
func (f *Feed) NextBarSet() (*types.BarSet, bool) {
	next, ok := f.nextTimestamp()
	if !ok {
		f.eof = true
		return nil, false
	}
	bs := types.NewBarSet(next)
	for _, fs := range f.sources {
		if fs.cursor >= len(fs.bars) {
			continue
		}
		if fs.bars[fs.cursor].Timestamp.Equal(next) {
			bs.Put(fs.instrument, fs.bars[fs.cursor])
			fs.cursor++
		}
	}
	f.curTime = next
	if _, more := f.nextTimestamp(); !more {
		f.eof = true
	}
	return bs, true
}

// Reset rewinds every cursor to the beginning. The parsed bars are not
// touched, so a replay yields the exact sequence of the previous run.
func (f *Feed) Reset() {
	for _, fs := range f.sources {
		fs.cursor = 0
	}
	f.eof = false
	f.curTime = time.Time{}
}

// EOF becomes true once every source is exhausted and stays true until
// Reset.
func (f *Feed) EOF() bool {
	return f.eof
}

func (f *Feed) CurrentDateTime() time.Time {
	return f.curTime
}

// Instruments returns the registered instruments in registration order.
func (f *Feed) Instruments() []string {
	out := make([]string, len(f.sources))
	for i, fs := range f.sources {
		out[i] = fs.instrument
	}
	return out
}

// clampBar forces open and close into the [low, high] range. The only
// sanitization the feed performs.
func clampBar(b types.Bar) types.Bar {
	if b.Open.GreaterThan(b.High) {
		b.Open = b.High
	}
	if b.Open.LessThan(b.Low) {
		b.Open = b.Low
	}
	if b.Close.GreaterThan(b.High) {
		b.Close = b.High
	}
	if b.Close.LessThan(b.Low) {
		b.Close = b.Low
	}
	return b
}
