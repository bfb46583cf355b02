package engine

import (
	"errors"
	"testing"

	"algotrader/types"
)

// scriptStrategy drives a run from a per-bar closure and counts
// callback invocations.
type scriptStrategy struct {
	*BaseStrategy
	bar            int
	onStart        func() error
	onBars         func(s *scriptStrategy, bars *types.BarSet) error
	onExitCanceled func(s *scriptStrategy, p *Position)

	enterOk       int
	enterCanceled int
	exitOk        int
	exitCanceled  int
	finished      bool
}

func newScriptStrategy(maxPositions int) *scriptStrategy {
	return &scriptStrategy{
		BaseStrategy: NewBaseStrategy(NewStrategyConfig(maxPositions, d("0"))),
	}
}

func (s *scriptStrategy) OnStart() error {
	if s.onStart != nil {
		return s.onStart()
	}
	return nil
}

func (s *scriptStrategy) OnBars(bars *types.BarSet) error {
	s.bar++
	if s.onBars != nil {
		return s.onBars(s, bars)
	}
	return nil
}

func (s *scriptStrategy) OnEnterOk(*Position) { s.enterOk++ }

func (s *scriptStrategy) OnEnterCanceled(*Position) { s.enterCanceled++ }

func (s *scriptStrategy) OnExitOk(*Position) { s.exitOk++ }

func (s *scriptStrategy) OnExitCanceled(p *Position) {
	s.exitCanceled++
	if s.onExitCanceled != nil {
		s.onExitCanceled(s, p)
	}
}

func (s *scriptStrategy) OnFinish(*types.BarSet) { s.finished = true }

// eventLog records the analyzer event stream.
type eventLog struct {
	events []Event
}

func (l *eventLog) OnEvent(ev Event) {
	l.events = append(l.events, ev)
}

func (l *eventLog) count(kind types.EventKind) int {
	n := 0
	for _, ev := range l.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func flatHistory(prices ...string) []types.Bar {
	bars := make([]types.Bar, len(prices))
	for i, p := range prices {
		bars[i] = flatBar(day(i+1), p)
	}
	return bars
}

func TestRunnerLongRoundTrip(t *testing.T) {
	feed := startedFeed(t, map[string][]types.Bar{
		"XYZ": flatHistory("10", "11", "12", "13", "14"),
	}, []string{"XYZ"})
	broker := NewBroker(NewBrokerConfig(d("1000"), nil))

	strat := newScriptStrategy(1)
	strat.onBars = func(s *scriptStrategy, bars *types.BarSet) error {
		switch s.bar {
		case 1:
			_, err := s.EnterLong("XYZ", d("10"), true)
			return err
		case 3:
			return s.Position("XYZ").ExitMarket(true)
		}
		return nil
	}

	runner := NewRunner(feed, broker, strat, RunConfig{})
	log := &eventLog{}
	runner.AttachAnalyzer(log)

	if runner.State() != RunNotStarted {
		t.Fatalf("state = %s before run", runner.State())
	}
	if err := runner.Run(); err != nil {
		t.Fatal(err)
	}
	if runner.State() != RunFinished {
		t.Fatalf("state = %s, want FINISHED", runner.State())
	}
	if !strat.finished {
		t.Error("OnFinish did not run")
	}

	// Entry reacts to the 10-bar and fills at 11; the exit reacts to the
	// 12-bar and fills at 13.
	if strat.enterOk != 1 || strat.exitOk != 1 {
		t.Errorf("enterOk = %d, exitOk = %d, want 1 and 1", strat.enterOk, strat.exitOk)
	}
	if !broker.Cash().Equal(d("1020")) {
		t.Errorf("final cash = %s, want 1020", broker.Cash())
	}
	if !broker.Shares("XYZ").IsZero() {
		t.Errorf("final shares = %s, want 0", broker.Shares("XYZ"))
	}
	if strat.HasPosition("XYZ") {
		t.Error("position must be released after the exit fill")
	}

	if got := log.count(types.EventBarProcessed); got != 5 {
		t.Errorf("BAR_PROCESSED events = %d, want 5", got)
	}
	if got := log.count(types.EventEnterOk); got != 1 {
		t.Errorf("ENTER_OK events = %d, want 1", got)
	}
	if got := log.count(types.EventExitOk); got != 1 {
		t.Errorf("EXIT_OK events = %d, want 1", got)
	}
	if got := log.count(types.EventFinish); got != 1 {
		t.Errorf("FINISH events = %d, want 1", got)
	}
	last := log.events[len(log.events)-1]
	if last.Kind != types.EventFinish {
		t.Errorf("last event = %s, want FINISH", last.Kind)
	}
	if !last.Snapshot.Equity.Equal(d("1020")) {
		t.Errorf("final equity snapshot = %s, want 1020", last.Snapshot.Equity)
	}

	if err := runner.Run(); !errors.Is(err, NotRunningErr) {
		t.Errorf("re-run: got %v, want NotRunningErr", err)
	}
}

func TestRunnerEntryCanceledReleasesPosition(t *testing.T) {
	feed := startedFeed(t, map[string][]types.Bar{
		"XYZ": flatHistory("10", "10", "10"),
	}, []string{"XYZ"})
	broker := NewBroker(NewBrokerConfig(d("100"), nil))

	strat := newScriptStrategy(1)
	strat.onBars = func(s *scriptStrategy, bars *types.BarSet) error {
		if s.bar == 1 {
			_, err := s.EnterLong("XYZ", d("20"), true)
			return err
		}
		return nil
	}

	runner := NewRunner(feed, broker, strat, RunConfig{})
	log := &eventLog{}
	runner.AttachAnalyzer(log)
	if err := runner.Run(); err != nil {
		t.Fatal(err)
	}

	if strat.enterCanceled != 1 {
		t.Errorf("enterCanceled = %d, want 1", strat.enterCanceled)
	}
	if strat.HasPosition("XYZ") {
		t.Error("canceled entry must release the position slot")
	}
	if got := log.count(types.EventEnterCanceled); got != 1 {
		t.Errorf("ENTER_CANCELED events = %d, want 1", got)
	}
	if !broker.Cash().Equal(d("100")) {
		t.Errorf("cash = %s, must be untouched", broker.Cash())
	}
}

func TestRunnerMaxPositionsAcrossInstruments(t *testing.T) {
	feed := startedFeed(t, map[string][]types.Bar{
		"AAA": flatHistory("10", "10", "10", "10", "10", "10"),
		"BBB": flatHistory("20", "20", "20", "20", "20", "20"),
	}, []string{"AAA", "BBB"})
	broker := NewBroker(NewBrokerConfig(d("1000"), nil))

	var blockedErr error
	strat := newScriptStrategy(1)
	strat.onBars = func(s *scriptStrategy, bars *types.BarSet) error {
		switch s.bar {
		case 1:
			if _, err := s.EnterLong("AAA", d("5"), true); err != nil {
				return err
			}
			// The single slot is taken, so this must be rejected
			// without disturbing the open position.
			_, blockedErr = s.EnterLong("BBB", d("5"), true)
		case 3:
			return s.Position("AAA").ExitMarket(true)
		case 5:
			if s.CanEnter("BBB") {
				_, err := s.EnterLong("BBB", d("5"), true)
				return err
			}
		}
		return nil
	}

	runner := NewRunner(feed, broker, strat, RunConfig{})
	if err := runner.Run(); err != nil {
		t.Fatal(err)
	}

	if !errors.Is(blockedErr, MaxPositionsErr) {
		t.Errorf("blocked entry: got %v, want MaxPositionsErr", blockedErr)
	}
	if strat.enterOk != 2 {
		t.Errorf("enterOk = %d, want 2 (AAA then BBB after the slot freed)", strat.enterOk)
	}
	if !strat.HasPosition("BBB") {
		t.Error("BBB position should be open at the end")
	}
	if !broker.Shares("BBB").Equal(d("5")) {
		t.Errorf("BBB shares = %s, want 5", broker.Shares("BBB"))
	}
}

func TestRunnerExitCanceledRetry(t *testing.T) {
	feed := startedFeed(t, map[string][]types.Bar{
		"XYZ": flatHistory("10", "10", "10", "10", "10", "10"),
	}, []string{"XYZ"})
	broker := NewBroker(NewBrokerConfig(d("1000"), nil))

	strat := newScriptStrategy(1)
	strat.onBars = func(s *scriptStrategy, bars *types.BarSet) error {
		switch s.bar {
		case 1:
			_, err := s.EnterLong("XYZ", d("10"), true)
			return err
		case 3:
			// An unfillable one-bar limit: it expires canceled on the
			// next bar and the retry below takes over.
			return s.Position("XYZ").ExitLimit(d("1000"), false)
		}
		return nil
	}
	strat.onExitCanceled = func(s *scriptStrategy, p *Position) {
		if err := p.ExitMarket(true); err != nil {
			t.Errorf("retry exit: %v", err)
		}
	}

	runner := NewRunner(feed, broker, strat, RunConfig{})
	if err := runner.Run(); err != nil {
		t.Fatal(err)
	}

	if strat.exitCanceled != 1 {
		t.Errorf("exitCanceled = %d, want 1", strat.exitCanceled)
	}
	if strat.exitOk != 1 {
		t.Errorf("exitOk = %d, want 1 after the retry filled", strat.exitOk)
	}
	if !broker.Shares("XYZ").IsZero() {
		t.Errorf("final shares = %s, want 0", broker.Shares("XYZ"))
	}
	if strat.HasPosition("XYZ") {
		t.Error("position must be released after the retried exit")
	}
}

func TestRunnerAbortsOnStrategyErrors(t *testing.T) {
	boom := errors.New("boom")

	t.Run("OnStart", func(t *testing.T) {
		feed := startedFeed(t, map[string][]types.Bar{
			"XYZ": flatHistory("10"),
		}, []string{"XYZ"})
		strat := newScriptStrategy(1)
		strat.onStart = func() error { return boom }

		runner := NewRunner(feed, NewBroker(NewBrokerConfig(d("1000"), nil)), strat, RunConfig{})
		if err := runner.Run(); !errors.Is(err, boom) {
			t.Fatalf("got %v, want the OnStart error", err)
		}
		if runner.State() != RunAborted {
			t.Errorf("state = %s, want ABORTED", runner.State())
		}
	})

	t.Run("OnBars", func(t *testing.T) {
		feed := startedFeed(t, map[string][]types.Bar{
			"XYZ": flatHistory("10", "10", "10"),
		}, []string{"XYZ"})
		strat := newScriptStrategy(1)
		strat.onBars = func(s *scriptStrategy, bars *types.BarSet) error {
			if s.bar == 2 {
				return boom
			}
			return nil
		}

		runner := NewRunner(feed, NewBroker(NewBrokerConfig(d("1000"), nil)), strat, RunConfig{})
		if err := runner.Run(); !errors.Is(err, boom) {
			t.Fatalf("got %v, want the OnBars error", err)
		}
		if runner.State() != RunAborted {
			t.Errorf("state = %s, want ABORTED", runner.State())
		}
		if strat.finished {
			t.Error("OnFinish must not run after an abort")
		}
	})
}
