package engine

import (
	"github.com/schollz/progressbar/v3"

	"algotrader/types"
)

type RunState string

const (
	RunNotStarted RunState = "NOT_STARTED"
	RunRunning    RunState = "RUNNING"
	RunFinished   RunState = "FINISHED"
	RunAborted    RunState = "ABORTED"
)

type RunConfig struct {
	ShowProgress bool
}

// Runner drives one backtest: it pulls BarSets from the feed, hands
// them to the broker for fill evaluation, dispatches the resulting
// order events into strategy callbacks, and then invokes the strategy's
// per-bar decision hook. Analyzers observe the same stream passively.
type Runner struct {
	feed      *Feed
	broker    *Broker
	strategy  Strategy
	analyzers []Analyzer
	state     RunState
	lastBars  *types.BarSet
	progress  bool
}

func NewRunner(feed *Feed, broker *Broker, strategy Strategy, cfg RunConfig) *Runner {
	r := &Runner{
		feed:     feed,
		broker:   broker,
		strategy: strategy,
		state:    RunNotStarted,
		progress: cfg.ShowProgress,
	}
	strategy.Base().attach(broker, feed)
	broker.SetEventHandler(r)
	return r
}

// AttachAnalyzer subscribes a passive observer. Must be called before
// Run.
func (r *Runner) AttachAnalyzer(a Analyzer) {
	r.analyzers = append(r.analyzers, a)
}

func (r *Runner) State() RunState {
	return r.state
}

// Run executes the backtest to feed exhaustion. Setup errors abort the
// run before it starts; per-order rejections surface through strategy
// callbacks and never stop the loop.
func (r *Runner) Run() error {
	if r.state != RunNotStarted {
		return NotRunningErr
	}
	if !r.feed.started {
		if err := r.feed.Start(); err != nil {
			r.state = RunAborted
			return err
		}
	}
	if err := r.strategy.OnStart(); err != nil {
		r.state = RunAborted
		return err
	}
	r.state = RunRunning

	var bar *progressbar.ProgressBar
	if r.progress {
		bar = initProgressBar(-1)
	}

	for {
		bars, ok := r.feed.NextBarSet()
		if !ok {
			break
		}
		r.broker.ProcessBars(bars)
		if err := r.strategy.OnBars(bars); err != nil {
			r.state = RunAborted
			return err
		}
		r.lastBars = bars
		r.notify(Event{
			Kind:     types.EventBarProcessed,
			DateTime: bars.DateTime(),
			Snapshot: r.snapshot(bars),
		})
		if bar != nil {
			bar.Add(1)
		}
	}

	r.strategy.OnFinish(r.lastBars)
	finish := Event{Kind: types.EventFinish}
	if r.lastBars != nil {
		finish.DateTime = r.lastBars.DateTime()
		finish.Snapshot = r.snapshot(r.lastBars)
	}
	r.notify(finish)
	r.state = RunFinished
	return nil
}

func (r *Runner) snapshot(bars *types.BarSet) StrategySnapshot {
	return StrategySnapshot{
		DateTime: bars.DateTime(),
		Cash:     r.broker.Cash(),
		Equity:   r.broker.Equity(),
	}
}

// OnOrderEvent translates broker order events into position updates and
// strategy callbacks. Callbacks run before the broker continues with
// the next order of the same bar.
func (r *Runner) OnOrderEvent(ev *OrderEvent) {
	base := r.strategy.Base()
	pos := base.positionFor(ev.Order)
	if pos == nil {
		return
	}

	isEntry := ev.Order == pos.entry

	switch ev.Kind {
	case OrderEventPartialFill, OrderEventFill:
		pos.applyFill(ev.Order, ev.Execution)
		if ev.Order.State() != types.StateFilled {
			return
		}
		if isEntry {
			r.strategy.OnEnterOk(pos)
			r.notify(Event{Kind: types.EventEnterOk, DateTime: ev.DateTime, Position: pos})
		} else {
			if pos.shares.IsZero() {
				base.release(pos)
			}
			r.strategy.OnExitOk(pos)
			r.notify(Event{Kind: types.EventExitOk, DateTime: ev.DateTime, Position: pos})
		}

	case OrderEventCanceled:
		if isEntry {
			if pos.shares.IsZero() {
				base.release(pos)
			}
			r.strategy.OnEnterCanceled(pos)
			r.notify(Event{Kind: types.EventEnterCanceled, DateTime: ev.DateTime, Position: pos})
		} else {
			r.strategy.OnExitCanceled(pos)
			r.notify(Event{Kind: types.EventExitCanceled, DateTime: ev.DateTime, Position: pos})
		}
	}
}

func (r *Runner) notify(ev Event) {
	for _, a := range r.analyzers {
		a.OnEvent(ev)
	}
}

func initProgressBar(maxTicks int) *progressbar.ProgressBar {
	return progressbar.NewOptions(maxTicks,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetDescription("Backtesting in progress..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
