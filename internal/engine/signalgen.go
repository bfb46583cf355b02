package engine

// Advice is a signal generator's verdict for one instrument on one bar.
type Advice int

const (
	Hold Advice = iota
	Enter
	Exit
)

// SignalGenerator evaluates one instrument's indicator state into an
// advice. Strategies combine generators instead of subclassing each
// other: a strategy variant is just a different generator list.
type SignalGenerator interface {
	// Evaluate receives the instrument and its close-price history up
	// to and including the current bar. Generators return Hold while
	// their indicators are still warming up.
	Evaluate(instrument string, closes []float64) Advice
}

// ResolutionPolicy combines the advices of several generators.
type ResolutionPolicy func(advices []Advice) Advice

// FirstMatch returns the first non-Hold advice in generator order.
func FirstMatch(advices []Advice) Advice {
	for _, a := range advices {
		if a != Hold {
			return a
		}
	}
	return Hold
}

// CompositeSignal runs a fixed list of generators and resolves their
// advices through one policy.
type CompositeSignal struct {
	generators []SignalGenerator
	resolve    ResolutionPolicy
}

func NewCompositeSignal(policy ResolutionPolicy, generators ...SignalGenerator) *CompositeSignal {
	if policy == nil {
		policy = FirstMatch
	}
	return &CompositeSignal{generators: generators, resolve: policy}
}

func (c *CompositeSignal) Evaluate(instrument string, closes []float64) Advice {
	advices := make([]Advice, len(c.generators))
	for i, g := range c.generators {
		advices[i] = g.Evaluate(instrument, closes)
	}
	return c.resolve(advices)
}
