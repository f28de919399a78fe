package extraction

import (
	"github.com/yigit/transcriptgpa/internal/domain/transcript"
)

// StrategySemanticFallback names results produced by the semantic fallback.
const StrategySemanticFallback = "semantic-fallback"

// Attempt summarizes one strategy run during dispatch.
type Attempt struct {
	Strategy string `json:"strategy"`
	Records  int    `json:"records"`
	Skipped  int    `json:"skipped"`
}

// Result is the dispatcher output for one document's text.
type Result struct {
	Table    transcript.CourseTable
	Strategy string // empty when nothing matched
	Attempts []Attempt
	Skips    []Skip
	// Degraded is set when every strategy missed and no fallback produced rows.
	// The caller should offer fallback or manual entry.
	Degraded bool
	Fallback bool
	// FallbackErr carries a failed semantic fallback call. It never aborts extraction.
	FallbackErr error
}

// Dispatcher runs strategies in priority order; the first one producing records wins.
// Partial results from several strategies are never merged.
type Dispatcher struct {
	strategies []Strategy
}

// NewDispatcher builds a dispatcher over strategies in the given order.
func NewDispatcher(strategies ...Strategy) *Dispatcher {
	return &Dispatcher{strategies: strategies}
}

// DefaultStrategies returns the built-in pattern library, most specific layout first.
func DefaultStrategies(n *transcript.Normalizer) []Strategy {
	return []Strategy{
		NewBlockStrategy(n),
		NewTermHeaderStrategy(n),
		NewDatedLineStrategy(n),
		NewSplitColumnStrategy(n),
		NewColumnStrategy(n),
	}
}

// NewDefaultDispatcher builds a dispatcher over DefaultStrategies.
func NewDefaultDispatcher(n *transcript.Normalizer) *Dispatcher {
	return NewDispatcher(DefaultStrategies(n)...)
}

// Strategies returns the strategy names in dispatch order.
func (d *Dispatcher) Strategies() []string {
	names := make([]string, len(d.strategies))
	for i, s := range d.strategies {
		names[i] = s.Name()
	}
	return names
}

// Dispatch normalizes text and returns the first non-empty strategy outcome.
func (d *Dispatcher) Dispatch(text string) Result {
	text = transcript.NormalizeText(text)
	var res Result
	for _, s := range d.strategies {
		out := s.Extract(text)
		res.Attempts = append(res.Attempts, Attempt{Strategy: s.Name(), Records: len(out.Table), Skipped: len(out.Skips)})
		res.Skips = append(res.Skips, out.Skips...)
		if out.Matched() {
			res.Table = out.Table
			res.Strategy = s.Name()
			return res
		}
	}
	res.Degraded = true
	return res
}
