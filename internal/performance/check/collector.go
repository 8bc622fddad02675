package check

import "sync"

// Result aggregates the outcomes of one named check.
type Result struct {
	Name   string `json:"name" yaml:"name"`
	Passes int64  `json:"passes" yaml:"passes"`
	Fails  int64  `json:"fails" yaml:"fails"`
}

// Total returns passes + fails.
func (r Result) Total() int64 {
	return r.Passes + r.Fails
}

// Rate returns the pass rate in [0, 1]; 0 when nothing was recorded.
func (r Result) Rate() float64 {
	if r.Total() == 0 {
		return 0
	}
	return float64(r.Passes) / float64(r.Total())
}

// Collector aggregates outcomes from many VUs. It is safe for concurrent use.
//
// Results are reported in the order check names were first seen. When
// constructed with retain > 0, the last retain outcomes are also kept.
type Collector struct {
	mu      sync.Mutex
	order   []string
	results map[string]*Result

	retain int
	recent []Outcome
	next   int
}

// NewCollector creates a collector keeping the last retain outcomes.
func NewCollector(retain int) *Collector {
	if retain < 0 {
		retain = 0
	}
	return &Collector{
		results: make(map[string]*Result),
		retain:  retain,
	}
}

// Record adds outcomes to the aggregate.
func (c *Collector) Record(outcomes ...Outcome) {
	if len(outcomes) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, o := range outcomes {
		r, ok := c.results[o.Name]
		if !ok {
			r = &Result{Name: o.Name}
			c.results[o.Name] = r
			c.order = append(c.order, o.Name)
		}
		if o.Passed {
			r.Passes++
		} else {
			r.Fails++
		}

		if c.retain > 0 {
			if len(c.recent) < c.retain {
				c.recent = append(c.recent, o)
			} else {
				c.recent[c.next] = o
			}
			c.next = (c.next + 1) % c.retain
		}
	}
}

// Results returns a copy of the per-check aggregates.
func (c *Collector) Results() []Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Result, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, *c.results[name])
	}
	return out
}

// Result returns the aggregate for one check.
func (c *Collector) Result(name string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.results[name]
	if !ok {
		return Result{}, false
	}
	return *r, true
}

// Totals returns passes and fails across all checks.
func (c *Collector) Totals() (passes, fails int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, r := range c.results {
		passes += r.Passes
		fails += r.Fails
	}
	return passes, fails
}

// PassRate returns the pass rate across all checks; 0 when empty.
func (c *Collector) PassRate() float64 {
	passes, fails := c.Totals()
	if passes+fails == 0 {
		return 0
	}
	return float64(passes) / float64(passes+fails)
}

// Recent returns the retained outcomes, oldest first.
func (c *Collector) Recent() []Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.recent) < c.retain {
		return append([]Outcome(nil), c.recent...)
	}
	out := make([]Outcome, 0, len(c.recent))
	out = append(out, c.recent[c.next:]...)
	out = append(out, c.recent[:c.next]...)
	return out
}
