// Package check evaluates named boolean predicates against responses and
// aggregates the outcomes across virtual users.
package check

import (
	"fmt"
	"time"

	"github.com/wesleyorama2/vuload/internal/http"
)

// Func is a predicate over a response. A non-nil error marks the check as
// failed and explains why.
type Func func(resp *http.Response) (bool, error)

// Check is a named predicate.
type Check struct {
	Name string
	Fn   Func
}

// New creates a check.
func New(name string, fn Func) Check {
	return Check{Name: name, Fn: fn}
}

// Set is an ordered list of checks, evaluated in order.
type Set []Check

// Names returns the check names in evaluation order.
func (s Set) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// Tags identify where an outcome came from.
type Tags struct {
	VUID      int
	Iteration int64
}

// Outcome is the result of one check on one response. Outcomes are values;
// once produced they are never modified.
type Outcome struct {
	Name      string    `json:"name"`
	Passed    bool      `json:"passed"`
	VUID      int       `json:"vuId"`
	Iteration int64     `json:"iteration"`
	Error     string    `json:"error,omitempty"`
	Time      time.Time `json:"time"`
}

// Evaluate runs every check in set against resp and returns one outcome per
// check, in order. A panicking predicate yields a failed outcome; it never
// stops the remaining checks.
func Evaluate(resp *http.Response, set Set, tags Tags) []Outcome {
	if len(set) == 0 {
		return nil
	}

	now := time.Now()
	outcomes := make([]Outcome, 0, len(set))
	for _, c := range set {
		passed, err := run(c, resp)
		o := Outcome{
			Name:      c.Name,
			Passed:    passed && err == nil,
			VUID:      tags.VUID,
			Iteration: tags.Iteration,
			Time:      now,
		}
		if err != nil {
			o.Error = err.Error()
		}
		outcomes = append(outcomes, o)
	}
	return outcomes
}

func run(c Check, resp *http.Response) (passed bool, err error) {
	if c.Fn == nil {
		return false, fmt.Errorf("check %q has no predicate", c.Name)
	}

	defer func() {
		if r := recover(); r != nil {
			passed = false
			err = fmt.Errorf("check %q panicked: %v", c.Name, r)
		}
	}()

	return c.Fn(resp)
}
