package check

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/wesleyorama2/vuload/internal/http"
)

func TestEvaluate_Status200(t *testing.T) {
	set := Set{Status(200)}

	tests := []struct {
		name   string
		resp   *http.Response
		passed bool
	}{
		{name: "200", resp: &http.Response{StatusCode: 200}, passed: true},
		{name: "201", resp: &http.Response{StatusCode: 201}, passed: false},
		{name: "500", resp: &http.Response{StatusCode: 500}, passed: false},
		{name: "transport error", resp: http.ErrorResponse(errors.New("connection refused"), time.Millisecond), passed: false},
		{name: "nil response", resp: nil, passed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcomes := Evaluate(tt.resp, set, Tags{VUID: 7, Iteration: 3})
			if len(outcomes) != 1 {
				t.Fatalf("expected exactly one outcome, got %d", len(outcomes))
			}
			o := outcomes[0]
			if o.Name != "status 200" {
				t.Errorf("Name = %q, want %q", o.Name, "status 200")
			}
			if o.Passed != tt.passed {
				t.Errorf("Passed = %v, want %v (error %q)", o.Passed, tt.passed, o.Error)
			}
			if o.VUID != 7 || o.Iteration != 3 {
				t.Errorf("tags not propagated: %+v", o)
			}
			if !tt.passed && o.Error == "" {
				t.Error("failed outcome should carry a reason")
			}
		})
	}
}

func TestEvaluate_PanicIsContained(t *testing.T) {
	set := Set{
		New("boom", func(resp *http.Response) (bool, error) {
			panic("predicate exploded")
		}),
		Status(200),
	}

	outcomes := Evaluate(&http.Response{StatusCode: 200}, set, Tags{})
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].Passed {
		t.Error("panicking check should fail")
	}
	if !strings.Contains(outcomes[0].Error, "panicked") {
		t.Errorf("Error = %q, want panic reason", outcomes[0].Error)
	}
	if !outcomes[1].Passed {
		t.Error("checks after a panic should still run")
	}
}

func TestEvaluate_NilPredicate(t *testing.T) {
	outcomes := Evaluate(&http.Response{StatusCode: 200}, Set{{Name: "empty"}}, Tags{})
	if len(outcomes) != 1 || outcomes[0].Passed {
		t.Errorf("nil predicate should fail: %+v", outcomes)
	}
}

func TestEvaluate_EmptySet(t *testing.T) {
	if outcomes := Evaluate(&http.Response{StatusCode: 200}, nil, Tags{}); outcomes != nil {
		t.Errorf("expected nil, got %v", outcomes)
	}
}

func TestEvaluate_ErrorOverridesTrue(t *testing.T) {
	set := Set{New("odd", func(*http.Response) (bool, error) {
		return true, errors.New("but also wrong")
	})}
	if Evaluate(&http.Response{}, set, Tags{})[0].Passed {
		t.Error("a predicate returning an error must not pass")
	}
}

func TestSet_Names(t *testing.T) {
	set := Set{Status(200), New("has body", BodyContains("x"))}
	names := set.Names()
	if len(names) != 2 || names[0] != "status 200" || names[1] != "has body" {
		t.Errorf("Names() = %v", names)
	}
}
