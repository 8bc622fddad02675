package check

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Record(t *testing.T) {
	c := NewCollector(0)
	c.Record(
		Outcome{Name: "status 200", Passed: true},
		Outcome{Name: "has users", Passed: false},
		Outcome{Name: "status 200", Passed: false},
		Outcome{Name: "status 200", Passed: true},
	)

	results := c.Results()
	require.Len(t, results, 2)
	assert.Equal(t, "status 200", results[0].Name, "first-seen order")
	assert.Equal(t, int64(2), results[0].Passes)
	assert.Equal(t, int64(1), results[0].Fails)
	assert.InDelta(t, 2.0/3.0, results[0].Rate(), 1e-9)
	assert.Equal(t, "has users", results[1].Name)

	passes, fails := c.Totals()
	assert.Equal(t, int64(2), passes)
	assert.Equal(t, int64(2), fails)
	assert.InDelta(t, 0.5, c.PassRate(), 1e-9)

	r, ok := c.Result("has users")
	require.True(t, ok)
	assert.Equal(t, int64(1), r.Total())

	_, ok = c.Result("unknown")
	assert.False(t, ok)
}

func TestCollector_Empty(t *testing.T) {
	c := NewCollector(-1)
	assert.Empty(t, c.Results())
	assert.Equal(t, 0.0, c.PassRate())
	assert.Empty(t, c.Recent())
	assert.Equal(t, 0.0, Result{}.Rate())
}

func TestCollector_Recent(t *testing.T) {
	c := NewCollector(3)
	for i := int64(1); i <= 5; i++ {
		c.Record(Outcome{Name: "status 200", Passed: true, Iteration: i})
	}

	recent := c.Recent()
	require.Len(t, recent, 3)
	assert.Equal(t, int64(3), recent[0].Iteration)
	assert.Equal(t, int64(4), recent[1].Iteration)
	assert.Equal(t, int64(5), recent[2].Iteration)

	partial := NewCollector(10)
	partial.Record(Outcome{Name: "a", Iteration: 1}, Outcome{Name: "a", Iteration: 2})
	recent = partial.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, int64(1), recent[0].Iteration)
}

func TestCollector_Concurrent(t *testing.T) {
	c := NewCollector(16)

	const workers = 50
	const perWorker = 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(vu int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				c.Record(Outcome{Name: "status 200", Passed: i%2 == 0, VUID: vu})
			}
		}(w)
	}
	wg.Wait()

	r, ok := c.Result("status 200")
	require.True(t, ok)
	assert.Equal(t, int64(workers*perWorker), r.Total())
	assert.Equal(t, int64(workers*perWorker/2), r.Passes)
	assert.Len(t, c.Recent(), 16)
}
