package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// bucketRing keeps the most recent time buckets in a fixed-size ring.
//
// Requests are accumulated lock-free between emissions; emit swaps the
// accumulators out and appends a bucket.
type bucketRing struct {
	mu      sync.RWMutex
	buckets []TimeBucket
	head    int
	count   int

	lastEmit time.Time

	intervalRequests atomic.Int64
	intervalFailures atomic.Int64
}

func newBucketRing(size int) *bucketRing {
	if size <= 0 {
		size = 3600
	}
	return &bucketRing{
		buckets:  make([]TimeBucket, size),
		lastEmit: time.Now(),
	}
}

func (r *bucketRing) record(failed bool) {
	r.intervalRequests.Add(1)
	if failed {
		r.intervalFailures.Add(1)
	}
}

// emit closes the current interval. b carries the cumulative fields; the
// interval fields are filled in here.
func (r *bucketRing) emit(b TimeBucket) TimeBucket {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	requests := r.intervalRequests.Swap(0)
	failures := r.intervalFailures.Swap(0)

	interval := now.Sub(r.lastEmit)
	elapsed := interval.Seconds()
	if elapsed <= 0 {
		elapsed = 1.0
	}

	b.Timestamp = now
	b.Interval = interval
	b.IntervalRequests = requests
	b.IntervalRPS = float64(requests) / elapsed
	if requests > 0 {
		b.IntervalErrorRate = float64(failures) / float64(requests)
	}

	r.buckets[r.head] = b
	r.head = (r.head + 1) % len(r.buckets)
	if r.count < len(r.buckets) {
		r.count++
	}
	r.lastEmit = now

	return b
}

// all returns the buckets oldest first.
func (r *bucketRing) all() []TimeBucket {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.count == 0 {
		return nil
	}

	out := make([]TimeBucket, r.count)
	start := 0
	if r.count == len(r.buckets) {
		start = r.head
	}
	for i := 0; i < r.count; i++ {
		out[i] = r.buckets[(start+i)%len(r.buckets)]
	}
	return out
}

func (r *bucketRing) latest() (TimeBucket, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.count == 0 {
		return TimeBucket{}, false
	}
	return r.buckets[(r.head-1+len(r.buckets))%len(r.buckets)], true
}

// steadyStateRPS is the request rate over the steady buckets only. The
// second return is the number of buckets used.
func (r *bucketRing) steadyStateRPS() (float64, int) {
	var requests int64
	var span time.Duration
	var n int

	for _, b := range r.all() {
		if b.Phase != PhaseSteady {
			continue
		}
		requests += b.IntervalRequests
		span += b.Interval
		n++
	}
	if n == 0 || span <= 0 {
		return 0, n
	}
	return float64(requests) / span.Seconds(), n
}

func (r *bucketRing) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buckets = make([]TimeBucket, len(r.buckets))
	r.head = 0
	r.count = 0
	r.lastEmit = time.Now()
	r.intervalRequests.Store(0)
	r.intervalFailures.Store(0)
}
