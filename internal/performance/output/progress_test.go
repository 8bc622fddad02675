package output

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wesleyorama2/vuload/internal/performance/engine"
	"github.com/wesleyorama2/vuload/internal/performance/metrics"
)

// syncBuffer is a bytes.Buffer safe for the progress goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func liveStats() engine.Live {
	return engine.Live{
		Phase:         metrics.PhaseSteady,
		Elapsed:       12 * time.Second,
		Progress:      0.2,
		ActiveVUs:     500,
		Requests:      1234,
		Failed:        2,
		Iterations:    1229,
		CheckPassRate: 0.995,
	}
}

func TestRender(t *testing.T) {
	line := Render(liveStats())

	for _, want := range []string{"[12.0s]", "steady", "20%", "VUs: 500", "Reqs: 1,234", "Iters: 1,229", "Failed: 2", "Checks: 99.50%"} {
		if !strings.Contains(line, want) {
			t.Errorf("Render() = %q, missing %q", line, want)
		}
	}
}

func TestProgress_NonTTY(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, ProgressOptions{})

	p.Print(liveStats())
	p.Print(liveStats())
	p.Finish()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), buf.String())
	}
	if strings.Contains(buf.String(), "\r") {
		t.Error("non-terminal output must not redraw lines")
	}
}

func TestProgress_TTYRedraw(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, ProgressOptions{ForceTTY: true})

	long := liveStats()
	long.Requests = 123456789
	p.Print(long)
	p.Print(liveStats())
	p.Finish()

	out := buf.String()
	if strings.Count(out, "\r") != 2 {
		t.Errorf("expected two redraws, got %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("Finish should terminate the line")
	}
	second := out[strings.LastIndex(out, "\r")+1 : len(out)-1]
	if len(second) != len(Render(long)) {
		t.Errorf("shorter line should be padded to %d, got %d", len(Render(long)), len(second))
	}
}

func TestProgress_Run(t *testing.T) {
	buf := &syncBuffer{}
	p := NewProgress(buf, ProgressOptions{Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	calls := 0
	p.Run(ctx, func() (engine.Live, bool) {
		calls++
		if calls == 1 {
			return engine.Live{}, false
		}
		return liveStats(), true
	})

	if calls < 2 {
		t.Fatalf("source called %d times", calls)
	}
	if !strings.Contains(buf.String(), "VUs: 500") {
		t.Errorf("no progress printed: %q", buf.String())
	}
}

func TestProgress_Quiet(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, ProgressOptions{Quiet: true, Interval: time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	p.Run(ctx, func() (engine.Live, bool) { return liveStats(), true })

	if buf.Len() != 0 {
		t.Errorf("quiet progress wrote %q", buf.String())
	}
}
