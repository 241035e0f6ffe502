package debounce_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"fintrack/internal/clock"
	"fintrack/internal/debounce"
	"fintrack/internal/testutil"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
	at    []time.Time
}

func (r *recorder) record(clk *testutil.FakeClock) func(string) {
	return func(v string) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.calls = append(r.calls, v)
		r.at = append(r.at, clk.Now())
	}
}

func TestInvoker_CollapsesBurst(t *testing.T) {
	start := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	clk := testutil.NewFakeClock(start)
	rec := &recorder{}
	inv := debounce.New(clk, time.Second, rec.record(clk))

	for _, text := range []string{"c", "co", "cof"} {
		inv.Schedule(text)
		clk.Advance(300 * time.Millisecond)
	}
	inv.Schedule("coffee")
	last := clk.Now()

	clk.Advance(999 * time.Millisecond)
	assert.Empty(t, rec.calls)

	clk.Advance(time.Millisecond)
	assert.Equal(t, []string{"coffee"}, rec.calls)
	assert.Equal(t, last.Add(time.Second), rec.at[0])

	clk.Advance(5 * time.Second)
	assert.Len(t, rec.calls, 1)
}

func TestInvoker_Cancel(t *testing.T) {
	clk := testutil.NewFakeClock(time.Now())
	rec := &recorder{}
	inv := debounce.New(clk, time.Second, rec.record(clk))

	inv.Schedule("coffee")
	assert.True(t, inv.Pending())
	inv.Cancel()
	assert.False(t, inv.Pending())

	clk.Advance(2 * time.Second)
	assert.Empty(t, rec.calls)
}

func TestInvoker_Flush(t *testing.T) {
	clk := testutil.NewFakeClock(time.Now())
	rec := &recorder{}
	inv := debounce.New(clk, time.Second, rec.record(clk))

	assert.False(t, inv.Flush())

	inv.Schedule("groceries")
	assert.True(t, inv.Flush())
	assert.Equal(t, []string{"groceries"}, rec.calls)

	clk.Advance(2 * time.Second)
	assert.Len(t, rec.calls, 1, "flushed call must not run again from the timer")
}

func TestInvoker_Close(t *testing.T) {
	clk := testutil.NewFakeClock(time.Now())
	rec := &recorder{}
	inv := debounce.New(clk, time.Second, rec.record(clk))

	inv.Schedule("rent")
	inv.Close()
	inv.Schedule("rent again")
	clk.Advance(2 * time.Second)

	assert.Empty(t, rec.calls)
	assert.False(t, inv.Pending())
}

func TestInvoker_StaleCallbackIgnored(t *testing.T) {
	clk := &staleClock{}
	var calls []string
	inv := debounce.New[string](clk, time.Second, func(v string) { calls = append(calls, v) })

	inv.Schedule("first")
	inv.Schedule("second")

	// Stop never prevents the callback here, so both timers fire.
	for _, f := range clk.funcs {
		f()
	}
	assert.Equal(t, []string{"second"}, calls)
}

type staleClock struct {
	funcs []func()
}

type noopTimer struct{}

func (noopTimer) Stop() bool { return false }

func (c *staleClock) Now() time.Time { return time.Time{} }

func (c *staleClock) AfterFunc(_ time.Duration, f func()) clock.Timer {
	c.funcs = append(c.funcs, f)
	return noopTimer{}
}
