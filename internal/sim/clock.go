package sim

import (
	"container/heap"
	"sync"
	"time"
)

// Clock abstracts scheduling so simulated delays of "10 minutes" can run
// against real timers in production and be advanced instantly in tests.
type Clock interface {
	Now() time.Time
	// Schedule arranges for fn to run once after d has elapsed on this
	// clock's timeline. The returned cancel stops a pending fire; it is
	// a no-op once fn has run.
	Schedule(d time.Duration, fn func()) (cancel func())
}

// RealClock schedules on the wall clock via time.AfterFunc.
type RealClock struct{}

// Now returns the current wall-clock time.
func (RealClock) Now() time.Time { return time.Now() }

// Schedule runs fn after d on its own goroutine.
func (RealClock) Schedule(d time.Duration, fn func()) func() {
	if d < 0 {
		d = 0
	}
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

// VirtualClock is a deterministic clock for tests. Time only moves when
// Advance is called; due callbacks fire synchronously, in due order, with
// Now set to each callback's due instant. Callbacks may schedule further
// work, which fires in the same Advance if it comes due within the window.
type VirtualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers timerHeap
	seq    int
}

// NewVirtualClock creates a virtual clock starting at the given instant.
func NewVirtualClock(start time.Time) *VirtualClock {
	return &VirtualClock{now: start}
}

// Now returns the virtual current time.
func (c *VirtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Schedule registers fn to fire at now+d during a future Advance.
func (c *VirtualClock) Schedule(d time.Duration, fn func()) func() {
	if d < 0 {
		d = 0
	}
	c.mu.Lock()
	t := &virtualTimer{due: c.now.Add(d), seq: c.seq, fn: fn}
	c.seq++
	heap.Push(&c.timers, t)
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		t.canceled = true
		c.mu.Unlock()
	}
}

// Advance moves virtual time forward by d, firing every timer that comes
// due along the way in chronological order.
func (c *VirtualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	for {
		if c.timers.Len() == 0 {
			break
		}
		next := c.timers[0]
		if next.due.After(target) {
			break
		}
		heap.Pop(&c.timers)
		if next.canceled {
			continue
		}
		if next.due.After(c.now) {
			c.now = next.due
		}
		fn := next.fn
		// Fire outside the lock: callbacks schedule follow-up stages.
		c.mu.Unlock()
		fn()
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

type virtualTimer struct {
	due      time.Time
	seq      int
	fn       func()
	canceled bool
	index    int
}

type timerHeap []*virtualTimer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].due.Equal(h[j].due) {
		return h[i].seq < h[j].seq
	}
	return h[i].due.Before(h[j].due)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x interface{}) {
	t := x.(*virtualTimer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}
