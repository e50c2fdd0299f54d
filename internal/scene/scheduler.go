package scene

import (
	"sync"
	"time"
)

// Scheduler is the host's schedule-frame primitive. Schedule arranges for fn
// to run once at the next frame and returns a function that cancels it.
type Scheduler interface {
	Schedule(fn func(now time.Time)) (cancel func())
}

// TickerScheduler runs frames on a fixed interval using timers.
type TickerScheduler struct {
	Interval time.Duration
}

// NewTickerScheduler creates a scheduler for the given frame rate.
func NewTickerScheduler(fps int) *TickerScheduler {
	if fps <= 0 {
		fps = 30
	}
	return &TickerScheduler{Interval: time.Second / time.Duration(fps)}
}

// Schedule runs fn after one interval.
func (s *TickerScheduler) Schedule(fn func(now time.Time)) func() {
	t := time.AfterFunc(s.Interval, func() { fn(time.Now()) })
	return func() { t.Stop() }
}

// Loop is a self-rescheduling frame callback. Each tick runs one frame and
// schedules the next; Stop ends the chain and is safe to call repeatedly.
type Loop struct {
	sched   Scheduler
	frame   func(now time.Time)
	mu      sync.Mutex
	cancel  func()
	running bool
}

// NewLoop creates a stopped loop.
func NewLoop(sched Scheduler, frame func(now time.Time)) *Loop {
	return &Loop{sched: sched, frame: frame}
}

// Start schedules the first frame. Starting a running loop does nothing.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return
	}
	l.running = true
	l.cancel = l.sched.Schedule(l.tick)
}

func (l *Loop) tick(now time.Time) {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()

	l.frame(now)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		l.cancel = l.sched.Schedule(l.tick)
	}
}

// Stop cancels the pending frame.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return
	}
	l.running = false
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}

// Running reports whether frames are still being scheduled.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}
