// Package timer provides cancellable delayed callbacks keyed by purpose, with
// a manual scheduler for deterministic tests.
package timer

import (
	"sort"
	"sync"
	"time"
)

// Timer is a pending callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs fn once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// Real schedules on the wall clock.
type Real struct{}

// AfterFunc wraps time.AfterFunc.
func (Real) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// Manual is a scheduler driven by Advance.
type Manual struct {
	mu      sync.Mutex
	now     time.Duration
	seq     int
	pending []*manualTimer
}

type manualTimer struct {
	m       *Manual
	at      time.Duration
	seq     int
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// NewManual creates a manual scheduler at time zero.
func NewManual() *Manual {
	return &Manual{}
}

// AfterFunc registers fn to fire once Advance moves past d.
func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{m: m, at: m.now + d, seq: m.seq, fn: fn}
	m.pending = append(m.pending, t)
	return t
}

// Advance moves the clock forward and fires due timers in order. Timers
// scheduled by fired callbacks also fire if they fall within the window.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		sort.SliceStable(m.pending, func(i, j int) bool {
			if m.pending[i].at != m.pending[j].at {
				return m.pending[i].at < m.pending[j].at
			}
			return m.pending[i].seq < m.pending[j].seq
		})
		var next *manualTimer
		for len(m.pending) > 0 {
			t := m.pending[0]
			if t.stopped {
				m.pending = m.pending[1:]
				continue
			}
			if t.at <= target {
				next = t
				m.pending = m.pending[1:]
				t.stopped = true
				m.now = t.at
			}
			break
		}
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()
		next.fn()
	}
}

// Pending reports how many timers are still armed.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.pending {
		if !t.stopped {
			n++
		}
	}
	return n
}

// Set holds at most one timer per key. Starting a key cancels its previous
// timer.
type Set struct {
	mu     sync.Mutex
	sched  Scheduler
	timers map[string]Timer
	gen    map[string]uint64
}

// NewSet creates a set on the given scheduler (Real when nil).
func NewSet(s Scheduler) *Set {
	if s == nil {
		s = Real{}
	}
	return &Set{sched: s, timers: make(map[string]Timer), gen: make(map[string]uint64)}
}

// Start arms fn under key after d.
func (s *Set) Start(key string, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[key]; ok {
		t.Stop()
	}
	s.gen[key]++
	g := s.gen[key]
	s.timers[key] = s.sched.AfterFunc(d, func() {
		s.mu.Lock()
		if s.gen[key] != g {
			s.mu.Unlock()
			return
		}
		delete(s.timers, key)
		s.mu.Unlock()
		fn()
	})
}

// Stop cancels the timer under key, reporting whether one was armed.
func (s *Set) Stop(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.timers[key]
	if !ok {
		return false
	}
	s.gen[key]++
	delete(s.timers, key)
	return t.Stop()
}

// Active reports whether a timer is armed under key.
func (s *Set) Active(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[key]
	return ok
}

// StopAll cancels every timer.
func (s *Set) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, t := range s.timers {
		t.Stop()
		s.gen[k]++
		delete(s.timers, k)
	}
}
