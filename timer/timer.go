// Package timer implements the kernel's software timer service (spec
// §4.8): one-shot and auto-reload timers, held in a tick-ordered singly
// linked list and expired in a single scan per tick.
package timer

import (
	"github.com/nanorios/tinykernel/kstatus"
	"github.com/nanorios/tinykernel/tick"
)

// Mode selects whether a Timer fires once or keeps reloading.
type Mode int

const (
	OneShot Mode = iota
	AutoReload
)

// Callback is invoked when a Timer expires. It runs outside the service's
// critical section (spec §4.8), on whatever goroutine called
// ProcessExpired — ordinarily the kernel's tick driver — so it must not
// block for long; see Dispatcher for offloading slow callbacks.
type Callback func()

// Timer is one scheduled callback. The zero value is not usable; create
// one with Service.NewTimer.
type Timer struct {
	name     string
	period   uint32
	mode     Mode
	callback Callback

	active bool
	expiry tick.Count
	next   *Timer
}

// Name returns the timer's diagnostic name.
func (t *Timer) Name() string { return t.name }

// Service owns the sorted list of armed timers and drives their expiry.
type Service struct {
	cs   tick.CriticalSection
	head *Timer
}

// NewService returns an empty timer service.
func NewService() *Service {
	return &Service{}
}

// NewTimer creates a Timer bound to this service but does not arm it;
// call Start to begin counting down.
func (s *Service) NewTimer(name string, period uint32, mode Mode, cb Callback) *Timer {
	return &Timer{name: name, period: period, mode: mode, callback: cb}
}

// Start arms t to fire period ticks from now. Starting an already-active
// timer re-arms it from now, same as Reset — this operation is
// idempotent, matching the original's timer semantics pulled in from
// original_source/'s src/timer.c (see SPEC_FULL.md's DOMAIN STACK
// supplement section).
func (s *Service) Start(t *Timer, now tick.Count) kstatus.Status {
	if t.period == 0 {
		return kstatus.InvalidParam
	}
	s.cs.With(func() {
		if t.active {
			s.removeLocked(t)
		}
		t.expiry = tick.Deadline(now, t.period)
		t.active = true
		s.insertSortedLocked(t)
	})
	return kstatus.Ok
}

// Reset is Start under a more familiar name for an already-running timer.
func (s *Service) Reset(t *Timer, now tick.Count) kstatus.Status {
	return s.Start(t, now)
}

// Stop disarms t. Stopping an already-stopped timer is a no-op, not an
// error — idempotent stop, per the same original_source/ reference as
// Start's re-arm behavior.
func (s *Service) Stop(t *Timer) kstatus.Status {
	s.cs.With(func() {
		if t.active {
			s.removeLocked(t)
			t.active = false
		}
	})
	return kstatus.Ok
}

// ChangePeriod updates t's period. If t is currently active it is
// re-armed from now with the new period; if inactive, the new period
// only takes effect on the next Start.
func (s *Service) ChangePeriod(t *Timer, period uint32, now tick.Count) kstatus.Status {
	if period == 0 {
		return kstatus.InvalidParam
	}
	s.cs.With(func() {
		t.period = period
		if t.active {
			s.removeLocked(t)
			t.expiry = tick.Deadline(now, period)
			s.insertSortedLocked(t)
		}
	})
	return kstatus.Ok
}

// Active reports whether t is currently armed.
func (s *Service) Active(t *Timer) bool {
	active := false
	s.cs.With(func() { active = t.active })
	return active
}

// ProcessExpired pops every timer due at or before now, runs its callback
// outside the lock, and re-arms auto-reload timers for their next period.
// Intended to be called once per tick by whatever drives the kernel's
// tick counter.
func (s *Service) ProcessExpired(now tick.Count) {
	var fired []*Timer
	s.cs.With(func() {
		for s.head != nil && tick.Expired(now, s.head.expiry) {
			t := s.head
			s.head = t.next
			t.next = nil
			fired = append(fired, t)
		}
	})
	for _, t := range fired {
		if t.callback != nil {
			t.callback()
		}
		s.cs.With(func() {
			if t.mode == AutoReload {
				t.expiry = tick.Deadline(now, t.period)
				s.insertSortedLocked(t)
			} else {
				t.active = false
			}
		})
	}
}

// insertSortedLocked inserts t into the ascending-expiry list. Must be
// called with cs held.
func (s *Service) insertSortedLocked(t *Timer) {
	if s.head == nil || tick.Before(t.expiry, s.head.expiry) {
		t.next = s.head
		s.head = t
		return
	}
	n := s.head
	for n.next != nil && !tick.Before(t.expiry, n.next.expiry) {
		n = n.next
	}
	t.next = n.next
	n.next = t
}

// removeLocked unlinks t from the list if present. Must be called with
// cs held.
func (s *Service) removeLocked(t *Timer) {
	if s.head == t {
		s.head = t.next
		t.next = nil
		return
	}
	for n := s.head; n != nil; n = n.next {
		if n.next == t {
			n.next = t.next
			t.next = nil
			return
		}
	}
}
