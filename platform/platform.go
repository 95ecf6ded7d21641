// Package platform is the two-function port boundary described in spec §6:
// a tick source that drives the kernel's scheduler entry point, and an
// optional idle hook invoked when the idle task runs with nothing else
// ready.
//
// A real microcontroller port would also supply the context-switch
// trampoline (save outgoing registers, load incoming SP, restore incoming
// registers) and the primed-stack-frame construction for new tasks. This Go
// port replaces that half of the boundary with goroutines parked on
// channels (see task.TCB), because a hosted Go process has no stack
// pointers to manipulate directly; see SPEC_FULL.md's EXECUTION MODEL
// section for the full rationale. What remains a genuine, swappable port
// boundary is the tick source and the idle hook, both defined here.
package platform

import "time"

// TickSource drives the scheduler's tick handler at a fixed rate. Run must
// call fire once per tick and block until stop is closed.
type TickSource interface {
	Run(stop <-chan struct{}, fire func())
}

// TickerSource is the default TickSource: a hardware timer stand-in backed
// by time.Ticker, firing at the configured rate (default 1kHz per spec
// §4.1).
type TickerSource struct {
	Rate time.Duration
}

// NewTickerSource returns a TickerSource at the given rate, defaulting to
// 1ms (1kHz) when rate is non-positive.
func NewTickerSource(rate time.Duration) *TickerSource {
	if rate <= 0 {
		rate = time.Millisecond
	}
	return &TickerSource{Rate: rate}
}

// Run implements TickSource.
func (s *TickerSource) Run(stop <-chan struct{}, fire func()) {
	t := time.NewTicker(s.Rate)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			fire()
		}
	}
}

// IdleHook is invoked by the idle task body when no other task is ready to
// run (spec §6, "Optional idle hook"). The default sleeps briefly, standing
// in for a wait-for-interrupt instruction; a port for a specific board can
// replace it with an actual low-power sleep.
type IdleHook func()

// DefaultIdleHook sleeps for a short duration, yielding the OS thread
// instead of spinning. It is intentionally much shorter than the tick rate
// so it never itself causes a missed tick.
func DefaultIdleHook() {
	time.Sleep(50 * time.Microsecond)
}
