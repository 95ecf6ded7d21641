package tick

import "sync"

// CriticalSection is the kernel-wide "mask interrupts" primitive from spec
// §4.1: a region of code that runs with the (simulated) global interrupt
// line masked, guaranteeing atomicity against everything that isn't already
// holding it — the tick driver, timer-callback dispatch, and any goroutine
// standing in for a hardware ISR.
//
// On real hardware this is a single bit: Enter saves and clears it, Exit
// restores whatever was saved, and nesting works for free because saving an
// already-disabled state and restoring it later is a no-op. A hosted Go
// process has no such bit and does have genuinely concurrent goroutines, so
// CriticalSection is backed by a real mutex. It is NOT reentrant: internal
// helpers that need to run with the section already held use the "Locked"
// naming convention (mirroring ChunkedIngress.pushLocked/popLocked in the
// eventloop package this kernel is ported from) instead of calling Enter
// again, exactly as §4.1 requires ("must not suspend or yield" inside a
// section rules out any blocking re-entry anyway).
type CriticalSection struct {
	mu sync.Mutex
}

// Token is returned by Enter and consumed by Exit. Its only purpose is to
// keep the Enter/Exit pairing explicit at call sites, mirroring the
// save-previous-state/restore-previous-state shape of the platform port
// described in spec §6.
type Token struct{}

// Enter masks the section, blocking until any concurrent holder releases it.
func (c *CriticalSection) Enter() Token {
	c.mu.Lock()
	return Token{}
}

// Exit restores the section to unmasked.
func (c *CriticalSection) Exit(Token) {
	c.mu.Unlock()
}

// With runs fn inside the critical section and restores it on return, even
// if fn panics. Preferred over manual Enter/Exit pairs everywhere the
// section doesn't need to stay held across a yield point (which, per spec,
// it never should).
func (c *CriticalSection) With(fn func()) {
	tok := c.Enter()
	defer c.Exit(tok)
	fn()
}
