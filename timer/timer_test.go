package timer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nanorios/tinykernel/kstatus"
	"github.com/nanorios/tinykernel/tick"
	"github.com/nanorios/tinykernel/timer"
)

func TestOneShotFiresOnceAtDeadline(t *testing.T) {
	s := timer.NewService()
	fired := 0
	tm := s.NewTimer("once", 5, timer.OneShot, func() { fired++ })
	require.Equal(t, kstatus.Ok, s.Start(tm, 0))

	for now := tick.Count(0); now < 5; now++ {
		s.ProcessExpired(now)
	}
	assert.Equal(t, 0, fired)
	s.ProcessExpired(5)
	assert.Equal(t, 1, fired)
	s.ProcessExpired(10)
	assert.Equal(t, 1, fired, "one-shot timer must not fire again")
	assert.False(t, s.Active(tm))
}

func TestAutoReloadKeepsFiring(t *testing.T) {
	s := timer.NewService()
	fired := 0
	tm := s.NewTimer("repeat", 3, timer.AutoReload, func() { fired++ })
	require.Equal(t, kstatus.Ok, s.Start(tm, 0))

	for now := tick.Count(1); now <= 12; now++ {
		s.ProcessExpired(now)
	}
	assert.Equal(t, 4, fired)
	assert.True(t, s.Active(tm))
}

func TestStopIsIdempotent(t *testing.T) {
	s := timer.NewService()
	tm := s.NewTimer("t", 5, timer.OneShot, func() {})
	require.Equal(t, kstatus.Ok, s.Start(tm, 0))
	require.Equal(t, kstatus.Ok, s.Stop(tm))
	assert.Equal(t, kstatus.Ok, s.Stop(tm), "stopping an already-stopped timer must not error")
}

func TestExpiryOrderingAcrossMultipleTimers(t *testing.T) {
	s := timer.NewService()
	var order []string
	mk := func(name string, period uint32) *timer.Timer {
		return s.NewTimer(name, period, timer.OneShot, func() { order = append(order, name) })
	}
	a, b, c := mk("a", 10), mk("b", 3), mk("c", 7)
	require.Equal(t, kstatus.Ok, s.Start(a, 0))
	require.Equal(t, kstatus.Ok, s.Start(b, 0))
	require.Equal(t, kstatus.Ok, s.Start(c, 0))

	for now := tick.Count(1); now <= 10; now++ {
		s.ProcessExpired(now)
	}
	assert.Equal(t, []string{"b", "c", "a"}, order)
}

func TestChangePeriodRearmsActiveTimer(t *testing.T) {
	s := timer.NewService()
	fired := 0
	tm := s.NewTimer("t", 10, timer.OneShot, func() { fired++ })
	require.Equal(t, kstatus.Ok, s.Start(tm, 0))
	require.Equal(t, kstatus.Ok, s.ChangePeriod(tm, 2, 0))

	s.ProcessExpired(1)
	assert.Equal(t, 0, fired)
	s.ProcessExpired(2)
	assert.Equal(t, 1, fired)
}
