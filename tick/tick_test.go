package tick

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBeforeAfterWraparound(t *testing.T) {
	assert.True(t, Before(10, 20))
	assert.False(t, Before(20, 10))
	assert.False(t, Before(10, 10))

	// Counter wraps from near-max back to 0: 0 is "after" the max value.
	var max Count = ^Count(0)
	assert.True(t, Before(max, 0))
	assert.True(t, After(0, max))
}

func TestDeadlineAndExpired(t *testing.T) {
	now := Count(100)
	dl := Deadline(now, 50)
	assert.Equal(t, Count(150), dl)
	assert.False(t, Expired(now, dl))
	assert.False(t, Expired(Count(149), dl))
	assert.True(t, Expired(Count(150), dl))
	assert.True(t, Expired(Count(151), dl))
}

func TestDeadlineWrapsAcross32Bits(t *testing.T) {
	// A pending delay started near the top of the 32-bit range must still
	// expire correctly once the counter wraps to near zero.
	now := Count(^uint32(0) - 5)
	dl := Deadline(now, 10)
	assert.False(t, Expired(now, dl))
	assert.False(t, Expired(Count(^uint32(0)), dl))
	assert.False(t, Expired(Count(2), dl))
	assert.True(t, Expired(Count(4), dl))
}

func TestCounterAdvance(t *testing.T) {
	var c Counter
	assert.Equal(t, Count(0), c.Now())
	assert.Equal(t, Count(1), c.Advance())
	assert.Equal(t, Count(2), c.Advance())
	assert.Equal(t, Count(2), c.Now())
}

func TestCriticalSectionExclusion(t *testing.T) {
	var cs CriticalSection
	var counter int
	done := make(chan struct{})
	const n = 100
	for i := 0; i < n; i++ {
		go func() {
			cs.With(func() {
				counter++
			})
			done <- struct{}{}
		}()
	}
	for i := 0; i < n; i++ {
		<-done
	}
	assert.Equal(t, n, counter)
}
