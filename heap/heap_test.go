package heap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nanorios/tinykernel/heap"
	"github.com/nanorios/tinykernel/kstatus"
)

func TestMallocFirstFitAndFree(t *testing.T) {
	h := heap.New(64, 16) // 4 blocks of 16 bytes
	p1, buf1, status := h.Malloc(10)
	require.True(t, status.OK())
	assert.Len(t, buf1, 10)
	assert.Equal(t, 3, h.FreeBlocks())

	p2, buf2, status := h.Malloc(20) // needs 2 blocks
	require.True(t, status.OK())
	assert.Len(t, buf2, 20)
	assert.Equal(t, 1, h.FreeBlocks())

	require.Equal(t, kstatus.Ok, h.Free(p1))
	assert.Equal(t, 2, h.FreeBlocks())

	require.Equal(t, kstatus.Ok, h.Free(p2))
	assert.Equal(t, 4, h.FreeBlocks())
}

func TestMallocReturnsNoMemoryWhenExhausted(t *testing.T) {
	h := heap.New(32, 16) // 2 blocks
	_, _, status := h.Malloc(16)
	require.True(t, status.OK())
	_, _, status = h.Malloc(32) // needs 2 blocks, only 1 left
	assert.Equal(t, kstatus.NoMemory, status)
}

func TestDoubleFreeIsIgnored(t *testing.T) {
	h := heap.New(32, 16)
	p, _, status := h.Malloc(8)
	require.True(t, status.OK())
	require.Equal(t, kstatus.Ok, h.Free(p))
	assert.Equal(t, 2, h.FreeBlocks())
	// Freeing again must not corrupt block accounting.
	require.Equal(t, kstatus.Ok, h.Free(p))
	assert.Equal(t, 2, h.FreeBlocks())
}

func TestFreeingNonHeadBlockIsIgnored(t *testing.T) {
	h := heap.New(64, 16)
	p, _, status := h.Malloc(40) // spans 3 blocks
	require.True(t, status.OK())
	assert.Equal(t, kstatus.Ok, h.Free(heap.Ptr(int(p)+1)))
	assert.Equal(t, 1, h.FreeBlocks(), "freeing a non-head block must be a no-op")
}

func TestAutoSizedZeroFractionUsesDefault(t *testing.T) {
	h := heap.NewAutoSized(64, 0)
	assert.Greater(t, h.TotalBlocks(), 0)
	assert.Equal(t, 64, h.BlockSize())
}
