// Package heap implements the kernel's deterministic block-based
// allocator (spec §4.9): a fixed-size backing region divided into equal
// blocks, first-fit allocation over contiguous free runs, and O(n)
// Malloc/Free with no fragmentation bookkeeping beyond an allocated flag
// per block.
package heap

import (
	"github.com/nanorios/tinykernel/kstatus"
	"github.com/nanorios/tinykernel/tick"
)

// Ptr identifies a live allocation by the index of its first block.
type Ptr int

// NilPtr is returned by Malloc on failure.
const NilPtr Ptr = -1

type blockHeader struct {
	allocated bool
	// blocks is nonzero only on the first block of an allocation run;
	// zero on every block after it and on free blocks. This is the
	// "allocated-flag header" spec §4.9 uses to detect a double Free:
	// freeing a block with blocks == 0 (already free, or not the head of
	// a run) is a silent no-op rather than an error.
	blocks int
}

// Heap is a fixed-capacity pool divided into blockSize-byte blocks.
type Heap struct {
	cs        tick.CriticalSection
	blockSize int
	storage   []byte
	headers   []blockHeader
}

// New returns a Heap backed by totalBytes of storage, divided into blocks
// of blockSize bytes (rounded down to a whole number of blocks).
func New(totalBytes, blockSize int) *Heap {
	if blockSize <= 0 {
		blockSize = 32
	}
	numBlocks := totalBytes / blockSize
	if numBlocks <= 0 {
		numBlocks = 1
	}
	return &Heap{
		blockSize: blockSize,
		storage:   make([]byte, numBlocks*blockSize),
		headers:   make([]blockHeader, numBlocks),
	}
}

// Malloc finds the first contiguous run of free blocks large enough for
// n bytes (first-fit, O(n) in the number of blocks) and returns a handle
// plus a slice view over exactly n bytes of it. Returns NoMemory if no
// run is large enough.
func (h *Heap) Malloc(n int) (Ptr, []byte, kstatus.Status) {
	if n <= 0 {
		return NilPtr, nil, kstatus.InvalidParam
	}
	need := (n + h.blockSize - 1) / h.blockSize
	result := NilPtr
	var slice []byte
	status := kstatus.NoMemory
	h.cs.With(func() {
		run, start := 0, -1
		for i := 0; i < len(h.headers); i++ {
			if h.headers[i].allocated {
				run = 0
				continue
			}
			if run == 0 {
				start = i
			}
			run++
			if run != need {
				continue
			}
			for j := start; j < start+need; j++ {
				h.headers[j].allocated = true
			}
			h.headers[start].blocks = need
			result = Ptr(start)
			slice = h.storage[start*h.blockSize : start*h.blockSize+n : start*h.blockSize+n]
			status = kstatus.Ok
			return
		}
	})
	return result, slice, status
}

// Free releases the allocation at p. NilPtr or an out-of-range index is
// rejected with InvalidParam. Freeing an already-free block, or a block
// that isn't the head of an allocation run, is a silent no-op returning
// Ok — the allocated-flag header is what makes a double Free detectable
// and harmless rather than corrupting.
func (h *Heap) Free(p Ptr) kstatus.Status {
	if p < 0 || int(p) >= len(h.headers) {
		return kstatus.InvalidParam
	}
	h.cs.With(func() {
		hdr := &h.headers[p]
		if !hdr.allocated || hdr.blocks == 0 {
			return
		}
		for j := int(p); j < int(p)+hdr.blocks; j++ {
			h.headers[j].allocated = false
		}
		hdr.blocks = 0
	})
	return kstatus.Ok
}

// FreeBlocks returns the number of currently-unallocated blocks.
func (h *Heap) FreeBlocks() int {
	n := 0
	h.cs.With(func() {
		for _, hdr := range h.headers {
			if !hdr.allocated {
				n++
			}
		}
	})
	return n
}

// BlockSize returns the fixed block size, in bytes.
func (h *Heap) BlockSize() int {
	return h.blockSize
}

// TotalBlocks returns the total number of blocks in the pool.
func (h *Heap) TotalBlocks() int {
	return len(h.headers)
}
