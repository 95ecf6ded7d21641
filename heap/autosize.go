package heap

import "github.com/pbnjay/memory"

// DefaultFraction is the share of total physical memory NewAutoSized
// devotes to the kernel heap when the caller doesn't have a firmer
// number (spec leaves pool sizing to the integrator; on a hosted target
// "total RAM" is the nearest analogue to the fixed region a real MCU
// build would carve out of its linker script).
const DefaultFraction = 0.05

// NewAutoSized sizes a Heap as a fraction of the host's total physical
// memory, as reported by pbnjay/memory — useful for the demo entrypoint
// and for tests that don't want to hardcode a pool size. Falls back to a
// 1 MiB pool if the platform doesn't expose total memory (memory.TotalMemory
// returns 0 on an unsupported OS).
func NewAutoSized(blockSize int, fraction float64) *Heap {
	if fraction <= 0 {
		fraction = DefaultFraction
	}
	total := memory.TotalMemory()
	size := int(float64(total) * fraction)
	if size <= 0 {
		size = 1 << 20
	}
	return New(size, blockSize)
}
