// Package heap implements the first-fit, split-on-alloc, coalesce-on-free
// byte allocator of §4.2: a fixed-size region carved into contiguous chunks,
// each preceded by a 4-byte packed header, walked linearly on every
// operation. There are no size classes and no free lists — the entire
// allocator state is the header bytes themselves, exactly as the original
// firmware's neo_alloc.c keeps it.
package heap

import (
	"encoding/binary"

	"github.com/neofytr/neoRTOS/irq"
)

// headerSize is H: the packed chunk header is allocated(1) + size(2) +
// padding(1), matching the original firmware's ChunkHeader byte-for-byte so
// a capture of this heap's bytes would be indistinguishable from the
// microcontroller's.
const headerSize = 4

// Align is A: every payload address this allocator returns is a multiple
// of Align bytes from the start of the region.
const Align = 4

// Default configuration constants, named after §6's compile-time tunables.
const (
	DefaultSize         = 1024
	DefaultSplitCutoff  = 16
	DefaultDefragCutoff = 10
)

// Ptr is an offset into a Heap's backing region — this allocator's stand-in
// for a hardware byte address, since there is no real address space to hand
// out pointers into. Offset 0 is never a valid payload address (it falls
// inside the first chunk's header), so Ptr(0) doubles as the allocator's
// null.
type Ptr uint16

// Config holds the compile-time constants §6 lists for the heap: region
// size, the split-or-consume-whole threshold, and the coalescing trigger.
type Config struct {
	Size         uint16
	SplitCutoff  uint16
	DefragCutoff int
}

// DefaultConfig returns the 1KB heap used by the test scenarios in §8.
func DefaultConfig() Config {
	return Config{
		Size:         DefaultSize,
		SplitCutoff:  DefaultSplitCutoff,
		DefragCutoff: DefaultDefragCutoff,
	}
}

// chunkHeader is the decoded form of the 4 header bytes at a chunk's
// offset: allocated flag, payload size (excluding this header), and the
// padding byte the original layout reserves but never uses.
type chunkHeader struct {
	allocated uint8
	size      uint16
	padding   uint8
}

// Heap is a fixed-size byte region managed as a sequence of chunks. It is
// not safe to share a *Heap across goroutines without the irq critical
// section every exported method already takes — the same single
// global-interrupt-disable discipline as package kernel, since on the
// modeled hardware the heap and the scheduler fight over the same CPSID bit.
type Heap struct {
	cfg Config
	buf []byte

	freeCalls    int
	failedAllocs uint64
}

// New allocates the backing region and initializes it as a single free
// chunk spanning the whole heap (§4.2's heap_init).
func New(cfg Config) *Heap {
	h := &Heap{cfg: cfg, buf: make([]byte, cfg.Size)}
	h.Init()
	return h
}

// Init resets the heap to a single free chunk spanning the whole region.
// Safe to call again to discard all outstanding allocations.
func (h *Heap) Init() {
	defer irq.Enter()()
	h.freeCalls = 0
	h.setHeader(0, chunkHeader{allocated: 0, size: uint16(len(h.buf)) - headerSize})
}

func (h *Heap) header(offset uint16) chunkHeader {
	b := h.buf[offset : offset+headerSize]
	return chunkHeader{
		allocated: b[0],
		size:      binary.LittleEndian.Uint16(b[1:3]),
		padding:   b[3],
	}
}

func (h *Heap) setHeader(offset uint16, c chunkHeader) {
	b := h.buf[offset : offset+headerSize]
	b[0] = c.allocated
	binary.LittleEndian.PutUint16(b[1:3], c.size)
	b[3] = c.padding
}

// alignUp rounds n up to the nearest multiple of Align, per §4.2 step 1.
func alignUp(n uint16) uint16 {
	m := (n + Align - 1) &^ (Align - 1)
	if m == 0 {
		m = Align
	}
	return m
}

// Alloc returns a Ptr to at least n bytes, aligned to Align, and true — or
// (0, false) if no free chunk is large enough. Matches §4.2's alloc(n).
func (h *Heap) Alloc(n uint16) (Ptr, bool) {
	defer irq.Enter()()

	m := alignUp(n)
	size := uint16(len(h.buf))

	for offset := uint16(0); offset < size; {
		c := h.header(offset)
		if c.allocated == 0 && c.size >= m {
			if c.size >= m+headerSize+h.cfg.SplitCutoff {
				newOffset := offset + headerSize + m
				h.setHeader(newOffset, chunkHeader{allocated: 0, size: c.size - m - headerSize})
				h.setHeader(offset, chunkHeader{allocated: 1, size: m})
			} else {
				h.setHeader(offset, chunkHeader{allocated: 1, size: c.size})
			}
			return Ptr(offset + headerSize), true
		}
		offset += headerSize + c.size
	}

	h.failedAllocs++
	return 0, false
}

// Free releases a pointer previously returned by Alloc. Out-of-range,
// zero, or already-free pointers are silently ignored, per §4.2 step 1's
// defensive validation — the core never reports this as an error.
func (h *Heap) Free(p Ptr) {
	defer irq.Enter()()

	if p < headerSize || int(p) >= len(h.buf) {
		return
	}
	offset := uint16(p) - headerSize
	c := h.header(offset)
	if c.allocated == 0 {
		return
	}
	c.allocated = 0
	h.setHeader(offset, c)

	h.freeCalls++
	if h.freeCalls >= h.cfg.DefragCutoff {
		h.defragmentLocked()
		h.freeCalls = 0
	}
}

// defragmentLocked merges every run of adjacent free chunks into one,
// re-examining the merged chunk's new successor instead of advancing past
// it, per §4.2's coalescing pass.
func (h *Heap) defragmentLocked() {
	size := uint16(len(h.buf))
	offset := uint16(0)
	for offset < size {
		c := h.header(offset)
		if c.allocated == 0 {
			next := offset + headerSize + c.size
			if next >= size {
				break
			}
			nc := h.header(next)
			if nc.allocated == 0 {
				c.size += headerSize + nc.size
				h.setHeader(offset, c)
				continue
			}
		}
		offset += headerSize + c.size
	}
}

// FailedAllocs returns the number of Alloc calls that found no fitting
// chunk, the supplemented counter SPEC_FULL.md adds alongside the original
// firmware's free-count defragmentation trigger.
func (h *Heap) FailedAllocs() uint64 {
	defer irq.Enter()()
	return h.failedAllocs
}

// Size returns the total size of the managed region.
func (h *Heap) Size() uint16 {
	return uint16(len(h.buf))
}

// Bytes returns a slice view of the n bytes starting at p, for diagnostic
// and test use (see internal/memcheck) — ordinary thread code has no
// business calling this; it bypasses the pointer that Alloc returned and
// can observe a chunk mid-mutation if called without the same discipline
// Alloc/Free use.
func (h *Heap) Bytes(p Ptr, n uint16) []byte {
	return h.buf[p : uint16(p)+n]
}
