// Package memcheck provides checksum-based corruption detection for byte
// regions the heap allocator hands out, standing in for the CRC scrubbing a
// microcontroller's debug build would run to catch a wild write landing
// outside the writer's own allocation.
package memcheck

import "golang.org/x/crypto/blake2b"

// Sum is a recorded checksum of a byte region.
type Sum [blake2b.Size256]byte

// Checksum hashes b with BLAKE2b-256.
func Checksum(b []byte) Sum {
	return blake2b.Sum256(b)
}

// Region tracks one contiguous span of bytes expected to remain unchanged
// between a checkpoint and a later verification — for example, the bytes
// backing a live heap allocation, which nothing but the thread that owns it
// (and heap.Free, on release) should ever touch.
type Region struct {
	buf  []byte
	want Sum
}

// Watch records buf's current contents as the expected baseline.
func Watch(buf []byte) *Region {
	return &Region{buf: buf, want: Checksum(buf)}
}

// Intact reports whether buf still matches the recorded baseline.
func (r *Region) Intact() bool {
	return Checksum(r.buf) == r.want
}

// Rewatch re-baselines after an intentional change, such as the region
// being freed and its bytes legitimately reused.
func (r *Region) Rewatch() {
	r.want = Checksum(r.buf)
}
