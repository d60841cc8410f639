package kernel

import "math/bits"

// stateMask is a word-sized bitmap, bit i set iff thread i is in the state
// the mask represents. §3 requires five of these (NEW, READY, RUNNING,
// SLEEPING, PAUSED), pairwise disjoint at every instant, with RUNNING never
// holding more than one bit. uint64 comfortably covers MaxThreads+1 (the
// +1 for the idle thread) for any configuration this kernel supports.
//
// The bit-manipulation idiom here (shift/mask/AndNot, math/bits for scans)
// follows the same "single instruction per operation" shape as a hardware
// scoreboard: see the reservation-station bitmaps in
// _examples/Maemo32-SupraX_Legacy/proto/ooo/ooo.go.
type stateMask uint64

func (m stateMask) test(id int) bool {
	return m&(stateMask(1)<<uint(id)) != 0
}

func (m *stateMask) set(id int) {
	*m |= stateMask(1) << uint(id)
}

func (m *stateMask) clear(id int) {
	*m &^= stateMask(1) << uint(id)
}

func (m stateMask) popcount() int {
	return bits.OnesCount64(uint64(m))
}

// lowest returns the id of the lowest set bit and true, or (0, false) if
// the mask is empty.
func (m stateMask) lowest() (int, bool) {
	if m == 0 {
		return 0, false
	}
	return bits.TrailingZeros64(uint64(m)), true
}

// highest returns the id of the highest set bit and true, or (0, false) if
// the mask is empty. Used only for the scheduler's first-dispatch
// selection (§4.4.1: "highest-id READY thread").
func (m stateMask) highest() (int, bool) {
	if m == 0 {
		return 0, false
	}
	return 63 - bits.LeadingZeros64(uint64(m)), true
}

// nextAfter scans bits at positions start+1, start+2, ... modulo mod and
// returns the first set bit found, implementing the round-robin scan of
// §4.4.2c. mod must be > 0.
func (m stateMask) nextAfter(start, mod int) (int, bool) {
	for i := 1; i <= mod; i++ {
		id := (start + i) % mod
		if m.test(id) {
			return id, true
		}
	}
	return 0, false
}

// masks bundles the five disjoint bitmaps and the operations that move a
// thread between them, so every transition is a single method that keeps
// the disjointness invariant (§3) by construction: a thread only ever
// leaves one mask by entering another.
type masks struct {
	new     stateMask
	ready   stateMask
	running stateMask
	sleep   stateMask
	paused  stateMask
}

func (ms *masks) move(id int, from, to *stateMask) {
	from.clear(id)
	to.set(id)
}
