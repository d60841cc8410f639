package kernel

import "github.com/neofytr/neoRTOS/irq"

// tick is the millisecond-domain monotonic counter of §4.1. It wraps after
// about 49 days at a 1ms period; every comparison against it must use
// modular (unsigned) subtraction to stay correct across the wrap, which is
// why Elapsed and ElapsedSince exist instead of callers subtracting
// directly.
type tick struct {
	now uint32
}

// onTickLocked advances the counter by one. Called only from the timer
// handler with the irq section already held; there is no other writer.
func (t *tick) onTickLocked() {
	t.now++
}

func (t *tick) nowLocked() uint32 {
	return t.now
}

// Now returns the current tick value under the global critical section, so
// a concurrent onTick cannot be observed mid-update.
func (t *tick) Now() uint32 {
	defer irq.Enter()()
	return t.nowLocked()
}

// ElapsedSince returns now() - start using modular subtraction, so the
// result is correct even if now() has wrapped since start was recorded.
func (t *tick) ElapsedSince(start uint32) uint32 {
	return t.Now() - start
}

// Elapsed reports whether at least duration tick periods have passed since
// start. It mirrors the original firmware's has_time_passed helper
// (neoRTOS coresys/system_core/system_core.c), which every sample thread
// there calls instead of comparing the raw delta itself.
func (t *tick) Elapsed(start, duration uint32) bool {
	return t.ElapsedSince(start) >= duration
}
