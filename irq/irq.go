// Package irq models the single global-interrupt-disable/enable primitive
// §4 of the kernel spec treats as an external collaborator: real Cortex-M
// silicon has exactly one CPSID/CPSIE pair, so every component that needs
// a critical section — the scheduler's state masks, the tick counter, the
// heap allocator — is really contending for the same hardware resource,
// not independent locks. Hosted on a Go runtime, a single package-level
// mutex plays that role.
//
// Sections must not nest: Enter while already inside a section started by
// the same logical caller deadlocks, exactly as double-disabling and
// single-enabling would leave interrupts masked forever on real hardware.
// Callers that need to call back into already-locked internals use the
// "Locked" naming convention (see kernel and heap) instead of calling
// Enter a second time.
package irq

import "sync"

var mu sync.Mutex

// Enter disables interrupts and returns the function that re-enables them.
// Conventional use:
//
//	defer irq.Enter()()
func Enter() func() {
	mu.Lock()
	return mu.Unlock
}
