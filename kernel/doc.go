// Package kernel implements a minimal preemptive round-robin thread kernel
// modeled on a single-core 32-bit Cortex-M-class exception model: a
// millisecond tick timebase, fixed time-slice scheduling, and thread
// lifecycle states NEW, READY, RUNNING, SLEEPING, PAUSED.
//
// Real hardware drives this kind of kernel through two interrupts: a timer
// ISR that advances the tick and posts a deferred, lowest-priority
// "context switch now" interrupt, and the deferred-switch ISR itself, which
// saves the outgoing thread's callee-saved registers and pops the
// incoming thread's synthesized exception-return frame. Go cannot suspend
// a goroutine mid-instruction and splice in another one's register file, so
// this package keeps the register-level bookkeeping the spec describes
// (see Frame in frame.go) as literal, inspectable data — every thread
// created through ThreadInit still has a stack pointer and a synthesized
// frame with a real entry-point PC and first-argument R0 exactly as §4.3
// lays out (the reserved idle thread is the one exception: it has no
// ThreadFunc of its own, so its frame's PC and R0 are left zero) — but the
// actual handoff between threads is a goroutine parked on a
// channel, released by the scheduler instead of by a popped PSR/PC. Thread
// bodies cooperate by calling (*Kernel).Checkpoint at their natural
// loop-back edges, the same place real code would hit the next instruction
// after an interrupt return; the kernel decides there whether the caller's
// slice has expired, it was asked to sleep, or it paused itself, and parks
// the goroutine until the scheduler says otherwise. Every other invariant —
// the five disjoint state masks, round-robin selection, tick-driven slice
// expiry, deferred-switch semantics — is implemented exactly as specified.
package kernel
