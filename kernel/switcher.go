package kernel

import "github.com/neofytr/neoRTOS/irq"

// maybeScheduleLocked decides, under the global critical section, whether a
// switch is due (a pending deferred switch, or the very first dispatch) and
// if so runs the scheduler. It returns the thread that should be running
// and whether a scheduling decision was actually made.
func (k *Kernel) maybeScheduleLocked(caller ThreadID) (next ThreadID, switched bool) {
	if !k.switchPending {
		return caller, false
	}
	k.switchPending = false
	return k.scheduleLocked(caller), true
}

// checkpoint is §4.5 run from inside the calling thread's own goroutine: if
// the scheduler picks someone other than the caller, the caller hands the
// CPU to them and parks until it is resumed.
func (k *Kernel) checkpoint(t *TCB) {
	next, switched := func() (ThreadID, bool) {
		defer irq.Enter()()
		return k.maybeScheduleLocked(t.ThreadID)
	}()
	if !switched || next == t.ThreadID {
		return
	}
	k.handoff(t, next)
}

// sleep is §4.7's thread_sleep: move the caller straight to SLEEPING, post
// a deferred switch, then run the same scheduler-and-handoff path
// Checkpoint uses.
func (k *Kernel) sleep(t *TCB, ticks uint32) {
	k.requireStarted(t)
	func() {
		defer irq.Enter()()
		k.m.running.clear(int(t.ThreadID))
		k.m.ready.clear(int(t.ThreadID))
		k.m.sleep.set(int(t.ThreadID))
		k.sleepTicks[t.ThreadID] = ticks
		k.switchPending = true
	}()
	next, _ := func() (ThreadID, bool) {
		defer irq.Enter()()
		return k.maybeScheduleLocked(t.ThreadID)
	}()
	if next != t.ThreadID {
		k.handoff(t, next)
	}
}

// pause is §4.7's thread_pause.
func (k *Kernel) pause(t *TCB) {
	k.requireStarted(t)
	func() {
		defer irq.Enter()()
		k.m.running.clear(int(t.ThreadID))
		k.m.ready.clear(int(t.ThreadID))
		k.m.paused.set(int(t.ThreadID))
		k.switchPending = true
	}()
	next, _ := func() (ThreadID, bool) {
		defer irq.Enter()()
		return k.maybeScheduleLocked(t.ThreadID)
	}()
	if next != t.ThreadID {
		k.handoff(t, next)
	}
}

// handoff is §4.5 steps 1-4 translated to goroutine parking: resume the
// incoming thread's goroutine, then block the outgoing one until it is
// resumed again by a future scheduling decision. The outgoing thread's
// TCB.StackPtr is left stale exactly as §3 specifies ("while RUNNING it
// is stale") until the thread is parked here, at which point it again
// denotes a complete, resumable thread.
func (k *Kernel) handoff(outgoing *TCB, incoming ThreadID) {
	k.queue.get(incoming).resume()
	outgoing.park()
}

// requireStarted enforces the supplemented startup guard (SPEC_FULL.md):
// Sleep/Pause assume a "current thread" exists, which is only true once
// the kernel has dispatched at least once.
func (k *Kernel) requireStarted(t *TCB) {
	if !k.Started() {
		Abort("Sleep/Pause called before the kernel has started")
	}
	if t.ThreadID == k.idleID {
		Abort("the idle thread never sleeps or pauses")
	}
}
