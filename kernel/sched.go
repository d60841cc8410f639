package kernel

// scheduleLocked implements §4.4: it is called with the irq section already
// held, from a thread's own Checkpoint/Sleep/Pause discovering a posted
// switch (via maybeScheduleLocked); the timer handler only posts it. It
// returns the id of the thread that should run next; the caller is
// responsible for the actual handoff (see switcher.go).
func (k *Kernel) scheduleLocked(caller ThreadID) ThreadID {
	if k.isFirstTime {
		return k.firstDispatchLocked()
	}
	return k.normalDispatchLocked(caller)
}

// firstDispatchLocked is §4.4.1: pick the highest-id READY non-idle thread,
// falling back to idle, and make it the sole RUNNING thread.
func (k *Kernel) firstDispatchLocked() ThreadID {
	id, ok := k.highestReadyNonIdleLocked()
	if !ok {
		id = k.idleID
	}
	k.m.running.set(int(id))
	k.m.ready.clear(int(id))
	k.lastRunningIndex = id
	k.lastSliceStart = k.tick.nowLocked()
	k.isFirstTime = false
	return id
}

// normalDispatchLocked is §4.4.2: demote the outgoing thread (if it is
// still marked RUNNING — a blocking call may have already moved it
// elsewhere), then pick the next READY thread by round-robin starting
// after last_running_index, falling back to idle if no user thread is
// READY.
func (k *Kernel) normalDispatchLocked(current ThreadID) ThreadID {
	k.lastRunningIndex = current
	if k.m.running.test(int(current)) {
		k.m.running.clear(int(current))
		k.m.ready.set(int(current))
	}

	next, ok := k.m.ready.nextAfter(int(k.lastRunningIndex), k.cfg.MaxThreads)
	id := k.idleID
	if ok {
		id = ThreadID(next)
	}

	k.m.running.set(int(id))
	k.m.ready.clear(int(id))
	k.lastSliceStart = k.tick.nowLocked()
	return id
}

// highestReadyNonIdleLocked restricts the READY mask to user thread ids
// (below MaxThreads) and returns the highest set bit, for the first-dispatch
// tie-break of §4.4.1.
func (k *Kernel) highestReadyNonIdleLocked() (ThreadID, bool) {
	userBits := stateMask(uint64(1)<<uint(k.cfg.MaxThreads) - 1)
	id, ok := (k.m.ready & userBits).highest()
	return ThreadID(id), ok
}
