package kernel

// ThreadFunc is the entry point for a thread body: a plain function taking
// an opaque argument, dispatched through a function pointer on real
// hardware. No vtable, no interface — §9 is explicit that dynamic dispatch
// here is just a function pointer.
type ThreadFunc func(arg interface{})

// ThreadID identifies a registered thread. The idle thread's id is always
// MaxThreads.
type ThreadID int

// TCB is the thread control block of §3. StackPtr is kept as the first
// field, mirroring the real layout requirement ("must be the first field
// so the context switcher can load it by address of the TCB") even though
// this implementation locates a TCB by Go pointer rather than raw address
// arithmetic; it is set once by ThreadInit (or New, for the idle thread)
// and otherwise left alone.
type TCB struct {
	StackPtr uintptr
	ThreadID ThreadID

	owner *Kernel
	frame Frame
	run   chan struct{} // rendezvous: sent to when the scheduler resumes this thread

	fn  ThreadFunc
	arg interface{}
}

// Checkpoint is the safe point a thread body calls at its natural
// loop-back edges — the hosted-simulation stand-in for "the next
// instruction after a deferred-switch interrupt returns" (see
// kernel/doc.go). If the timer handler has posted a pending switch because
// this thread's slice expired, Checkpoint runs the scheduler, hands the
// CPU to whichever thread it selects, and blocks until this thread is
// chosen again. If nothing is pending it returns immediately.
func (t *TCB) Checkpoint() {
	t.owner.checkpoint(t)
}

// Sleep removes the calling thread from RUNNING, places it in SLEEPING
// until ticks further timer ticks have been delivered, posts a deferred
// switch, and blocks until the scheduler resumes it (§4.7). It must be called by the thread's own
// goroutine — the one started for the TCB returned by (*Kernel).ThreadInit.
func (t *TCB) Sleep(ticks uint32) {
	t.owner.sleep(t, ticks)
}

// Pause removes the calling thread from RUNNING and READY, places it in
// PAUSED, posts a deferred switch, and blocks until another thread calls
// (*Kernel).ThreadResume on it and the scheduler picks it back up (§4.7). Like Sleep, it
// must be called by the thread's own goroutine.
func (t *TCB) Pause() {
	t.owner.pause(t)
}

// threadQueue is the fixed-size array of pointers to TCBs indexed by
// thread id (§3's "thread queue"), used to locate a TCB from a bare id.
type threadQueue struct {
	slots []*TCB
}

func newThreadQueue(capacity int) *threadQueue {
	return &threadQueue{slots: make([]*TCB, capacity)}
}

func (q *threadQueue) set(id ThreadID, t *TCB) {
	q.slots[id] = t
}

func (q *threadQueue) get(id ThreadID) *TCB {
	return q.slots[id]
}

func (t *TCB) resume() {
	t.run <- struct{}{}
}

func (t *TCB) park() {
	<-t.run
}
