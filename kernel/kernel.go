package kernel

import (
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/neofytr/neoRTOS/irq"
)

// minFrameWords approximates §4.3's frame_size precondition: a thread's
// stack must be able to hold the synthesized exception-return frame plus
// the callee-saved registers it is about to push on its first real
// preemption. 16 words covers the PSR/PC/LR/R12/R3/R2/R1/R0 frame plus the
// eight callee-saved registers with no slack; it is a floor, well below the
// original firmware's `STACK_SIZE (40)` words of headroom for a worst-case
// nested call.
const minFrameWords = 16

// Kernel is the thread kernel of §2-§6: tick counter, state masks, thread
// queue, scheduler, and context switcher bundled into one constructible
// value instead of the package-level globals a singleton-only design would
// use, so tests can run several independent kernels without cross-test
// interference (§9 only rules out *injecting* the kernel's state into
// unrelated code, not out of giving it a constructor).
type Kernel struct {
	cfg Config
	log *log.Logger

	tick tick
	m    masks

	queue      *threadQueue
	sleepTicks []uint32

	threadCount int
	idleID      ThreadID
	idleTicks   uint64

	isFirstTime      bool
	started          bool
	switchPending    bool
	lastRunningIndex ThreadID
	lastSliceStart   uint32
}

// New configures the tick source, initializes the idle thread, and returns
// a Kernel with every state mask cleared except idle's READY bit — the
// postconditions §6's kernel_init entry documents. The idle thread's
// goroutine starts immediately: on real hardware it is whatever the reset
// handler falls into after starting the configured threads, so it is the
// execution context a deferred switch away, and it is the context that
// performs the kernel's bootstrap first dispatch (see doc.go).
func New(cfg Config) *Kernel {
	if cfg.MaxThreads < 1 || cfg.MaxThreads > MaxSupportedThreads {
		Abort(fmt.Sprintf("MaxThreads %d out of range [1, %d]", cfg.MaxThreads, MaxSupportedThreads))
	}

	k := &Kernel{
		cfg:         cfg,
		log:         log.New(os.Stderr, "kernel: ", log.Ltime|log.Lshortfile),
		queue:       newThreadQueue(cfg.MaxThreads + 1),
		sleepTicks:  make([]uint32, cfg.MaxThreads),
		idleID:      ThreadID(cfg.MaxThreads),
		isFirstTime: true,
	}

	idle := &TCB{
		ThreadID: k.idleID,
		owner:    k,
		run:      make(chan struct{}),
	}
	idle.frame = synthesizeFrame(nil, nil)
	idle.StackPtr = uintptr(cfg.IdleStackSize)
	k.queue.set(k.idleID, idle)
	k.m.ready.set(int(k.idleID))

	go k.runIdle(idle)

	return k
}

// SetLogger redirects kernel diagnostics, the way yaofei517-go's log
// package exposes SetOutput on the default Logger instead of hardcoding a
// destination.
func (k *Kernel) SetLogger(l *log.Logger) {
	k.log = l
}

// runIdle is the body of the reserved idle thread: spin at the checkpoint,
// counting how many times idle was the one actually scheduled, and yield
// the host CPU between spins so the simulation doesn't peg a core while
// genuinely idle.
func (k *Kernel) runIdle(idle *TCB) {
	for {
		idle.Checkpoint()
		k.noteIdleTick()
		runtime.Gosched()
	}
}

func (k *Kernel) noteIdleTick() {
	defer irq.Enter()()
	if k.m.running.test(int(k.idleID)) {
		k.idleTicks++
	}
}

// IdleTicks returns the number of times the idle thread has been observed
// running, a diagnostic counter (cheap evidence the scheduler is alive and
// not wedged).
func (k *Kernel) IdleTicks() uint64 {
	defer irq.Enter()()
	return k.idleTicks
}

// Started reports whether thread_start or thread_start_all_new has run at
// least once.
func (k *Kernel) Started() bool {
	defer irq.Enter()()
	return k.started
}

// Now returns the current tick count (§4.1).
func (k *Kernel) Now() uint32 {
	return k.tick.Now()
}

// ThreadInit registers a NEW thread (§4.3, §6). fn must be non-nil,
// stackWords must be at least minFrameWords, and there must be room under
// MaxThreads; on any
// precondition failure it returns (nil, false) without side effects.
func (k *Kernel) ThreadInit(fn ThreadFunc, arg interface{}, stackWords int) (*TCB, bool) {
	if fn == nil || stackWords < minFrameWords {
		return nil, false
	}

	defer irq.Enter()()

	if k.threadCount >= k.cfg.MaxThreads {
		return nil, false
	}

	id := ThreadID(k.threadCount)
	k.threadCount++

	t := &TCB{
		ThreadID: id,
		owner:    k,
		fn:       fn,
		arg:      arg,
		run:      make(chan struct{}),
	}
	t.frame = synthesizeFrame(fn, arg)
	t.StackPtr = uintptr(stackWords * 4)
	k.queue.set(id, t)
	k.m.new.set(int(id))

	go func() {
		t.park()
		t.fn(t.arg)
		k.log.Printf("thread %d returned; parking forever (threads must never return)", t.ThreadID)
		select {}
	}()

	return t, true
}

// ThreadStart promotes a NEW thread to READY (§4.7). It returns false,
// leaving state unchanged, if t was not NEW.
func (k *Kernel) ThreadStart(t *TCB) bool {
	defer irq.Enter()()
	k.started = true
	if !k.m.new.test(int(t.ThreadID)) {
		return false
	}
	k.m.new.clear(int(t.ThreadID))
	k.m.ready.set(int(t.ThreadID))
	return true
}

// ThreadStartAllNew promotes every NEW thread to READY (§4.7).
func (k *Kernel) ThreadStartAllNew() {
	defer irq.Enter()()
	k.started = true
	for id := 0; id < k.cfg.MaxThreads; id++ {
		if k.m.new.test(id) {
			k.m.new.clear(id)
			k.m.ready.set(id)
		}
	}
}

// ThreadResume moves a PAUSED thread to READY (§4.7). It returns false,
// leaving state unchanged, if t was not PAUSED.
func (k *Kernel) ThreadResume(t *TCB) bool {
	defer irq.Enter()()
	if !k.m.paused.test(int(t.ThreadID)) {
		return false
	}
	k.m.paused.clear(int(t.ThreadID))
	k.m.ready.set(int(t.ThreadID))
	return true
}
