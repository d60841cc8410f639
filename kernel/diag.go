package kernel

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/neofytr/neoRTOS/irq"
)

// ThreadState is the observable state of one thread, for diagnostics only
// — it is never how the kernel itself represents state (that is always the
// five masks in mask.go).
type ThreadState int

const (
	StateNew ThreadState = iota
	StateReady
	StateRunning
	StateSleeping
	StatePaused
)

func (s ThreadState) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateReady:
		return "READY"
	case StateRunning:
		return "RUNNING"
	case StateSleeping:
		return "SLEEPING"
	case StatePaused:
		return "PAUSED"
	default:
		return "UNKNOWN"
	}
}

// Snapshot is a point-in-time read of kernel state, for host-side tooling
// (cmd/simhost, cmd/kerneldash) and for the property tests in §8.
type Snapshot struct {
	Tick      uint32
	IdleTicks uint64
	Threads   map[ThreadID]ThreadState
}

// Snapshot takes a consistent read of every thread's state and the current
// tick, all under one critical section.
func (k *Kernel) Snapshot() Snapshot {
	defer irq.Enter()()

	s := Snapshot{
		Tick:      k.tick.nowLocked(),
		IdleTicks: k.idleTicks,
		Threads:   make(map[ThreadID]ThreadState, k.threadCount+1),
	}
	for id := 0; id <= k.cfg.MaxThreads; id++ {
		if k.queue.slots[id] == nil {
			continue
		}
		s.Threads[ThreadID(id)] = threadStateLocked(&k.m, id)
	}
	return s
}

func threadStateLocked(m *masks, id int) ThreadState {
	switch {
	case m.running.test(id):
		return StateRunning
	case m.ready.test(id):
		return StateReady
	case m.sleep.test(id):
		return StateSleeping
	case m.paused.test(id):
		return StatePaused
	default:
		return StateNew
	}
}

// Format renders the snapshot with locale-aware thousands separators via
// golang.org/x/text/message, the role x/text plays in any Go monitoring
// CLI — large tick counts and idle counts are otherwise unreadable as a
// flat decimal run.
func (s Snapshot) Format() string {
	p := message.NewPrinter(language.English)
	var b strings.Builder
	p.Fprintf(&b, "tick=%d idle_ticks=%d\n", s.Tick, s.IdleTicks)

	ids := make([]int, 0, len(s.Threads))
	for id := range s.Threads {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)
	for _, id := range ids {
		fmt.Fprintf(&b, "  thread %d: %s\n", id, s.Threads[ThreadID(id)])
	}
	return b.String()
}
