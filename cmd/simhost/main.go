// Command simhost is a host-side driver for package kernel: it pins itself
// to one CPU (the way the kernel's single-core assumption demands), drives
// the tick timer on a real wall-clock ticker, registers the "two blinkers"
// demo from the kernel's end-to-end scenarios, and prints periodic
// diagnostics until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"time"

	"golang.org/x/sys/unix"

	"github.com/neofytr/neoRTOS/heap"
	"github.com/neofytr/neoRTOS/kernel"
)

func main() {
	var (
		ticks       = flag.Uint("ticks", 1000, "number of timer ticks to run before exiting")
		periodMS    = flag.Uint("period-ms", 1, "nominal milliseconds per tick")
		sleepTicks  = flag.Uint("sleep-ticks", 5, "tick periods each blinker thread sleeps between toggles")
		affinityCPU = flag.Int("cpu", 0, "CPU index to pin this process to; -1 disables pinning")
		printEvery  = flag.Uint("print-every", 100, "print a diagnostics snapshot every N ticks")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "simhost: ", log.Ltime|log.Lshortfile)

	if *affinityCPU >= 0 {
		if err := pinToCPU(*affinityCPU); err != nil {
			logger.Printf("could not pin to CPU %d, continuing unpinned: %v", *affinityCPU, err)
		}
	}

	cfg := kernel.DefaultConfig()
	cfg.TimerPeriodMS = uint32(*periodMS)
	k := kernel.New(cfg)
	k.SetLogger(logger)

	h := heap.New(heap.DefaultConfig())

	toggles := [2]uint64{}
	var tcbs [2]*kernel.TCB
	for i := range toggles {
		i := i
		t, ok := k.ThreadInit(func(arg interface{}) {
			for {
				toggles[i]++
				recordAllocChurn(h)
				tcbs[i].Sleep(uint32(*sleepTicks))
			}
		}, nil, 64)
		if !ok {
			logger.Fatalf("ThreadInit for blinker %d failed", i)
		}
		tcbs[i] = t
	}
	k.ThreadStartAllNew()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	period := time.Duration(*periodMS) * time.Millisecond
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	var n uint
	for n < *ticks {
		select {
		case <-ctx.Done():
			fmt.Println("interrupted")
			return
		case <-ticker.C:
			k.OnTick()
			n++
			if *printEvery > 0 && n%*printEvery == 0 {
				fmt.Print(k.Snapshot().Format())
			}
		}
	}

	fmt.Printf("ran %d ticks; toggles=%v idle_ticks=%d failed_allocs=%d\n", n, toggles, k.IdleTicks(), h.FailedAllocs())
}

// recordAllocChurn exercises the heap allocator from a running thread the
// way the original firmware's blink demo would exercise a scratch buffer,
// so simhost's diagnostics reflect both subsystems under load.
func recordAllocChurn(h *heap.Heap) {
	p, ok := h.Alloc(16)
	if !ok {
		return
	}
	h.Free(p)
}

// pinToCPU sets this OS thread's CPU affinity to a single core, mirroring
// the kernel's single-hardware-core assumption: without pinning, Go's
// scheduler is free to migrate this goroutine across cores mid-run, which
// would make tick delivery jitter in ways the real target never would.
func pinToCPU(cpu int) error {
	runtime.LockOSThread()
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	return unix.SchedSetaffinity(0, &set)
}
