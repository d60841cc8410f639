package kernel

import "github.com/neofytr/neoRTOS/irq"

// OnTick is the timer handler of §4.6, invoked once per tick period by
// whatever plays the role of the timer source (see cmd/simhost for a real
// wall-clock driver).
func (k *Kernel) OnTick() {
	defer irq.Enter()()

	k.tick.onTickLocked()

	if !k.started {
		return
	}
	if k.isFirstTime {
		k.switchPending = true
		return
	}

	k.wakeSleepersLocked()

	if k.tick.nowLocked()-k.lastSliceStart >= k.cfg.TimeSliceTicks {
		k.switchPending = true
	}
}

// wakeSleepersLocked decrements every SLEEPING thread's remaining tick
// count and promotes it to READY once the count reaches zero.
func (k *Kernel) wakeSleepersLocked() {
	sleeping := k.m.sleep
	for id := 0; id < k.cfg.MaxThreads; id++ {
		if !sleeping.test(id) {
			continue
		}
		k.sleepTicks[id]--
		if k.sleepTicks[id] == 0 {
			k.m.sleep.clear(id)
			k.m.ready.set(id)
		}
	}
}
