package kernel

// MaxSupportedThreads is the hard ceiling on Config.MaxThreads. State masks
// are single 64-bit words (stateMask), and the idle thread's id is
// MaxThreads itself, so MaxThreads and idle together need MaxThreads+1
// distinct bit positions out of 64 — the real ceiling is 63, not 64: at 64,
// the first-dispatch scan's 1<<MaxThreads shift (highestReadyNonIdleLocked)
// wraps to 0 under Go's unsigned-shift semantics instead of overflowing
// into a 65th bit.
const MaxSupportedThreads = 63

// Config holds the compile-time tunables §6 lists as configuration
// constants. Unlike the firmware original, where these are preprocessor
// defines, Config is an explicit value passed to New so tests can run many
// independently configured kernels side by side.
type Config struct {
	// MaxThreads bounds the number of user threads (the idle thread is
	// not counted against it). Must be in [1, MaxSupportedThreads]; New
	// calls Abort if it isn't. The round-robin scan (sched.go) uses explicit
	// modulo arithmetic, not a bitmask, so MaxThreads need not be a power
	// of two (§9).
	MaxThreads int

	// TimeSliceTicks is the number of tick periods a thread may run
	// before the timer handler posts a deferred switch.
	TimeSliceTicks uint32

	// TimerPeriodMS is the nominal period, in milliseconds, of one tick.
	// It does not affect scheduling decisions (those are tick-counted),
	// only how a host driving real wall-clock time should space ticks.
	TimerPeriodMS uint32

	// IdleStackSize is the size, in bytes, of the reserved idle thread's
	// stack.
	IdleStackSize int
}

// DefaultConfig returns the reference configuration used by the test
// scenarios in §8.
func DefaultConfig() Config {
	return Config{
		MaxThreads:     8,
		TimeSliceTicks: 10,
		TimerPeriodMS:  1,
		IdleStackSize:  256,
	}
}
