package kernel

// Abort is invoked when the kernel detects an invariant violation it has no
// recoverable path from (§7: "any invariant violation the core detects is
// treated as fatal; the implementer may surface this via an abort hook").
// The default panics; a host may replace it (e.g. to light an error LED and
// spin forever instead of unwinding the Go stack) the same way the
// original firmware's fault handler never returns.
var Abort = func(reason string) {
	panic("kernel: invariant violation: " + reason)
}
