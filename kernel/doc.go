// Package kernel implements a small preemptive real-time kernel for a
// single ARM Cortex-M-class core: fixed-priority Rate-Monotonic Scheduling
// with a Liu-Layland admission test, the Immediate Priority Ceiling
// Protocol for mutexes, and a supervisor-call boundary separating
// privileged kernel operations from unprivileged user threads.
//
// The kernel itself never touches a peripheral. Everything it needs from
// the outside world, a tick stream, a diagnostics sink, arrives through
// the small interfaces in the sibling hal package.
package kernel
