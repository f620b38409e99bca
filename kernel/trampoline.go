package kernel

// Trampoline is the context-switch exception handler. On real hardware it
// runs at the lowest exception priority so every IRQ can preempt a thread
// but never the switch itself; here that ordering guarantee becomes "runs
// synchronously at the end of whichever kernel operation requested it,
// with k.mu held the whole time", so no goroutine can observe kernel state
// mid-switch either way.
type Trampoline struct {
	k *Kernel
}

func newTrampoline(k *Kernel) *Trampoline {
	return &Trampoline{k: k}
}

// requestSwitch saves the outgoing thread, runs the scheduler, and wakes
// whichever thread it selects. The caller must hold k.mu and must have
// finished mutating TCB state for the current operation already: tick
// accounting runs to completion before requesting the switch.
func (k *Kernel) requestSwitch() {
	prev := k.current
	prevTCB := &k.tcbs[prev]

	// 1+2: save the outgoing thread's frame. There is no real register
	// file to save; the goroutine that "is" this thread keeps its own Go
	// stack, so only the saved user stack pointer is recorded. The
	// privilege bit already lives in the TCB (inKernelCall) and is not
	// copied anywhere.
	if prevTCB.frame == nil {
		prevTCB.frame = &savedFrame{}
	}
	prevTCB.frame.userSP = uint32(len(prevTCB.userStack))

	next := k.schedule()
	nextTCB := &k.tcbs[next]

	// 4: the chosen thread's privilege bit is read back from its TCB; the
	// host model has no processor privilege mode to load it into.
	_ = nextTCB.inKernelCall

	k.wake(next)
}

// wake lets the goroutine for `next`, if any, proceed. Threads
// created with a nil ThreadFunc have no goroutine and nothing to wake;
// this is a no-op for the deterministic, goroutine-free kernel tests.
func (k *Kernel) wake(next TID) {
	t := &k.tcbs[next]
	if t.wake == nil {
		return
	}
	select {
	case t.wake <- struct{}{}:
	default:
	}
}
