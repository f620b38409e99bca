package kernel

import "fmt"

// threadTerminatorAddr and thumbBit are the sentinel values ThreadCreate
// fabricates into a new slot's saved frame: a return address that "calls
// thread_kill" and a status word with only the Thumb bit set. Neither
// corresponds to a real code address in this host model; they exist so the
// savedFrame has concrete values to hold.
const (
	threadTerminatorAddr = 0xFFFFFFFF
	thumbBit             = 1 << 24
)

// ThreadCreate implements syscall 10. The slot is the thread's static
// priority: the TCB table is priority-indexed, not free-running.
func (k *Kernel) ThreadCreate(prio int, c, t uint32, fn ThreadFunc, arg any) (TID, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.tcbs == nil {
		return -1, false
	}
	if prio < 0 || prio >= k.cfg.MaxThreads {
		k.warn("thread_create: priority %d out of range [0,%d)", prio, k.cfg.MaxThreads)
		return -1, false
	}
	// Guards the utilization sum against a divide-by-zero.
	if c == 0 || t == 0 {
		k.warn("thread_create: C and T must be nonzero")
		return -1, false
	}

	tid := TID(prio)
	tcb := &k.tcbs[tid]
	switch tcb.state {
	case StateReady, StateRunning, StateWaiting, StateBlocked:
		k.warn("thread_create: slot %d already active", prio)
		return -1, false
	}

	if !k.admit(c, t) {
		k.warn("thread_create: UB test rejects C=%d T=%d at priority %d", c, t, prio)
		return -1, false
	}

	tcb.staticPriority = prio
	tcb.dynamicPriority = prio
	tcb.computation = c
	tcb.period = t
	tcb.cRemaining = c
	tcb.releaseTime = k.tick
	tcb.elapsed = 0
	tcb.heldMutex = 0
	tcb.waitingMutex = 0
	tcb.fn = fn
	tcb.arg = arg
	tcb.frame = &savedFrame{
		pc:         uint32(prio),
		userSP:     uint32(len(tcb.userStack)),
		returnAddr: threadTerminatorAddr,
		statusWord: thumbBit,
	}
	tcb.state = StateReady

	if fn != nil {
		k.spawnGoroutine(tid)
	}
	return tid, true
}

// spawnGoroutine starts the goroutine standing in for tid's user-space
// execution. It parks immediately and only runs fn once the trampoline
// first wakes this slot. When fn returns, the thread terminates the way
// its fabricated return address promised: by calling thread_kill.
func (k *Kernel) spawnGoroutine(tid TID) {
	tcb := &k.tcbs[tid]
	fn, arg := tcb.fn, tcb.arg
	ctx := &Context{k: k, tid: tid}
	go func() {
		ctx.park()
		fn(ctx, arg)
		k.ThreadKill(tid)
	}()
}

// ThreadKill implements syscall 11.
func (k *Kernel) ThreadKill(t TID) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if !k.validTID(t) {
		return
	}
	switch t {
	case k.defaultTID():
		k.halt("thread_kill called from default slot")
		return
	case k.idleTID():
		k.tcbs[t].fn = defaultIdleFn
		return
	}

	k.tcbs[t].state = StateDone
	k.requestSwitch()
}

// WaitUntilNextPeriod implements syscall 16.
func (k *Kernel) WaitUntilNextPeriod(t TID) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if t == k.idleTID() {
		k.warn("wait_until_next_period called from idle, ignoring")
		return
	}
	k.tcbs[t].state = StateWaiting
	k.requestSwitch()
}

// GetTime implements syscall 17.
func (k *Kernel) GetTime() uint64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.tick
}

// GetPriority implements syscall 19.
func (k *Kernel) GetPriority(t TID) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.validTID(t) {
		return -1
	}
	return k.tcbs[t].dynamicPriority
}

// ThreadTime implements syscall 20.
func (k *Kernel) ThreadTime(t TID) uint64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.validTID(t) {
		return 0
	}
	return k.tcbs[t].elapsed
}

// SchedulerStart implements syscall 12. It must be called
// exactly once, after ThreadInit and every initial ThreadCreate. src may be
// nil, in which case nothing ever calls Tick automatically -- deterministic
// tests drive Tick themselves instead of wiring a real TickSource.
func (k *Kernel) SchedulerStart(freq int, src TickSource) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.tcbs == nil {
		return fmt.Errorf("kernel: thread_init not called")
	}
	if k.started {
		return fmt.Errorf("kernel: scheduler_start already called")
	}
	if freq <= 0 {
		return fmt.Errorf("kernel: invalid frequency %d", freq)
	}

	k.started = true
	k.requestSwitch()

	if src != nil {
		k.systick = newSystick(k, freq, src)
		go k.systick.run()
	}
	return nil
}
