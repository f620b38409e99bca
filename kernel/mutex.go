package kernel

// MutexID identifies an allocated mutex. It is immutable once returned by
// MutexInit.
type MutexID int

func (k *Kernel) validMutex(m MutexID) bool {
	return m >= 0 && int(m) < k.maxMutexes && k.mutexes[m].inUse
}

// MutexInit implements syscall 13. It allocates the next free mutex slot
// and records the caller-declared ceiling.
func (k *Kernel) MutexInit(ceiling int) (MutexID, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.mutexes == nil {
		return -1, false
	}
	for i := 0; i < k.maxMutexes; i++ {
		if !k.mutexes[i].inUse {
			k.mutexes[i] = mutexEntry{inUse: true, ceiling: ceiling, owner: -1, index: i}
			k.mutexCount++
			return MutexID(i), true
		}
	}
	k.warn("mutex_init: table full (%d mutexes)", k.maxMutexes)
	return -1, false
}

// mutexEligible implements the IPCP acquisition rule: m must be free, and
// no mutex currently held by some OTHER thread may have a ceiling at or
// stronger than t's current dynamic priority -- such a mutex could let its
// holder interfere with t before t releases m, which is exactly what IPCP
// exists to rule out. The caller must hold k.mu.
func (k *Kernel) mutexEligible(t TID, m MutexID) bool {
	if k.mutexes[m].owner != -1 {
		return false
	}
	dp := k.tcbs[t].dynamicPriority
	for i := 0; i < k.maxMutexes; i++ {
		e := &k.mutexes[i]
		if !e.inUse || e.owner == -1 || e.owner == t {
			continue
		}
		if e.ceiling <= dp {
			return false
		}
	}
	return true
}

// acquireMutex grants m to t unconditionally. The caller must already have
// established eligibility and must hold k.mu.
func (k *Kernel) acquireMutex(t TID, m MutexID) {
	e := &k.mutexes[m]
	tcb := &k.tcbs[t]

	e.owner = t
	tcb.heldMutex.set(int(m))
	tcb.waitingMutex.clear(int(m))
	if e.ceiling < tcb.dynamicPriority {
		tcb.dynamicPriority = e.ceiling
	}
	if tcb.state == StateBlocked {
		tcb.state = StateReady
	}
}

// recomputeDynamicPriority derives a thread's dynamic priority from
// scratch: the strongest (numerically smallest) of its static priority and
// every ceiling it still holds. The caller must hold k.mu.
func (k *Kernel) recomputeDynamicPriority(t TID) int {
	tcb := &k.tcbs[t]
	dp := tcb.staticPriority
	for i := 0; i < k.maxMutexes; i++ {
		if tcb.heldMutex.has(i) {
			if c := k.mutexes[i].ceiling; c < dp {
				dp = c
			}
		}
	}
	return dp
}

// MutexLock implements syscall 14 for thread t.
func (k *Kernel) MutexLock(t TID, m MutexID) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if !k.validMutex(m) {
		k.warn("thread %d: mutex_lock: invalid handle %d", t, m)
		return
	}
	tcb := &k.tcbs[t]
	e := &k.mutexes[m]

	if tcb.staticPriority < e.ceiling {
		// A ceiling stronger than the caller's own static priority breaks
		// the blocking bound IPCP relies on. Warn, then kill the caller.
		k.warn("thread %d: mutex_lock(%d) exceeds declared ceiling %d, killing", t, m, e.ceiling)
		tcb.state = StateDone
		k.requestSwitch()
		return
	}
	if tcb.heldMutex.has(int(m)) {
		k.warn("thread %d: double lock of mutex %d", t, m)
		return
	}
	if k.mutexEligible(t, m) {
		k.acquireMutex(t, m)
		return
	}

	tcb.state = StateBlocked
	tcb.waitingMutex.set(int(m))
	k.requestSwitch()
}

// MutexUnlock implements syscall 15 for thread t. It only clears the
// waiting bit for every thread blocked on m; it never grants m itself. The
// unblock pass in schedule() promotes those threads from Blocked to Ready
// once their waiting bit is empty, and the selection pass that follows
// picks among Ready threads by dynamic priority, so the highest-priority
// waiter is naturally the first to retry the lock. Acquiring here instead
// would set the held bit before that waiter's own call to MutexLock runs
// again, which sees the bit already set and logs a spurious double-lock
// warning.
func (k *Kernel) MutexUnlock(t TID, m MutexID) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if !k.validMutex(m) {
		k.warn("thread %d: mutex_unlock: invalid handle %d", t, m)
		return
	}
	tcb := &k.tcbs[t]
	e := &k.mutexes[m]

	if e.owner != t || !tcb.heldMutex.has(int(m)) {
		k.warn("thread %d: double unlock or unlock of mutex %d it does not own", t, m)
		return
	}

	e.owner = -1
	tcb.heldMutex.clear(int(m))
	tcb.dynamicPriority = k.recomputeDynamicPriority(t)

	for i := range k.tcbs {
		if TID(i) == t {
			continue
		}
		w := &k.tcbs[i]
		if w.state == StateBlocked && w.waitingMutex.has(int(m)) {
			w.waitingMutex.clear(int(m))
		}
	}

	k.requestSwitch()
}
