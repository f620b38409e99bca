package kernel

// schedule runs the RMS+IPCP selection pass. It must be called with k.mu
// held and only from the context-switch trampoline. It mutates TCB states
// (unblocking eligible threads, demoting the running thread back to Ready)
// and returns the TID that should become Running.
func (k *Kernel) schedule() TID {
	// 1. Unblock pass: a Blocked thread whose waiting_mutex_bitmap has
	// gone empty (its lock attempt can now be retried) becomes Ready.
	for i := range k.tcbs {
		t := &k.tcbs[i]
		if t.state == StateBlocked && t.waitingMutex.empty() {
			t.state = StateReady
		}
	}

	// 2. Ready-down pass: demote whatever was Running (normally just
	// k.current, but walk the table defensively rather than assume it).
	for i := range k.tcbs {
		t := &k.tcbs[i]
		if t.state == StateRunning {
			t.state = StateReady
		}
	}

	// 3. Selection: among Ready threads with no pending mutex wait,
	// smallest dynamic priority wins; ties broken by smallest index,
	// which the loop order gives for free since dynamic priorities are
	// derived from a unique static priority.
	best := TID(-1)
	bestPrio := 0
	for i := range k.tcbs {
		t := &k.tcbs[i]
		if t.state != StateReady || !t.waitingMutex.empty() {
			continue
		}
		if best < 0 || t.dynamicPriority < bestPrio {
			best = TID(i)
			bestPrio = t.dynamicPriority
		}
	}

	if best < 0 {
		// 4. Fallback.
		best = k.fallback()
	}

	k.tcbs[best].state = StateRunning
	k.current = best
	return best
}

// fallback only runs if the selection loop found no Ready, unwaited-on
// thread. Since the idle slot is always Ready and never waits on a mutex,
// it always wins the selection loop itself; the default-slot branch below
// is unreachable in practice and only documents the "every thread is
// waiting or blocked" case that a scheduler without a permanent idle
// thread would need to fall back to.
func (k *Kernel) fallback() TID {
	for i := range k.tcbs {
		s := k.tcbs[i].state
		if s == StateWaiting || s == StateBlocked {
			return k.idleTID()
		}
	}
	return k.defaultTID()
}
