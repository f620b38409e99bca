package kernel

// Context is the handle a ThreadFunc uses to make kernel calls. There is
// no real trap instruction here -- user code is an ordinary goroutine --
// so a method that can give up the CPU stands in for "trap, block on the
// syscall boundary until the trampoline restores this thread's frame": it
// calls straight into the kernel operation and then parks the calling
// goroutine until the scheduler selects this slot again
// (WaitUntilNextPeriod always; MutexLock and MutexUnlock only when the
// call left another thread Running). GetTime, GetPriority and ThreadTime
// return without parking.
type Context struct {
	k   *Kernel
	tid TID
}

// TID returns the thread's own slot.
func (c *Context) TID() TID { return c.tid }

// park blocks until the trampoline wakes this thread, i.e. until it is
// chosen by schedule() and becomes Running again.
func (c *Context) park() {
	for {
		<-c.k.tcbs[c.tid].wake
		// A wake left over from a time this slot was chosen while its
		// goroutine was still running does not count.
		if c.k.Current() == c.tid {
			return
		}
	}
}

// BlockOnTick parks until rescheduled without making any kernel call
// first. It is the idle thread's entire job: "wait for interrupt" has no
// sharper a meaning than "give the CPU back and do nothing until woken."
func (c *Context) BlockOnTick() {
	c.park()
}

// WaitUntilNextPeriod calls syscall 16 and parks.
func (c *Context) WaitUntilNextPeriod() {
	c.k.WaitUntilNextPeriod(c.tid)
	c.park()
}

// MutexLock calls syscall 14, retrying until the lock is actually held.
// Each retry corresponds to the thread's trap instruction being
// re-executed once it becomes Running again -- the lock is retried
// atomically via the same acquisition rule each time -- here that retry is
// this loop rather than hardware re-dispatching the same PC.
func (c *Context) MutexLock(m MutexID) {
	for {
		c.k.MutexLock(c.tid, m)
		if c.k.holds(c.tid, m) {
			return
		}
		if c.k.isDone(c.tid) {
			return
		}
		c.park()
	}
}

// MutexUnlock calls syscall 15 and parks if it caused a switch away.
func (c *Context) MutexUnlock(m MutexID) {
	c.k.MutexUnlock(c.tid, m)
	if c.k.Current() != c.tid {
		c.park()
	}
}

// GetTime calls syscall 17.
func (c *Context) GetTime() uint64 { return c.k.GetTime() }

// GetPriority calls syscall 19.
func (c *Context) GetPriority() int { return c.k.GetPriority(c.tid) }

// ThreadTime calls syscall 20.
func (c *Context) ThreadTime() uint64 { return c.k.ThreadTime(c.tid) }

// holds reports whether t currently holds m, used by MutexLock's retry
// loop to decide whether the last attempt actually succeeded.
func (k *Kernel) holds(t TID, m MutexID) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.validMutex(m) {
		return false
	}
	return k.tcbs[t].heldMutex.has(int(m))
}

// isDone reports whether t has reached the terminal state, used to break
// out of retry loops for a thread the kernel has killed out from under it.
func (k *Kernel) isDone(t TID) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.validTID(t) && k.tcbs[t].state == StateDone
}
