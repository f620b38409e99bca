package kernel

import "testing"

type testLog struct {
	lines []string
}

func (l *testLog) WriteLineString(s string) { l.lines = append(l.lines, s) }

func newTestKernel(t *testing.T, maxThreads, maxMutexes int) (*Kernel, *testLog) {
	t.Helper()
	k := NewKernel()
	log := &testLog{}
	if err := k.ThreadInit(Config{MaxThreads: maxThreads, StackWords: 256, MaxMutexes: maxMutexes, Log: log}); err != nil {
		t.Fatalf("ThreadInit: %v", err)
	}
	return k, log
}

func mustCreate(t *testing.T, k *Kernel, prio int, c, period uint32) TID {
	t.Helper()
	tid, ok := k.ThreadCreate(prio, c, period, nil, nil)
	if !ok {
		t.Fatalf("ThreadCreate(prio=%d, C=%d, T=%d) rejected", prio, c, period)
	}
	return tid
}

func start(t *testing.T, k *Kernel) {
	t.Helper()
	if err := k.SchedulerStart(100, nil); err != nil {
		t.Fatalf("SchedulerStart: %v", err)
	}
}

// A new thread is admitted up to, and only up to, the Liu-Layland bound for
// n active threads.
func TestAdmissionBinarySearch(t *testing.T) {
	k, _ := newTestKernel(t, 2, 0)
	mustCreate(t, k, 0, 1, 2) // u = 0.5

	largestAdmissibleC := func(period uint32) uint32 {
		lo, hi := uint32(0), period
		for lo < hi {
			mid := (lo + hi + 1) / 2
			if k.admit(mid, period) {
				lo = mid
			} else {
				hi = mid - 1
			}
		}
		return lo
	}

	// UBBound(2) = 2*(sqrt(2)-1) ~= 0.8284; with 0.5 already committed, the
	// largest admissible utilization for a period-10 candidate is C=3
	// (0.5+0.30=0.80 <= 0.8284, 0.5+0.40=0.90 > 0.8284).
	if got := largestAdmissibleC(10); got != 3 {
		t.Fatalf("largest admissible C at T=10 = %d, want 3", got)
	}
	if _, ok := k.ThreadCreate(1, 3, 10, nil, nil); !ok {
		t.Fatalf("ThreadCreate(1, 3, 10) rejected, want admitted")
	}
}

func TestUBBoundBoundary(t *testing.T) {
	if got := UBBound(1); got != 1 {
		t.Fatalf("UBBound(1) = %v, want 1", got)
	}
	k, _ := newTestKernel(t, 14, 0)
	for i := 0; i < 14; i++ {
		if _, ok := k.ThreadCreate(i, 1, 1_000_000, nil, nil); !ok {
			t.Fatalf("ThreadCreate(%d) rejected, want admitted (negligible utilization)", i)
		}
	}

	k2 := NewKernel()
	if err := k2.ThreadInit(Config{MaxThreads: 15, StackWords: 256}); err == nil {
		t.Fatalf("ThreadInit(max_threads=15) succeeded, want rejected")
	}
}

// Scenario 2: RMS preemption with no mutex contention. A (period 100, C=20)
// always preempts B (period 1000, C=150) on release, so over 1000 ticks A
// completes exactly 10 jobs worth of work and B completes exactly one job
// (released at tick 0) before going idle for the rest of its long period.
func TestRMSPreemption(t *testing.T) {
	k, _ := newTestKernel(t, 2, 0)
	a := mustCreate(t, k, 0, 20, 100)
	b := mustCreate(t, k, 1, 150, 1000)
	start(t, k)

	for i := 0; i < 1000; i++ {
		k.Tick()
	}

	infoA, _ := k.Snapshot(a)
	infoB, _ := k.Snapshot(b)
	if infoA.Elapsed != 200 {
		t.Fatalf("A.Elapsed = %d, want 200 (10 jobs * 20 ticks)", infoA.Elapsed)
	}
	if infoB.Elapsed != 150 {
		t.Fatalf("B.Elapsed = %d, want 150 (one job's worth of budget, consumed around A's preemptions)", infoB.Elapsed)
	}
}

// Scenario 3: IPCP bounded priority inversion. tLow locks a mutex whose
// ceiling (0) sits above tMed's priority (1), so while tLow holds it, tMed
// cannot preempt even when its own period releases mid-hold. Releasing the
// mutex restores tLow's native priority and tMed preempts immediately.
func TestIPCPBoundedInversion(t *testing.T) {
	k, _ := newTestKernel(t, 3, 1)
	m, ok := k.MutexInit(0)
	if !ok {
		t.Fatalf("MutexInit(0) failed")
	}

	tMed := mustCreate(t, k, 1, 50, 1000)   // u = 0.05
	tLow := mustCreate(t, k, 2, 1500, 2000) // u = 0.75
	start(t, k)

	if k.Current() != tMed {
		t.Fatalf("initial current = %d, want tMed (%d)", k.Current(), tMed)
	}

	for i := 0; i < 50; i++ {
		k.Tick()
	}
	if k.Current() != tLow {
		t.Fatalf("tick 50: current = %d, want tLow (%d) once tMed's budget is exhausted", k.Current(), tLow)
	}

	k.MutexLock(tLow, m)

	for i := 0; i < 950; i++ { // ticks 51..1000
		k.Tick()
	}
	if k.Current() != tLow {
		t.Fatalf("tick 1000: current = %d, want tLow (%d): its ceiling-boosted priority must block tMed's release from preempting", k.Current(), tLow)
	}

	k.MutexUnlock(tLow, m)
	if k.Current() != tMed {
		t.Fatalf("after unlock: current = %d, want tMed (%d) to preempt immediately", k.Current(), tMed)
	}
}

// Scenario 4: a lock attempt that exceeds the caller's declared ceiling
// kills the caller outright instead of blocking it.
func TestMutexCeilingViolationKillsCaller(t *testing.T) {
	k, log := newTestKernel(t, 2, 1)
	m, ok := k.MutexInit(1)
	if !ok {
		t.Fatalf("MutexInit(1) failed")
	}
	t0 := mustCreate(t, k, 0, 50, 200)
	start(t, k)

	k.MutexLock(t0, m)

	info, _ := k.Snapshot(t0)
	if info.State != StateDone {
		t.Fatalf("thread state = %v, want Done", info.State)
	}
	if len(log.lines) == 0 {
		t.Fatalf("expected a warning to be logged")
	}
}

// Scenario 5: wait_until_next_period immediately yields the CPU.
func TestWaitUntilNextPeriod(t *testing.T) {
	k, _ := newTestKernel(t, 1, 0)
	tid := mustCreate(t, k, 0, 50, 200)
	start(t, k)
	if k.Current() != tid {
		t.Fatalf("initial current = %d, want %d", k.Current(), tid)
	}

	k.WaitUntilNextPeriod(tid)

	info, _ := k.Snapshot(tid)
	if info.State != StateWaiting {
		t.Fatalf("state after wait_until_next_period = %v, want Waiting", info.State)
	}
	if k.Current() == tid {
		t.Fatalf("expected a switch away from %d", tid)
	}
}

// Releases happen exactly every T ticks regardless of whether the thread
// ever calls wait_until_next_period.
func TestPeriodReleaseCadence(t *testing.T) {
	k, _ := newTestKernel(t, 1, 0)
	tid := mustCreate(t, k, 0, 50, 200)
	start(t, k)

	releases := 0
	for i := 0; i < 2000; i++ {
		k.Tick()
		info, _ := k.Snapshot(tid)
		if info.ReleaseTime == k.GetTime() {
			releases++
		}
	}
	if releases != 10 {
		t.Fatalf("releases = %d, want 10 (2000/200)", releases)
	}
}

// Scenario 6: double lock / double unlock warnings, state unchanged.
func TestMutexDoubleLockDoubleUnlock(t *testing.T) {
	k, log := newTestKernel(t, 1, 1)
	m, _ := k.MutexInit(0)
	tid := mustCreate(t, k, 0, 50, 200)
	start(t, k)

	k.MutexLock(tid, m)
	info, _ := k.Snapshot(tid)
	if !info.HeldMutex.has(int(m)) {
		t.Fatalf("expected mutex held after first lock")
	}
	wantPrio := info.DynamicPriority

	k.MutexLock(tid, m) // double lock
	info2, _ := k.Snapshot(tid)
	if info2.HeldMutex != info.HeldMutex || info2.DynamicPriority != wantPrio {
		t.Fatalf("double lock mutated state: held=%v prio=%d", info2.HeldMutex, info2.DynamicPriority)
	}

	k.MutexUnlock(tid, m)
	info3, _ := k.Snapshot(tid)
	if info3.HeldMutex.has(int(m)) {
		t.Fatalf("expected mutex released")
	}
	if info3.DynamicPriority != info3.StaticPriority {
		t.Fatalf("dynamic priority not restored: %d != %d", info3.DynamicPriority, info3.StaticPriority)
	}

	before := len(log.lines)
	k.MutexUnlock(tid, m) // double unlock
	info4, _ := k.Snapshot(tid)
	if info4.HeldMutex != info3.HeldMutex {
		t.Fatalf("double unlock mutated held bitmap")
	}
	if len(log.lines) <= before {
		t.Fatalf("expected a warning logged for double unlock")
	}
}

func TestMutexLockUnlockRoundTrip(t *testing.T) {
	k, _ := newTestKernel(t, 1, 1)
	m, _ := k.MutexInit(0)
	tid := mustCreate(t, k, 0, 50, 200)
	start(t, k)

	before, _ := k.Snapshot(tid)
	k.MutexLock(tid, m)
	k.MutexUnlock(tid, m)
	after, _ := k.Snapshot(tid)

	if after.DynamicPriority != before.DynamicPriority {
		t.Fatalf("dynamic priority not restored by lock/unlock round trip: %d != %d", after.DynamicPriority, before.DynamicPriority)
	}
	if after.HeldMutex != before.HeldMutex {
		t.Fatalf("held bitmap not restored: %v != %v", after.HeldMutex, before.HeldMutex)
	}
}

func TestBudgetOverrunForcesWaiting(t *testing.T) {
	k, _ := newTestKernel(t, 1, 0)
	tid := mustCreate(t, k, 0, 5, 50)
	start(t, k)

	for i := 0; i < 5; i++ {
		k.Tick()
	}
	info, _ := k.Snapshot(tid)
	if info.State != StateWaiting {
		t.Fatalf("state after budget exhausted = %v, want Waiting", info.State)
	}
	if info.CRemaining != 5 {
		t.Fatalf("c_remaining after overrun = %d, want reset to 5", info.CRemaining)
	}
}

func TestThreadCreateRejectsZeroComputationOrPeriod(t *testing.T) {
	k, _ := newTestKernel(t, 1, 0)
	if _, ok := k.ThreadCreate(0, 0, 100, nil, nil); ok {
		t.Fatalf("ThreadCreate with C=0 admitted, want rejected")
	}
	if _, ok := k.ThreadCreate(0, 100, 0, nil, nil); ok {
		t.Fatalf("ThreadCreate with T=0 admitted, want rejected")
	}
}

func TestThreadCreateOnDoneSlotReadmits(t *testing.T) {
	k, _ := newTestKernel(t, 1, 0)
	tid := mustCreate(t, k, 0, 50, 200)
	start(t, k)

	k.ThreadKill(tid)
	info, _ := k.Snapshot(tid)
	if info.State != StateDone {
		t.Fatalf("state after kill = %v, want Done", info.State)
	}

	tid2, ok := k.ThreadCreate(0, 60, 300, nil, nil)
	if !ok {
		t.Fatalf("ThreadCreate on Done slot rejected, want admitted")
	}
	info2, _ := k.Snapshot(tid2)
	if info2.State != StateReady {
		t.Fatalf("state after recreate = %v, want Ready", info2.State)
	}
	if info2.CRemaining != 60 {
		t.Fatalf("c_remaining after recreate = %d, want 60", info2.CRemaining)
	}
}
