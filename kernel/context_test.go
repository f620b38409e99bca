package kernel

import (
	"testing"
	"time"
)

// A ThreadFunc's Context wraps a real goroutine: spawnGoroutine parks it
// until the trampoline first wakes its slot, and its return triggers
// thread_kill the way the fabricated return address promises.
func TestContextDrivenThreadRunsAndTerminates(t *testing.T) {
	k, _ := newTestKernel(t, 1, 0)
	ran := make(chan struct{})
	fn := func(ctx *Context, arg any) {
		close(arg.(chan struct{}))
	}

	tid, ok := k.ThreadCreate(0, 50, 200, fn, ran)
	if !ok {
		t.Fatalf("ThreadCreate rejected")
	}
	start(t, k)

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatalf("thread function never ran")
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		info, _ := k.Snapshot(tid)
		if info.State == StateDone {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("thread did not reach Done after returning")
}

// A thread that blocks on a mutex inside its own goroutine parks there;
// unlocking from the holder must wake it back up holding the lock.
func TestContextMutexLockBlocksAndWakes(t *testing.T) {
	k, _ := newTestKernel(t, 2, 1)
	m, _ := k.MutexInit(0)

	low := mustCreate(t, k, 1, 500, 2000)
	k.MutexLock(low, m) // low holds m before the contending goroutine ever runs.

	acquired := make(chan struct{})
	fn := func(ctx *Context, arg any) {
		ctx.MutexLock(m)
		close(acquired)
		ctx.MutexUnlock(m)
	}
	if _, ok := k.ThreadCreate(0, 50, 1000, fn, nil); !ok {
		t.Fatalf("ThreadCreate(high) rejected")
	}

	start(t, k)

	select {
	case <-acquired:
		t.Fatalf("high acquired the mutex before low released it")
	case <-time.After(50 * time.Millisecond):
	}

	k.MutexUnlock(low, m)

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatalf("high never acquired the mutex after low released it")
	}
}
