package kernel

import (
	"fmt"
	"io"
	"sync"
)

// MaxSlots is the hard ceiling on TCB table entries, including the idle and
// default slots.
const MaxSlots = 16

// MaxMutexesHardLimit is the hard ceiling on the mutex table.
const MaxMutexesHardLimit = 32

// MaxUserThreads is the largest max_threads thread_init may admit.
const MaxUserThreads = MaxSlots - 2

// Diagnostics is the sink for kernel warnings and halt messages. It is
// satisfied by hal.Logger; the kernel package never imports hal so the
// dependency only ever points one way.
type Diagnostics interface {
	WriteLineString(s string)
}

type nullDiagnostics struct{}

func (nullDiagnostics) WriteLineString(string) {}

// Config configures a Kernel via ThreadInit.
type Config struct {
	MaxThreads int
	StackWords int
	MaxMutexes int
	IdleFn     ThreadFunc
	Log        Diagnostics

	// TickSource, if set, is what SchedulerStart hands to Systick when it
	// is invoked through Dispatch's scheduler_start(frequency). Tests that
	// drive Tick directly can leave this nil.
	TickSource TickSource

	// HeapBytes bounds sbrk (syscall 0); zero means sbrk always fails.
	HeapBytes uint32
	// Stdout and Stdin back write/read (syscalls 1 and 6). Nil means the
	// corresponding syscall fails (Stdin) or succeeds without side effects
	// (Stdout), matching a write to a dev-null-equivalent.
	Stdout io.Writer
	Stdin  io.Reader
}

// Kernel holds all scheduler-visible state: the TCB table, the mutex table,
// the monotonic tick counter, and the identity of the running thread, as a
// single value created once and passed by reference rather than package
// globals.
//
// All mutation happens with mu held, standing in for the hardware's
// elevated-exception-priority critical section: no kernel operation below
// the boundary needs a lock of its own.
type Kernel struct {
	mu sync.Mutex

	cfg     Config
	started bool
	halted  bool
	haltMsg string

	tcbs    []tcb
	current TID

	tick uint64

	mutexes    []mutexEntry
	mutexCount int
	maxMutexes int

	pools *stackPools

	brk int32

	log Diagnostics

	trampoline *Trampoline
	systick    *Systick
}

type mutexEntry struct {
	inUse   bool
	ceiling int
	owner   TID
	index   int
}

// NewKernel returns an un-initialized kernel. ThreadInit must be called
// before any other operation.
func NewKernel() *Kernel {
	return &Kernel{log: nullDiagnostics{}}
}

func (k *Kernel) idleTID() TID    { return TID(k.cfg.MaxThreads) }
func (k *Kernel) defaultTID() TID { return TID(k.cfg.MaxThreads + 1) }

func (k *Kernel) slotCount() int { return k.cfg.MaxThreads + 2 }

func (k *Kernel) warn(format string, args ...any) {
	k.log.WriteLineString("kernel: warning: " + fmt.Sprintf(format, args...))
}

// ThreadInit allocates the TCB table and stack pools and seeds every slot.
// It implements syscall 9 and must be called exactly once, before
// scheduler_start and before any thread_create.
func (k *Kernel) ThreadInit(cfg Config) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.tcbs != nil {
		return fmt.Errorf("kernel: thread_init already called")
	}
	if cfg.MaxThreads <= 0 || cfg.MaxThreads > MaxUserThreads {
		return fmt.Errorf("kernel: max_threads %d exceeds limit %d", cfg.MaxThreads, MaxUserThreads)
	}
	if cfg.MaxMutexes < 0 || cfg.MaxMutexes > MaxMutexesHardLimit {
		return fmt.Errorf("kernel: max_mutexes %d exceeds limit %d", cfg.MaxMutexes, MaxMutexesHardLimit)
	}

	pools, err := newStackPools(cfg.MaxThreads+2, cfg.StackWords)
	if err != nil {
		return err
	}

	if cfg.Log != nil {
		k.log = cfg.Log
	}
	k.cfg = cfg
	k.pools = pools

	slots := k.slotCount()
	k.tcbs = make([]tcb, slots)
	for i := range k.tcbs {
		k.tcbs[i] = newTCB()
		k.tcbs[i].userStack = pools.user[i]
		k.tcbs[i].kernelStack = pools.kernel[i]
	}

	idle := k.idleTID()
	def := k.defaultTID()

	idleFn := cfg.IdleFn
	if idleFn == nil {
		idleFn = defaultIdleFn
	}
	k.tcbs[idle] = tcb{
		state:           StateReady,
		staticPriority:  int(idle),
		dynamicPriority: int(idle),
		computation:     1,
		period:          1,
		cRemaining:      1,
		fn:              idleFn,
		userStack:       pools.user[idle],
		kernelStack:     pools.kernel[idle],
	}
	k.tcbs[idle].wake = make(chan struct{}, 1)
	k.tcbs[def] = tcb{
		state:           StateRunning,
		staticPriority:  int(def),
		dynamicPriority: int(def),
		computation:     1,
		period:          1,
		cRemaining:      1,
		userStack:       pools.user[def],
		kernelStack:     pools.kernel[def],
		wake:            make(chan struct{}, 1),
	}
	k.current = def
	k.spawnGoroutine(idle)

	k.maxMutexes = cfg.MaxMutexes
	k.mutexes = make([]mutexEntry, cfg.MaxMutexes)
	for i := range k.mutexes {
		k.mutexes[i] = mutexEntry{index: i, owner: -1}
	}

	k.trampoline = newTrampoline(k)
	return nil
}

// defaultIdleFn parks forever; on real hardware this is "wait for
// interrupt", which for a goroutine is simply blocking on the next tick.
func defaultIdleFn(ctx *Context, _ any) {
	for {
		ctx.BlockOnTick()
	}
}

// Snapshot returns a read-only view of a thread for introspection and
// tests. It does not mutate state and does not request a switch.
func (k *Kernel) Snapshot(tid TID) (ThreadInfo, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.snapshotLocked(tid)
}

func (k *Kernel) snapshotLocked(tid TID) (ThreadInfo, bool) {
	if !k.validTID(tid) {
		return ThreadInfo{}, false
	}
	t := &k.tcbs[tid]
	return ThreadInfo{
		TID:             tid,
		StaticPriority:  t.staticPriority,
		DynamicPriority: t.dynamicPriority,
		Computation:     t.computation,
		Period:          t.period,
		State:           t.state,
		CRemaining:      t.cRemaining,
		ReleaseTime:     t.releaseTime,
		Elapsed:         t.elapsed,
		HeldMutex:       t.heldMutex,
		WaitingMutex:    t.waitingMutex,
	}, true
}

func (k *Kernel) validTID(tid TID) bool {
	return tid >= 0 && int(tid) < len(k.tcbs)
}

// Current returns the currently scheduled thread.
func (k *Kernel) Current() TID {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.current
}

// Halted reports whether a fatal fault has halted the kernel.
func (k *Kernel) Halted() (bool, string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.halted, k.haltMsg
}

func (k *Kernel) halt(msg string) {
	k.halted = true
	k.haltMsg = msg
	k.log.WriteLineString("kernel: HALT: " + msg)
}
