package kernel

// TID identifies a thread control block slot. For a user thread, TID equals
// its static priority: the TCB table is a priority-indexed array, not a
// free-running ID space.
type TID int

// ThreadState is a thread's lifecycle state.
type ThreadState uint8

const (
	StateNew ThreadState = iota
	StateReady
	StateRunning
	StateWaiting
	StateBlocked
	StateDone
)

func (s ThreadState) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateWaiting:
		return "waiting"
	case StateBlocked:
		return "blocked"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// MutexBitmap is a fixed-width bitmap over mutex indices. 32 bits covers
// MaxMutexesHardLimit exactly.
type MutexBitmap uint32

func (b MutexBitmap) has(i int) bool { return b&(1<<uint(i)) != 0 }
func (b *MutexBitmap) set(i int)     { *b |= 1 << uint(i) }
func (b *MutexBitmap) clear(i int)   { *b &^= 1 << uint(i) }
func (b MutexBitmap) empty() bool    { return b == 0 }

// ThreadFunc is a user thread's entry point. It receives a Context bound to
// the thread that is calling it and an opaque argument supplied at
// ThreadCreate time. A nil ThreadFunc is valid: such a thread participates
// fully in scheduling, admission, and tick accounting but has no Go code
// driven for it; this is how the deterministic kernel tests exercise the
// scheduler without any concurrent goroutines.
type ThreadFunc func(ctx *Context, arg any)

// savedFrame is the kernel's sole handle to "the rest of a thread's state"
// across a switch: the callee-preserved register image plus the saved user
// stack pointer. There is no real register file here, user code runs as
// an ordinary goroutine, but the bookkeeping mirrors what the hardware
// trampoline would save.
type savedFrame struct {
	calleeRegs [8]uint32
	userSP     uint32
	pc         uint32
	returnAddr uint32
	statusWord uint32
}

type tcb struct {
	staticPriority  int
	dynamicPriority int

	computation uint32 // C, ticks of budget per job
	period      uint32 // T, ticks between releases

	state ThreadState

	cRemaining  uint32
	releaseTime uint64
	elapsed     uint64

	heldMutex    MutexBitmap
	waitingMutex MutexBitmap

	inKernelCall bool // trap_privilege_level

	frame *savedFrame

	fn  ThreadFunc
	arg any

	userStack   []byte
	kernelStack []byte

	periodsCompleted uint64 // introspection only, not a spec invariant

	// wake is the baton the trampoline uses to let this thread's goroutine
	// proceed once the scheduler has chosen it. Unused by the
	// deterministic, goroutine-free kernel API.
	wake chan struct{}
}

func newTCB() tcb {
	return tcb{state: StateNew, wake: make(chan struct{}, 1)}
}

func (t *tcb) active() bool {
	return t.state != StateNew && t.state != StateDone
}

// ThreadInfo is a read-only snapshot of a TCB for introspection and tests.
type ThreadInfo struct {
	TID             TID
	StaticPriority  int
	DynamicPriority int
	Computation     uint32
	Period          uint32
	State           ThreadState
	CRemaining      uint32
	ReleaseTime     uint64
	Elapsed         uint64
	HeldMutex       MutexBitmap
	WaitingMutex    MutexBitmap
}
