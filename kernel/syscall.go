package kernel

// Opcode identifies a supervisor call.
type Opcode uint8

const (
	OpSbrk                Opcode = 0
	OpWrite               Opcode = 1
	OpRead                Opcode = 6
	OpExit                Opcode = 7
	OpThreadInit          Opcode = 9
	OpThreadCreate        Opcode = 10
	OpThreadKill          Opcode = 11
	OpSchedulerStart      Opcode = 12
	OpMutexInit           Opcode = 13
	OpMutexLock           Opcode = 14
	OpMutexUnlock         Opcode = 15
	OpWaitUntilNextPeriod Opcode = 16
	OpGetTime             Opcode = 17
	OpGetPriority         Opcode = 19
	OpThreadTime          Opcode = 20
)

// errSentinel is the -1 return value for caller input errors and resource
// exhaustion, encoded the way a 32-bit register holds it.
const errSentinel = 0xFFFFFFFF

// TrapFrame is the fixed-shape argument frame a supervisor call trap
// reads: four argument registers, a scratch register, a return address, a
// program counter, and a saved status word. A fifth argument,
// when an operation needs one, lives on the user stack immediately above
// the frame; Arg5 models that slot directly since there is no real user
// stack memory here for Dispatch to dereference.
type TrapFrame struct {
	R0, R1, R2, R3 uint32
	Scratch        uint32
	ReturnAddr     uint32
	PC             uint32
	StatusWord     uint32
	Arg5           uint32
}

// Dispatch implements the syscall boundary for the thirteen operations whose
// arguments and return value fit in the trap frame's registers.
// thread_init and thread_create additionally carry a function value and an
// opaque argument pointer; those have no fixed-width register encoding in
// a hosted Go program, so they are exposed directly as typed Kernel
// methods (ThreadInit, ThreadCreate) instead of through Dispatch, the same
// way a Go caller receives a func value rather than a raw code address.
// Every other operation in the table traps here.
//
// Dispatch sets trap_privilege_level (tcb.inKernelCall) on entry and clears
// it when any arm of the dispatch returns, so the flag is set for exactly
// the duration of the call. The host model has no processor privilege
// mode, so a preemption mid-syscall does not switch any mode from it.
func (k *Kernel) Dispatch(tid TID, op Opcode, frame *TrapFrame) {
	k.mu.Lock()
	valid := k.validTID(tid)
	if valid {
		k.tcbs[tid].inKernelCall = true
	}
	k.mu.Unlock()

	defer func() {
		k.mu.Lock()
		if valid && k.validTID(tid) {
			k.tcbs[tid].inKernelCall = false
		}
		k.mu.Unlock()
	}()

	switch op {
	case OpSbrk:
		frame.R0 = uint32(k.sbrk(int32(frame.R0)))
	case OpWrite:
		frame.R0 = uint32(k.write(tid, int(frame.R0), frame.R1, frame.R2))
	case OpRead:
		frame.R0 = uint32(k.read(tid, int(frame.R0), frame.R1, frame.R2))
	case OpExit:
		k.Exit(tid, int(frame.R0))
	case OpThreadKill:
		k.ThreadKill(tid)
	case OpSchedulerStart:
		k.mu.Lock()
		src := k.cfg.TickSource
		k.mu.Unlock()
		if err := k.SchedulerStart(int(frame.R0), src); err != nil {
			frame.R0 = errSentinel
		} else {
			frame.R0 = 0
		}
	case OpMutexInit:
		h, ok := k.MutexInit(int(frame.R0))
		if !ok {
			frame.R0 = errSentinel
		} else {
			frame.R0 = uint32(h)
		}
	case OpMutexLock:
		k.MutexLock(tid, MutexID(frame.R0))
	case OpMutexUnlock:
		k.MutexUnlock(tid, MutexID(frame.R0))
	case OpWaitUntilNextPeriod:
		k.WaitUntilNextPeriod(tid)
	case OpGetTime:
		frame.R0 = uint32(k.GetTime())
	case OpGetPriority:
		frame.R0 = uint32(k.GetPriority(tid))
	case OpThreadTime:
		frame.R0 = uint32(k.ThreadTime(tid))
	default:
		frame.R0 = errSentinel
	}
}
