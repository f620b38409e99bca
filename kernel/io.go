package kernel

import "fmt"

// sbrk implements syscall 0: a bump allocator standing in for the
// linker-provided heap break. It never backs real memory; it only tracks
// the break so user code built against the usual libc shim sees the ABI it
// expects.
func (k *Kernel) sbrk(incr int32) int32 {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.cfg.HeapBytes == 0 {
		return -1
	}
	prev := k.brk
	next := prev + incr
	if next < 0 || next > int32(k.cfg.HeapBytes) {
		return -1
	}
	k.brk = next
	return prev
}

// userBytes resolves a (ptr, length) argument pair against tid's own user
// stack region. There is no flat address space here for a raw pointer to
// range over, so "buf" is interpreted as an offset into the calling
// thread's own memory, which is the only memory a hosted thread actually
// owns. The caller must hold k.mu.
func (k *Kernel) userBytes(tid TID, ptr, length uint32) ([]byte, bool) {
	t := &k.tcbs[tid]
	end := uint64(ptr) + uint64(length)
	if end > uint64(len(t.userStack)) {
		return nil, false
	}
	return t.userStack[ptr:end], true
}

// write implements syscall 1.
func (k *Kernel) write(tid TID, fd int, ptr, length uint32) int32 {
	k.mu.Lock()
	defer k.mu.Unlock()

	if !k.validTID(tid) || (fd != 1 && fd != 2) {
		return -1
	}
	buf, ok := k.userBytes(tid, ptr, length)
	if !ok {
		return -1
	}
	if k.cfg.Stdout == nil {
		return int32(len(buf))
	}
	n, err := k.cfg.Stdout.Write(buf)
	if err != nil {
		return -1
	}
	return int32(n)
}

// read implements syscall 6.
func (k *Kernel) read(tid TID, fd int, ptr, length uint32) int32 {
	k.mu.Lock()
	defer k.mu.Unlock()

	if !k.validTID(tid) || fd != 0 || k.cfg.Stdin == nil {
		return -1
	}
	buf, ok := k.userBytes(tid, ptr, length)
	if !ok {
		return -1
	}
	n, err := k.cfg.Stdin.Read(buf)
	if err != nil && n == 0 {
		return -1
	}
	return int32(n)
}

// Exit implements syscall 7: it halts the kernel and does not return --
// there is no process table to return a status to.
func (k *Kernel) Exit(tid TID, status int) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.halt(fmt.Sprintf("exit(%d) from thread %d", status, tid))
}
