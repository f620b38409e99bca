package kernel

// TickSource is the minimal contract the kernel needs from its hardware
// timer. hal.Time satisfies it without kernel ever importing hal, keeping
// the dependency arrow pointing the one way: drivers depend on the kernel's
// interfaces, never the reverse.
type TickSource interface {
	Ticks() <-chan uint64
}

// Systick is the software side of a decrementing hardware counter: the
// reload-value-from-frequency arithmetic and the actual interrupt wiring
// live in hal, behind TickSource. Systick only counts ticks as they arrive
// and drives the tick accountant, exactly as the hardware ISR would.
type Systick struct {
	k    *Kernel
	freq int
	src  TickSource
	done chan struct{}
}

func newSystick(k *Kernel, freq int, src TickSource) *Systick {
	return &Systick{k: k, freq: freq, src: src, done: make(chan struct{})}
}

func (s *Systick) run() {
	ticks := s.src.Ticks()
	for {
		select {
		case <-s.done:
			return
		case _, ok := <-ticks:
			if !ok {
				return
			}
			s.k.Tick()
		}
	}
}

// Stop halts the Systick goroutine. It does not affect tick_count already
// accounted for.
func (s *Systick) Stop() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}
