package hal

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

// Time provides the tick stream kernel.Systick drives the scheduler's clock
// from. The tick duration is platform-defined: on host builds a runner
// pumps it once per frame or once per headless interval; on TinyGo builds
// it free-runs off a hardware timer.
type Time interface {
	Ticks() <-chan uint64
}

// HAL is the only contact point between the kernel and the outside world.
type HAL interface {
	Logger() Logger
	Time() Time
}

// App is what a HAL runner drives once per frame: a kernel wired up with
// its threads, stepped forward and asked to report its status for display.
// Most of an App's real work happens on the thread goroutines and the
// Systick-driven tick source; Step exists for runners that need a
// synchronous per-frame hook.
type App interface {
	Step() error
	Status() string
}
