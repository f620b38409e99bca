package main

import (
	"fmt"
	"strings"

	"rmskernel/hal"
	"rmskernel/kernel"
)

// demo wires a representative RMS workload: a fast sensor sampler, a
// slower control loop that shares a mutex with a best-effort logger, and
// a background logger thread that can be blocked out by the control
// loop's priority ceiling. It is the fixture RunWindow and RunHeadless
// drive once per frame; its own threads do the real work on their own
// goroutines via the kernel's Systick-driven tick source.
type demo struct {
	k     *kernel.Kernel
	names map[kernel.TID]string
	tids  []kernel.TID
}

func newDemo(h hal.HAL) hal.App {
	k := kernel.NewKernel()
	d := &demo{k: k, names: map[kernel.TID]string{}}

	if err := k.ThreadInit(kernel.Config{
		MaxThreads: 3,
		StackWords: 256,
		MaxMutexes: 1,
		Log:        h.Logger(),
	}); err != nil {
		h.Logger().WriteLineString(fmt.Sprintf("rtosdemo: thread_init failed: %v", err))
		return d
	}

	logMu, ok := k.MutexInit(0)
	if !ok {
		h.Logger().WriteLineString("rtosdemo: mutex_init failed")
		return d
	}

	sensor := func(ctx *kernel.Context, _ any) {
		for {
			ctx.WaitUntilNextPeriod()
		}
	}
	control := func(ctx *kernel.Context, _ any) {
		for {
			ctx.MutexLock(logMu)
			ctx.MutexUnlock(logMu)
			ctx.WaitUntilNextPeriod()
		}
	}
	logger := func(ctx *kernel.Context, _ any) {
		for {
			ctx.MutexLock(logMu)
			ctx.MutexUnlock(logMu)
			ctx.WaitUntilNextPeriod()
		}
	}

	tSensor, ok := k.ThreadCreate(0, 2, 20, sensor, nil)
	if !ok {
		h.Logger().WriteLineString("rtosdemo: sensor thread_create rejected")
		return d
	}
	tControl, ok := k.ThreadCreate(1, 5, 50, control, nil)
	if !ok {
		h.Logger().WriteLineString("rtosdemo: control thread_create rejected")
		return d
	}
	tLogger, ok := k.ThreadCreate(2, 3, 100, logger, nil)
	if !ok {
		h.Logger().WriteLineString("rtosdemo: logger thread_create rejected")
		return d
	}

	d.names[tSensor] = "sensor"
	d.names[tControl] = "control"
	d.names[tLogger] = "logger"
	d.tids = []kernel.TID{tSensor, tControl, tLogger}

	if err := k.SchedulerStart(1000, h.Time()); err != nil {
		h.Logger().WriteLineString(fmt.Sprintf("rtosdemo: scheduler_start failed: %v", err))
	}
	return d
}

// Step does nothing: every thread's real work runs on its own goroutine,
// woken by the Systick loop SchedulerStart already started against the
// HAL's tick source.
func (d *demo) Step() error { return nil }

// Status renders a one-line-per-thread scheduler snapshot for display.
func (d *demo) Status() string {
	if d.k == nil || len(d.tids) == 0 {
		return "rtosdemo: not running"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "tick %d  current %d\n", d.k.GetTime(), d.k.Current())
	for _, tid := range d.tids {
		info, ok := d.k.Snapshot(tid)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%-8s prio=%d->%d state=%-8s c_rem=%d elapsed=%d\n",
			d.names[tid], info.StaticPriority, info.DynamicPriority, info.State,
			info.CRemaining, info.Elapsed)
	}
	if halted, msg := d.k.Halted(); halted {
		fmt.Fprintf(&b, "HALTED: %s\n", msg)
	}
	return b.String()
}
