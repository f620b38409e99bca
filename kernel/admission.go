package kernel

import "math"

// ubTable holds the Liu-Layland utilization bound k*(2^(1/k) - 1) for
// k = 0..31. Index 0 is unused by construction (the candidate thread always
// contributes at least 1 to n) but is defined as 0 to make ubTable[n] safe
// for any n in range.
var ubTable [32]float32

func init() {
	ubTable[0] = 0
	ubTable[1] = 1
	for k := 2; k < len(ubTable); k++ {
		n := float64(k)
		ubTable[k] = float32(n * (math.Pow(2, 1/n) - 1))
	}
}

// UBBound returns the Liu-Layland utilization bound for n active threads.
// It is exported so admission boundary behavior is directly testable.
func UBBound(n int) float32 {
	if n < 0 {
		n = 0
	}
	if n >= len(ubTable) {
		n = len(ubTable) - 1
	}
	return ubTable[n]
}

// activeUtilization sums Ci/Ti over every user thread not in state New or
// Done, and returns that sum alongside the active count. It excludes the
// idle and default slots, which never participate in admission.
func (k *Kernel) activeUtilization() (float32, int) {
	var sum float32
	count := 0
	for i := 0; i < k.cfg.MaxThreads; i++ {
		t := &k.tcbs[i]
		if !t.active() {
			continue
		}
		count++
		sum += float32(t.computation) / float32(t.period)
	}
	return sum, count
}

// admit implements the Liu-Layland utilization-bound schedulability test.
// The caller must hold k.mu.
func (k *Kernel) admit(c, t uint32) bool {
	activeSum, activeCount := k.activeUtilization()
	u := float32(c)/float32(t) + activeSum
	n := 1 + activeCount
	if n >= len(ubTable) {
		return false
	}
	return u <= UBBound(n)
}
