package kernel

import "fmt"

// MinStackWords is the rounding floor for a thread's stack size.
const MinStackWords = 256

// MaxTotalStackBytes is the combined ceiling for the user and kernel stack
// pools: total combined stack must stay at or below 32 KiB.
const MaxTotalStackBytes = 32 * 1024

// stackWordBytes matches a 32-bit ARM Cortex-M word.
const stackWordBytes = 4

// roundStackWords rounds words up to the next power of two, floored at
// MinStackWords.
func roundStackWords(words int) int {
	if words < MinStackWords {
		words = MinStackWords
	}
	n := MinStackWords
	for n < words {
		n <<= 1
	}
	return n
}

// stackPools carves the user and kernel stack regions into maxThreads+2
// equal, contiguous, top-down regions. The two pools stand in for the
// linker-provided ones on real hardware; here newStackPools allocates them.
type stackPools struct {
	user   [][]byte
	kernel [][]byte
}

func newStackPools(slots int, stackWords int) (*stackPools, error) {
	rounded := roundStackWords(stackWords)
	regionBytes := rounded * stackWordBytes
	total := regionBytes * slots * 2 // user + kernel, per slot
	if total > MaxTotalStackBytes {
		return nil, fmt.Errorf("kernel: stack pools need %d bytes, exceeds %d byte budget", total, MaxTotalStackBytes)
	}

	userPool := make([]byte, regionBytes*slots)
	kernelPool := make([]byte, regionBytes*slots)

	p := &stackPools{
		user:   make([][]byte, slots),
		kernel: make([][]byte, slots),
	}
	for i := 0; i < slots; i++ {
		// Top-down: slot 0 owns the highest region, matching a
		// descending-stack MCU convention.
		lo := (slots - 1 - i) * regionBytes
		hi := lo + regionBytes
		p.user[i] = userPool[lo:hi]
		p.kernel[i] = kernelPool[lo:hi]
	}
	return p, nil
}
