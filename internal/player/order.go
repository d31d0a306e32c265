package player

import "math/rand/v2"

// NextIndex picks the index to play after current in a list of size tracks, or -1 for an empty list.
//
// Order wraps to 0 after the last track. Single stays on current. Shuffle draws uniformly from the
// other size-1 indexes, so it never repeats current unless the list has one track.
func NextIndex(mode Mode, current, size int, rng *rand.Rand) int {
	if size <= 0 {
		return -1
	}
	if current < 0 || current >= size {
		if mode == Shuffle {
			return intN(rng, size)
		}
		return 0
	}

	switch mode {
	case Single:
		return current
	case Shuffle:
		if size == 1 {
			return 0
		}
		i := intN(rng, size-1)
		if i >= current {
			i++
		}
		return i
	default:
		return (current + 1) % size
	}
}

// PrevIndex steps back from current, wrapping to the last track. Returns -1 for an empty list.
func PrevIndex(current, size int) int {
	if size <= 0 {
		return -1
	}
	if current <= 0 || current >= size {
		return size - 1
	}
	return current - 1
}

func intN(rng *rand.Rand, n int) int {
	if rng == nil {
		return rand.IntN(n)
	}
	return rng.IntN(n)
}
