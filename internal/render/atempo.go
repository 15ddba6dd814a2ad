package render

import "math"

// AtempoChain decomposes a playback speed into a chain of tempo steps
// that each stay inside the audio filter's [0.5, 2.0] operating range.
// Out-of-range speeds peel off full 2.0x or 0.5x steps until the
// remainder fits; a remainder within 1% of unity is dropped.
func AtempoChain(speed float64) []float64 {
	var steps []float64
	remaining := speed
	for remaining > 2.0 {
		steps = append(steps, 2.0)
		remaining /= 2.0
	}
	for remaining < 0.5 {
		steps = append(steps, 0.5)
		remaining /= 0.5
	}
	if math.Abs(remaining-1.0) > 0.01 {
		steps = append(steps, remaining)
	}
	return steps
}
