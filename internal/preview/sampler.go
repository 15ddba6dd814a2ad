// Package preview maps instants on the edited timeline back to
// source-time coordinates, honoring per-scene playback speed. The
// resulting timestamps drive preview frame extraction against the
// original media.
package preview

import (
	"github.com/reelcut/reelcut-agent/internal/timeline"
)

// Sample returns up to count source timestamps evenly spaced across the
// edited timeline's effective duration. Timestamps are strictly
// increasing within each scene and monotonically follow timeline order
// across scenes. An empty timeline yields nil.
func Sample(p *timeline.Project, count int) []float64 {
	if count < 1 {
		count = 1
	}
	total := p.TotalDuration()
	if total <= 0 {
		return nil
	}
	interval := total / float64(count)

	var samples []float64
	accumulated := 0.0
	idx := 0

	for _, s := range p.Scenes {
		sceneEnd := accumulated + s.Duration()

		for idx < count && float64(idx)*interval < sceneEnd {
			instant := float64(idx) * interval
			offset := instant - accumulated
			samples = append(samples, s.Start+offset*s.Speed)
			idx++
		}

		accumulated = sceneEnd
	}

	return samples
}
