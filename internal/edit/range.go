package edit

import (
	"sort"

	"github.com/reelcut/reelcut-agent/internal/timeline"
)

// WordBuffer widens a deleted word's range on both sides so the cut
// does not clip the surrounding audio.
const WordBuffer = 0.05

// GhostThreshold is the effective duration below which a scene left
// over by translated deletions is swept out.
const GhostThreshold = 0.05

// DeleteRange removes all timeline content in source-time [start,end),
// expressed purely through primitive edits so every step remains
// individually undoable.
func DeleteRange(p *timeline.Project, start, end float64) error {
	if end <= start {
		return nil
	}

	// Snapshot the overlap set up front; the loop below rewrites the
	// scene list as it goes.
	type span struct {
		id         string
		start, end float64
	}
	var affected []span
	for _, s := range p.Scenes {
		if s.Start < end && s.End > start {
			affected = append(affected, span{id: s.ID, start: s.Start, end: s.End})
		}
	}

	for _, sc := range affected {
		switch {
		case sc.start >= start && sc.end <= end:
			// Entire scene inside the range.
			if err := Apply(p, timeline.NewDeleteEdit(sc.id)); err != nil {
				return err
			}

		case sc.start < start && sc.end > end:
			// Range strictly inside the scene: split off the head,
			// split the tail again, delete the middle piece.
			if err := Apply(p, timeline.NewSplitEdit(sc.id, start-sc.start)); err != nil {
				return err
			}
			midID := sc.id + "b"
			mid, _ := p.SceneByID(midID)
			if mid == nil {
				continue
			}
			if err := Apply(p, timeline.NewSplitEdit(midID, end-mid.Start)); err != nil {
				return err
			}
			if err := Apply(p, timeline.NewDeleteEdit(midID)); err != nil {
				return err
			}

		case sc.start < start:
			// Scene runs into the range: trim its tail.
			if err := Apply(p, timeline.NewTrimEdit(sc.id, 0, sc.end-start)); err != nil {
				return err
			}

		case sc.end > end:
			// Scene starts inside the range: trim its head.
			if err := Apply(p, timeline.NewTrimEdit(sc.id, end-sc.start, 0)); err != nil {
				return err
			}
		}
	}

	return nil
}

// DeleteWord removes a single transcribed word from the timeline,
// widening the cut by WordBuffer on each side.
func DeleteWord(p *timeline.Project, w timeline.Word) error {
	return DeleteRange(p, w.Start-WordBuffer, w.End+WordBuffer)
}

// DeleteAllFillerWords removes every filler-tagged word across the
// timeline, then sweeps out the ghost scenes the deletions leave
// behind. Words are deleted latest-first so earlier ranges stay valid
// while later ones are cut.
func DeleteAllFillerWords(p *timeline.Project) error {
	var fillers []timeline.Word
	for _, s := range p.Scenes {
		for _, w := range s.Transcript {
			if w.Filler {
				fillers = append(fillers, w)
			}
		}
	}

	sort.Slice(fillers, func(i, j int) bool {
		return fillers[i].Start > fillers[j].Start
	})

	for _, w := range fillers {
		if err := DeleteWord(p, w); err != nil {
			return err
		}
	}

	SweepGhostScenes(p)
	return nil
}

// SweepGhostScenes drops degenerate scenes whose effective duration is
// at or below GhostThreshold. This intentionally bypasses the edit log:
// ghosts are artifacts of a translated batch, not user intent.
func SweepGhostScenes(p *timeline.Project) {
	kept := p.Scenes[:0]
	for _, s := range p.Scenes {
		if s.Duration() > GhostThreshold {
			kept = append(kept, s)
		}
	}
	p.Scenes = kept
}

// DeleteDeadAir removes every scene classified as dead air.
func DeleteDeadAir(p *timeline.Project) error {
	var dead []string
	for _, s := range p.Scenes {
		if s.IsDeadAir {
			dead = append(dead, s.ID)
		}
	}
	for _, id := range dead {
		if err := Apply(p, timeline.NewDeleteEdit(id)); err != nil {
			return err
		}
	}
	return nil
}

// DeleteShortScenes removes scenes whose effective duration is below
// minDuration.
func DeleteShortScenes(p *timeline.Project, minDuration float64) error {
	var short []string
	for _, s := range p.Scenes {
		if s.Duration() < minDuration {
			short = append(short, s.ID)
		}
	}
	for _, id := range short {
		if err := Apply(p, timeline.NewDeleteEdit(id)); err != nil {
			return err
		}
	}
	return nil
}

// AddFadeTransitions gives every scene after the first a fade-in of the
// given duration.
func AddFadeTransitions(p *timeline.Project, duration float64) error {
	var ids []string
	for _, s := range p.Scenes[min(1, len(p.Scenes)):] {
		ids = append(ids, s.ID)
	}
	for _, id := range ids {
		if err := Apply(p, timeline.NewTransitionEdit(id, "fade", duration)); err != nil {
			return err
		}
	}
	return nil
}
