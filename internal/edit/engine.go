// Package edit applies non-destructive edits to a project's scene
// timeline. Every mutation goes through Apply so the snapshot ring and
// the edit log stay in lockstep; Undo then restores exactly one step.
//
// Edits targeting a scene id that no longer exists are deliberate
// no-ops, not errors: upstream advisors issue speculative batches and a
// missing target must not abort the rest of the batch.
package edit

import (
	"github.com/reelcut/reelcut-agent/internal/timeline"
)

// Apply applies a single edit to the project: snapshot first, append to
// the edit log, then dispatch on kind. Unknown kinds are rejected
// before any mutation.
func Apply(p *timeline.Project, e timeline.Edit) error {
	switch e.Kind {
	case timeline.EditDelete, timeline.EditReorder, timeline.EditTrim,
		timeline.EditSpeed, timeline.EditSplit, timeline.EditMerge,
		timeline.EditTextOverlay, timeline.EditTransition, timeline.EditCrop:
	default:
		return timeline.ErrUnknownEditKind
	}

	if err := p.Snapshot(); err != nil {
		return err
	}
	p.Edits = append(p.Edits, e)

	switch e.Kind {
	case timeline.EditDelete:
		deleteScene(p, e)
	case timeline.EditReorder:
		reorderScene(p, e)
	case timeline.EditTrim:
		trimScene(p, e)
	case timeline.EditSpeed:
		speedScene(p, e)
	case timeline.EditSplit:
		splitScene(p, e)
	case timeline.EditMerge:
		mergeScenes(p, e)
	case timeline.EditTextOverlay:
		addOverlay(p, e)
	case timeline.EditTransition:
		setTransition(p, e)
	case timeline.EditCrop:
		setCrop(p, e)
	}
	return nil
}

// ApplyAll applies edits in order, stopping at the first failure.
func ApplyAll(p *timeline.Project, edits []timeline.Edit) error {
	for _, e := range edits {
		if err := Apply(p, e); err != nil {
			return err
		}
	}
	return nil
}

// Undo reverts the most recent edit. Returns
// timeline.ErrNothingToUndo on an empty snapshot stack.
func Undo(p *timeline.Project) error {
	return p.Undo()
}

func deleteScene(p *timeline.Project, e timeline.Edit) {
	kept := p.Scenes[:0]
	for _, s := range p.Scenes {
		if s.ID != e.TargetSceneID {
			kept = append(kept, s)
		}
	}
	p.Scenes = kept
}

func reorderScene(p *timeline.Project, e timeline.Edit) {
	if e.Reorder == nil {
		return
	}
	scene, i := p.SceneByID(e.TargetSceneID)
	if scene == nil {
		return
	}
	p.Scenes = append(p.Scenes[:i], p.Scenes[i+1:]...)

	idx := e.Reorder.NewIndex
	if idx < 0 {
		idx = 0
	}
	if idx > len(p.Scenes) {
		idx = len(p.Scenes)
	}
	p.Scenes = append(p.Scenes[:idx], append([]*timeline.Scene{scene}, p.Scenes[idx:]...)...)
}

// trimScene is permissive: a trim may leave start >= end. The range
// translator depends on this; degenerate scenes are swept afterwards.
func trimScene(p *timeline.Project, e timeline.Edit) {
	if e.Trim == nil {
		return
	}
	scene, _ := p.SceneByID(e.TargetSceneID)
	if scene == nil {
		return
	}
	scene.Start += e.Trim.TrimStart
	scene.End -= e.Trim.TrimEnd

	kept := scene.Transcript[:0]
	for _, w := range scene.Transcript {
		if w.Start >= scene.Start && w.End <= scene.End {
			kept = append(kept, w)
		}
	}
	scene.Transcript = kept
}

// speedScene clamps rather than rejects. Word timestamps stay in
// source time and are not rescaled.
func speedScene(p *timeline.Project, e timeline.Edit) {
	if e.Speed == nil {
		return
	}
	scene, _ := p.SceneByID(e.TargetSceneID)
	if scene == nil {
		return
	}
	scene.Speed = timeline.ClampSpeed(e.Speed.Speed)
}

func splitScene(p *timeline.Project, e timeline.Edit) {
	if e.Split == nil {
		return
	}
	scene, i := p.SceneByID(e.TargetSceneID)
	if scene == nil {
		return
	}
	abs := scene.Start + e.Split.SplitAt
	if abs <= scene.Start || abs >= scene.End {
		return
	}

	tail := &timeline.Scene{
		ID:            scene.ID + "b",
		Start:         abs,
		End:           scene.End,
		Type:          scene.Type,
		Description:   scene.Description,
		ThumbnailPath: scene.ThumbnailPath,
		Energy:        scene.Energy,
		QualityScore:  scene.QualityScore,
		HasSpeech:     scene.HasSpeech,
		Speed:         scene.Speed,
	}
	for _, w := range scene.Transcript {
		if w.Start >= abs {
			tail.Transcript = append(tail.Transcript, w)
		}
	}

	scene.End = abs
	kept := scene.Transcript[:0]
	for _, w := range scene.Transcript {
		if w.End <= abs {
			kept = append(kept, w)
		}
	}
	scene.Transcript = kept

	p.Scenes = append(p.Scenes[:i+1], append([]*timeline.Scene{tail}, p.Scenes[i+1:]...)...)
}

// mergeScenes joins the target with its immediate successor. No-op when
// the target is last.
func mergeScenes(p *timeline.Project, e timeline.Edit) {
	scene, i := p.SceneByID(e.TargetSceneID)
	if scene == nil || i+1 >= len(p.Scenes) {
		return
	}
	next := p.Scenes[i+1]

	scene.End = next.End
	scene.Transcript = append(scene.Transcript, next.Transcript...)
	scene.HasSpeech = scene.HasSpeech || next.HasSpeech
	scene.Description = joinDescriptions(scene.Description, next.Description)
	if next.Energy > scene.Energy {
		scene.Energy = next.Energy
	}
	if next.QualityScore < scene.QualityScore {
		scene.QualityScore = next.QualityScore
	}
	p.Scenes = append(p.Scenes[:i+1], p.Scenes[i+2:]...)
}

func joinDescriptions(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "; " + b
	}
}

func addOverlay(p *timeline.Project, e timeline.Edit) {
	if e.Overlay == nil {
		return
	}
	scene, _ := p.SceneByID(e.TargetSceneID)
	if scene == nil {
		return
	}
	scene.Overlays = append(scene.Overlays, *e.Overlay)
}

func setTransition(p *timeline.Project, e timeline.Edit) {
	if e.Transition == nil {
		return
	}
	scene, _ := p.SceneByID(e.TargetSceneID)
	if scene == nil {
		return
	}
	scene.TransitionIn = e.Transition.Kind
	scene.TransitionDuration = e.Transition.Duration
}

// setCrop is project-global, not per-scene. Zero dimensions fall back
// to the source frame.
func setCrop(p *timeline.Project, e timeline.Edit) {
	if e.Crop == nil {
		return
	}
	if e.Crop.Width > 0 {
		p.CropWidth = e.Crop.Width
	} else {
		p.CropWidth = p.Width
	}
	if e.Crop.Height > 0 {
		p.CropHeight = e.Crop.Height
	} else {
		p.CropHeight = p.Height
	}
}
