package timeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
)

type EditKind string

const (
	EditDelete      EditKind = "delete"
	EditReorder     EditKind = "reorder"
	EditTrim        EditKind = "trim"
	EditSpeed       EditKind = "speed"
	EditSplit       EditKind = "split"
	EditMerge       EditKind = "merge"
	EditTextOverlay EditKind = "text_overlay"
	EditTransition  EditKind = "transition"
	EditCrop        EditKind = "crop"
)

// ErrUnknownEditKind is returned when an edit names a kind the machine
// does not dispatch on. It is the only construction-time rejection;
// edits targeting absent scenes degrade to no-ops at apply time.
var ErrUnknownEditKind = errors.New("unknown edit kind")

type ReorderParams struct {
	NewIndex int `json:"new_index"`
}

// TrimParams shrink a scene's interval from either side, in source
// seconds. Negative resulting durations are allowed transiently; the
// translated-batch cleanup removes the degenerate scene.
type TrimParams struct {
	TrimStart float64 `json:"trim_start"`
	TrimEnd   float64 `json:"trim_end"`
}

type SpeedParams struct {
	Speed float64 `json:"speed"`
}

// SplitParams give the split point as an offset from the scene's start.
type SplitParams struct {
	SplitAt float64 `json:"split_at"`
}

type TransitionParams struct {
	Kind     string  `json:"type"`
	Duration float64 `json:"duration"`
}

type CropParams struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Edit is one recorded operation against a project's timeline. Exactly
// the parameter field matching Kind is set; the rest are nil. Edits are
// immutable once appended to the edit log.
type Edit struct {
	Kind          EditKind  `json:"kind"`
	TargetSceneID string    `json:"target_scene_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`

	Reorder    *ReorderParams    `json:"reorder,omitempty"`
	Trim       *TrimParams       `json:"trim,omitempty"`
	Speed      *SpeedParams      `json:"speed,omitempty"`
	Split      *SplitParams      `json:"split,omitempty"`
	Overlay    *Overlay          `json:"overlay,omitempty"`
	Transition *TransitionParams `json:"transition,omitempty"`
	Crop       *CropParams       `json:"crop,omitempty"`
}

func newEdit(kind EditKind, target string) Edit {
	return Edit{Kind: kind, TargetSceneID: target, Timestamp: time.Now().UTC()}
}

func NewDeleteEdit(sceneID string) Edit {
	return newEdit(EditDelete, sceneID)
}

func NewReorderEdit(sceneID string, newIndex int) Edit {
	e := newEdit(EditReorder, sceneID)
	e.Reorder = &ReorderParams{NewIndex: newIndex}
	return e
}

func NewTrimEdit(sceneID string, trimStart, trimEnd float64) Edit {
	e := newEdit(EditTrim, sceneID)
	e.Trim = &TrimParams{TrimStart: trimStart, TrimEnd: trimEnd}
	return e
}

func NewSpeedEdit(sceneID string, speed float64) Edit {
	e := newEdit(EditSpeed, sceneID)
	e.Speed = &SpeedParams{Speed: speed}
	return e
}

func NewSplitEdit(sceneID string, splitAt float64) Edit {
	e := newEdit(EditSplit, sceneID)
	e.Split = &SplitParams{SplitAt: splitAt}
	return e
}

func NewMergeEdit(sceneID string) Edit {
	return newEdit(EditMerge, sceneID)
}

func NewOverlayEdit(sceneID string, overlay Overlay) Edit {
	e := newEdit(EditTextOverlay, sceneID)
	if overlay.Position == "" || !ValidPosition(overlay.Position) {
		overlay.Position = "bottom"
	}
	e.Overlay = &overlay
	return e
}

func NewTransitionEdit(sceneID, kind string, duration float64) Edit {
	e := newEdit(EditTransition, sceneID)
	e.Transition = &TransitionParams{Kind: kind, Duration: duration}
	return e
}

func NewCropEdit(width, height int) Edit {
	e := newEdit(EditCrop, "")
	e.Crop = &CropParams{Width: width, Height: height}
	return e
}

// ParseEdit builds a validated Edit from wire form: a kind string, a
// target scene id, and a raw JSON parameter object. Unknown kinds are
// rejected here, before the edit gets anywhere near a project.
func ParseEdit(kind, targetSceneID string, params []byte) (Edit, error) {
	if len(params) == 0 {
		params = []byte("{}")
	}

	unmarshal := func(v any) error {
		if err := sonic.Unmarshal(params, v); err != nil {
			return fmt.Errorf("edit %s: invalid params: %w", kind, err)
		}
		return nil
	}

	switch EditKind(kind) {
	case EditDelete:
		return NewDeleteEdit(targetSceneID), nil
	case EditMerge:
		return NewMergeEdit(targetSceneID), nil
	case EditReorder:
		var p ReorderParams
		if err := unmarshal(&p); err != nil {
			return Edit{}, err
		}
		return NewReorderEdit(targetSceneID, p.NewIndex), nil
	case EditTrim:
		var p TrimParams
		if err := unmarshal(&p); err != nil {
			return Edit{}, err
		}
		return NewTrimEdit(targetSceneID, p.TrimStart, p.TrimEnd), nil
	case EditSpeed:
		var p SpeedParams
		if err := unmarshal(&p); err != nil {
			return Edit{}, err
		}
		return NewSpeedEdit(targetSceneID, p.Speed), nil
	case EditSplit:
		var p SplitParams
		if err := unmarshal(&p); err != nil {
			return Edit{}, err
		}
		return NewSplitEdit(targetSceneID, p.SplitAt), nil
	case EditTextOverlay:
		o := DefaultOverlay("")
		if err := unmarshal(&o); err != nil {
			return Edit{}, err
		}
		return NewOverlayEdit(targetSceneID, o), nil
	case EditTransition:
		p := TransitionParams{Kind: "fade", Duration: 0.5}
		if err := unmarshal(&p); err != nil {
			return Edit{}, err
		}
		return NewTransitionEdit(targetSceneID, p.Kind, p.Duration), nil
	case EditCrop:
		var p CropParams
		if err := unmarshal(&p); err != nil {
			return Edit{}, err
		}
		return NewCropEdit(p.Width, p.Height), nil
	default:
		return Edit{}, fmt.Errorf("%w: %q", ErrUnknownEditKind, kind)
	}
}
