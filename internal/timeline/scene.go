// Package timeline defines the data model for edit projects: scenes cut
// from a single source video, their transcripts and overlays, the edit
// log, and the snapshot ring that backs undo. The types here carry no
// behaviour beyond validation and derived values; all mutation goes
// through the edit package.
package timeline

import (
	"fmt"
	"strings"
)

type SceneType string

const (
	SceneTalkingHead     SceneType = "talking_head"
	SceneScreenRecording SceneType = "screen_recording"
	SceneBRoll           SceneType = "broll"
	SceneTextSlide       SceneType = "text_slide"
	SceneDeadAir         SceneType = "dead_air"
	SceneUnknown         SceneType = "unknown"
)

// Playback speed bounds. Values outside this band produce unwatchable
// output and break the audio tempo decomposition.
const (
	MinSpeed = 0.25
	MaxSpeed = 4.0
)

// Word is one transcribed word in source-time coordinates. Words are
// produced by transcription and never modified afterwards; edits may
// only drop them when their scene's interval narrows past them.
type Word struct {
	Text       string  `json:"word"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
	Filler     bool    `json:"is_filler"`
}

// Overlay positions name the seven anchor zones of the frame.
var overlayPositions = map[string]bool{
	"top": true, "center": true, "bottom": true,
	"top-left": true, "top-right": true,
	"bottom-left": true, "bottom-right": true,
}

// ValidPosition reports whether p names a known overlay anchor zone.
func ValidPosition(p string) bool {
	return overlayPositions[p]
}

// Overlay is a text overlay owned by exactly one scene. StartOffset is
// seconds from the scene's start; Duration 0 means the whole scene.
type Overlay struct {
	Text        string  `json:"text"`
	Position    string  `json:"position"`
	StartOffset float64 `json:"start_offset"`
	Duration    float64 `json:"duration"`
	FontSize    int     `json:"font_size"`
	Color       string  `json:"color"`
	BGColor     string  `json:"bg_color"`
}

// DefaultOverlay returns an overlay with the customary styling defaults.
func DefaultOverlay(text string) Overlay {
	return Overlay{
		Text:     text,
		Position: "bottom",
		FontSize: 48,
		Color:    "white",
		BGColor:  "black@0.5",
	}
}

// Scene is a contiguous interval [Start,End) of the source video treated
// as one editable unit. The invariant End > Start holds for every scene
// constructed here; the edit machine may transiently break it mid-batch
// (trims are permissive) and sweeps the degenerate scenes afterwards.
type Scene struct {
	ID                 string    `json:"id"`
	Start              float64   `json:"start"`
	End                float64   `json:"end"`
	Type               SceneType `json:"scene_type"`
	Description        string    `json:"description"`
	Transcript         []Word    `json:"transcript"`
	ThumbnailPath      string    `json:"thumbnail_path"`
	Energy             float64   `json:"energy"`
	QualityScore       float64   `json:"quality_score"`
	HasSpeech          bool      `json:"has_speech"`
	IsDeadAir          bool      `json:"is_dead_air"`
	Speed              float64   `json:"speed"`
	Overlays           []Overlay `json:"overlays"`
	TransitionIn       string    `json:"transition_in"`
	TransitionDuration float64   `json:"transition_duration"`
}

// NewScene constructs a scene over [start,end) at speed 1.0.
func NewScene(id string, start, end float64) (*Scene, error) {
	if end <= start {
		return nil, fmt.Errorf("scene %s: end %.3f must be greater than start %.3f", id, end, start)
	}
	return &Scene{
		ID:           id,
		Start:        start,
		End:          end,
		Type:         SceneUnknown,
		Energy:       0.5,
		QualityScore: 0.5,
		Speed:        1.0,
	}, nil
}

// SetSpeed sets the playback speed, rejecting values outside the
// supported band. The edit machine clamps instead of rejecting.
func (s *Scene) SetSpeed(speed float64) error {
	if speed < MinSpeed || speed > MaxSpeed {
		return fmt.Errorf("scene %s: speed %.2f outside [%.2f, %.2f]", s.ID, speed, MinSpeed, MaxSpeed)
	}
	s.Speed = speed
	return nil
}

// AddWord appends a transcript word, rejecting words whose time range
// does not lie within the scene's interval.
func (s *Scene) AddWord(w Word) error {
	if w.Start < s.Start || w.End > s.End {
		return fmt.Errorf("scene %s: word %q [%.3f, %.3f] outside scene interval [%.3f, %.3f)",
			s.ID, w.Text, w.Start, w.End, s.Start, s.End)
	}
	s.Transcript = append(s.Transcript, w)
	return nil
}

// ClampSpeed clamps speed into the supported band.
func ClampSpeed(speed float64) float64 {
	if speed < MinSpeed {
		return MinSpeed
	}
	if speed > MaxSpeed {
		return MaxSpeed
	}
	return speed
}

// RawDuration is the duration of the source footage, ignoring speed.
func (s *Scene) RawDuration() float64 {
	return s.End - s.Start
}

// Duration is the effective on-screen duration after the speed multiplier.
func (s *Scene) Duration() float64 {
	return (s.End - s.Start) / s.Speed
}

// TranscriptText joins the scene's words into one string.
func (s *Scene) TranscriptText() string {
	words := make([]string, len(s.Transcript))
	for i, w := range s.Transcript {
		words[i] = w.Text
	}
	return strings.Join(words, " ")
}

// Clone returns a deep copy of the scene.
func (s *Scene) Clone() *Scene {
	c := *s
	c.Transcript = append([]Word(nil), s.Transcript...)
	c.Overlays = append([]Overlay(nil), s.Overlays...)
	return &c
}
