package timeline

import (
	"encoding/hex"
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
)

// MaxSnapshots bounds the undo ring. Snapshots are full scene-list
// copies, so the bound keeps long edit sessions from growing without
// limit.
const MaxSnapshots = 50

// ErrNothingToUndo is returned by Undo on an empty snapshot stack.
var ErrNothingToUndo = errors.New("nothing to undo")

type Status string

const (
	StatusCreated   Status = "created"
	StatusAnalyzing Status = "analyzing"
	StatusReady     Status = "ready"
	StatusRendering Status = "rendering"
	StatusDone      Status = "done"
	StatusError     Status = "error"
)

// Narration holds the metadata of an attached narration track. The
// audio itself is produced by an external voice service; the render
// compiler only needs the path and the two volume levels.
type Narration struct {
	Path           string  `json:"path"`
	Text           string  `json:"text"`
	Voice          string  `json:"voice"`
	Volume         float64 `json:"volume"`
	OriginalVolume float64 `json:"original_volume"`
}

// Attached reports whether a narration track has been set.
func (n Narration) Attached() bool {
	return n.Path != ""
}

// Project is one edit session over a single source video. The Scenes
// slice order is the timeline order and is the single source of truth
// for playback order. Projects are mutated only through the edit
// package so the snapshot ring stays consistent.
type Project struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	SourcePath string  `json:"source_path"`
	Duration   float64 `json:"duration"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	FPS        float64 `json:"fps"`

	Scenes []*Scene `json:"scenes"`
	Edits  []Edit   `json:"edits"`

	// Undo ring of JSON-encoded scene lists, oldest first. Not
	// persisted; undo history does not survive a restart.
	Snapshots [][]byte `json:"-"`

	CropWidth  int `json:"crop_width"`
	CropHeight int `json:"crop_height"`

	Narration Narration `json:"narration"`

	Status    Status    `json:"status"`
	Error     string    `json:"error"`
	CreatedAt time.Time `json:"created_at"`
}

// NewID returns a short random project identifier.
func NewID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:4])
}

// NewProject constructs a project around an analyzed source video.
func NewProject(name, sourcePath string, duration float64, width, height int, fps float64) *Project {
	return &Project{
		ID:         NewID(),
		Name:       name,
		SourcePath: sourcePath,
		Duration:   duration,
		Width:      width,
		Height:     height,
		FPS:        fps,
		Status:     StatusCreated,
		CreatedAt:  time.Now().UTC(),
	}
}

// Clone returns a deep copy detached from the live project, for
// readers that must not observe concurrent edits. The undo ring is
// not carried over.
func (p *Project) Clone() *Project {
	c := *p
	c.Scenes = make([]*Scene, len(p.Scenes))
	for i, s := range p.Scenes {
		c.Scenes[i] = s.Clone()
	}
	c.Edits = append([]Edit(nil), p.Edits...)
	c.Snapshots = nil
	return &c
}

// Snapshot pushes a full copy of the current scene list onto the undo
// ring, trimming the oldest entry past MaxSnapshots.
func (p *Project) Snapshot() error {
	data, err := sonic.Marshal(p.Scenes)
	if err != nil {
		return err
	}
	p.Snapshots = append(p.Snapshots, data)
	if len(p.Snapshots) > MaxSnapshots {
		p.Snapshots = p.Snapshots[len(p.Snapshots)-MaxSnapshots:]
	}
	return nil
}

// Undo restores the most recent snapshot and removes the last edit-log
// entry. It is the only edit-path operation that can fail.
func (p *Project) Undo() error {
	if len(p.Snapshots) == 0 {
		return ErrNothingToUndo
	}
	snap := p.Snapshots[len(p.Snapshots)-1]
	p.Snapshots = p.Snapshots[:len(p.Snapshots)-1]

	var scenes []*Scene
	if err := sonic.Unmarshal(snap, &scenes); err != nil {
		return err
	}
	p.Scenes = scenes

	if len(p.Edits) > 0 {
		p.Edits = p.Edits[:len(p.Edits)-1]
	}
	return nil
}

// SceneByID returns the scene with the given id and its timeline index,
// or (nil, -1).
func (p *Project) SceneByID(id string) (*Scene, int) {
	for i, s := range p.Scenes {
		if s.ID == id {
			return s, i
		}
	}
	return nil, -1
}

// TotalDuration is the effective duration of the edited timeline.
func (p *Project) TotalDuration() float64 {
	var total float64
	for _, s := range p.Scenes {
		total += s.Duration()
	}
	return total
}

// TargetFrame returns the output frame size: the crop override when
// set, the source dimensions otherwise.
func (p *Project) TargetFrame() (int, int) {
	if p.CropWidth > 0 && p.CropHeight > 0 {
		return p.CropWidth, p.CropHeight
	}
	return p.Width, p.Height
}

// AllWords returns every non-empty transcript word across the timeline
// in scene order.
func (p *Project) AllWords() []Word {
	var words []Word
	for _, s := range p.Scenes {
		for _, w := range s.Transcript {
			if w.Text != "" {
				words = append(words, w)
			}
		}
	}
	return words
}
