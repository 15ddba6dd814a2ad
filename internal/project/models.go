// Package project owns persistence and orchestration of edit projects:
// the SQLite repository, the single-writer service wrapping the edit
// machine, and the render-job runner.
package project

import (
	"time"

	"github.com/google/uuid"

	"github.com/reelcut/reelcut-agent/internal/timeline"
)

type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// RenderJob is one queued render of a project's current timeline.
type RenderJob struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"project_id"`
	Status       JobStatus `json:"status"`
	BurnCaptions bool      `json:"burn_captions"`
	CaptionStyle string    `json:"caption_style"`
	TargetWidth  int       `json:"target_width"`
	TargetHeight int       `json:"target_height"`
	OutputPath   string    `json:"output_path,omitempty"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewJobID returns a render job identifier.
func NewJobID() string {
	return uuid.NewString()
}

// Summary is the list view of a stored project, read from columns
// without decoding the full payload.
type Summary struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Status     timeline.Status `json:"status"`
	Error      string          `json:"error,omitempty"`
	Duration   float64         `json:"duration"`
	SceneCount int             `json:"scene_count"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
