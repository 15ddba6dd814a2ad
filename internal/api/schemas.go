package api

import (
	"encoding/json"

	"github.com/reelcut/reelcut-agent/internal/timeline"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type StatusResponse struct {
	State        string        `json:"state"`
	Projects     int           `json:"projects"`
	Capabilities *Capabilities `json:"capabilities,omitempty"`
}

type Capabilities struct {
	FFmpeg      bool   `json:"ffmpeg"`
	FFprobe     bool   `json:"ffprobe"`
	Drawtext    bool   `json:"drawtext"`
	LastProbeAt string `json:"last_probe_at,omitempty"`
}

// CreateProjectRequest registers an externally analyzed video: the
// caller supplies the probed metadata and the detected scene list.
type CreateProjectRequest struct {
	Name       string            `json:"name"`
	SourcePath string            `json:"source_path"`
	Duration   float64           `json:"duration"`
	Width      int               `json:"width"`
	Height     int               `json:"height"`
	FPS        float64           `json:"fps"`
	Scenes     []*timeline.Scene `json:"scenes"`
}

// EditRequest carries one edit; Params is decoded according to Kind.
type EditRequest struct {
	Kind          string          `json:"kind"`
	TargetSceneID string          `json:"target_scene_id"`
	Params        json.RawMessage `json:"params"`
}

type DeleteRangeRequest struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type FadeRequest struct {
	Duration float64 `json:"duration"`
}

type NarrationRequest struct {
	Path           string  `json:"path"`
	Text           string  `json:"text"`
	Voice          string  `json:"voice"`
	Volume         float64 `json:"volume"`
	OriginalVolume float64 `json:"original_volume"`
}

type RenderRequest struct {
	BurnCaptions bool   `json:"burn_captions"`
	CaptionStyle string `json:"caption_style"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
}

type RenderResponse struct {
	JobID string `json:"job_id"`
}

type PreviewResponse struct {
	Count      int       `json:"count"`
	Timestamps []float64 `json:"timestamps"`
}

// RemovedResponse reports a batch operation alongside the updated
// project state.
type RemovedResponse struct {
	Removed int               `json:"removed"`
	Project *timeline.Project `json:"project"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
