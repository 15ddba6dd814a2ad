package media

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"time"
)

const doctorCacheTTL = 5 * time.Minute

// Capabilities describes what the installed media tooling can do.
type Capabilities struct {
	FFmpegAvailable   bool      `json:"ffmpeg_available"`
	FFprobeAvailable  bool      `json:"ffprobe_available"`
	FFmpegVersion     string    `json:"ffmpeg_version"`
	DrawtextSupported bool      `json:"drawtext_supported"`
	ProbedAt          time.Time `json:"probed_at"`
}

// Doctor probes the media tooling and caches the result so render jobs
// do not re-run the probe on every invocation.
type Doctor struct {
	tools *FFmpegTools
	ttl   time.Duration

	mu     sync.RWMutex
	cached *Capabilities
}

// NewDoctor creates a caching capability probe over the toolset.
func NewDoctor(tools *FFmpegTools) *Doctor {
	return &Doctor{tools: tools, ttl: doctorCacheTTL}
}

// Get returns cached capabilities if fresh, otherwise re-probes.
func (d *Doctor) Get(ctx context.Context) *Capabilities {
	d.mu.RLock()
	if d.cached != nil && time.Since(d.cached.ProbedAt) < d.ttl {
		caps := d.cached
		d.mu.RUnlock()
		return caps
	}
	d.mu.RUnlock()
	return d.Refresh(ctx)
}

// Refresh forces a new probe regardless of cache freshness.
func (d *Doctor) Refresh(ctx context.Context) *Capabilities {
	d.mu.Lock()
	defer d.mu.Unlock()

	caps := &Capabilities{ProbedAt: time.Now()}

	var version bytes.Buffer
	if r := d.tools.run(ctx, d.tools.ffmpeg, []string{"-version"}, &version); r.IsSuccess() {
		caps.FFmpegAvailable = true
		if line, _, ok := strings.Cut(version.String(), "\n"); ok {
			caps.FFmpegVersion = strings.TrimSpace(line)
		}
	}
	if r := d.tools.run(ctx, d.tools.ffprobe, []string{"-version"}, new(bytes.Buffer)); r.IsSuccess() {
		caps.FFprobeAvailable = true
	}

	var filters bytes.Buffer
	if r := d.tools.run(ctx, d.tools.ffmpeg, []string{"-hide_banner", "-filters"}, &filters); r.IsSuccess() {
		caps.DrawtextSupported = strings.Contains(filters.String(), "drawtext")
	}

	d.tools.cfg.Logger.Info("media doctor probe complete",
		"ffmpeg", caps.FFmpegAvailable,
		"ffprobe", caps.FFprobeAvailable,
		"drawtext", caps.DrawtextSupported,
	)

	d.cached = caps
	return caps
}

// Invalidate clears the cached capabilities.
func (d *Doctor) Invalidate() {
	d.mu.Lock()
	d.cached = nil
	d.mu.Unlock()
}

// drawtextSupported answers overlay availability for segment
// extraction, probing at most once per cache window.
func (t *FFmpegTools) drawtextSupported(ctx context.Context) bool {
	t.doctorOnce.Do(func() {
		t.doctor = NewDoctor(t)
	})
	return t.doctor.Get(ctx).DrawtextSupported
}
